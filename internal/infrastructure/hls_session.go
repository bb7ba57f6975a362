package infrastructure

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/yourusername/offline-player-go/internal/domain"
	"github.com/yourusername/offline-player-go/pkg/dispatch"
	"go.uber.org/zap"
)

// HLSSession downloads HLS assets segment by segment into resumable locations under baseDir.
// Delegate callbacks are delivered on queue.
type HLSSession struct {
	http     *HTTPClient
	baseDir  string
	delegate domain.TransferDelegate
	queue    *dispatch.SerialQueue
	cdm      domain.ContentDecryptionModule
	logger   *zap.Logger

	mu    sync.Mutex
	tasks []*hlsTask
}

// NewHLSSession creates a new HLS transfer session
func NewHLSSession(
	client *HTTPClient,
	baseDir string,
	delegate domain.TransferDelegate,
	queue *dispatch.SerialQueue,
	cdm domain.ContentDecryptionModule,
	logger *zap.Logger,
) *HLSSession {
	return &HLSSession{
		http:     client,
		baseDir:  baseDir,
		delegate: delegate,
		queue:    queue,
		cdm:      cdm,
		logger:   logger,
	}
}

// MakeAssetDownloadTask creates a suspended task downloading asset
func (s *HLSSession) MakeAssetDownloadTask(asset *domain.Asset, title string, minimumBitrate int) (domain.TransferTask, error) {
	if asset == nil || asset.URL == "" {
		return nil, fmt.Errorf("asset url is required")
	}

	task := &hlsTask{
		id:      uuid.New().String(),
		session: s,
		asset:   asset,
		title:   title,
		bitrate: minimumBitrate,
		state:   domain.TaskSuspended,
	}
	task.cond = sync.NewCond(&task.mu)

	s.mu.Lock()
	s.tasks = append(s.tasks, task)
	s.mu.Unlock()

	s.logger.Debug("Download task created",
		zap.String("task_id", task.id),
		zap.String("title", title),
		zap.String("url", asset.URL))
	return task, nil
}

// Tasks returns the tasks that have not completed
func (s *HLSSession) Tasks() []domain.TransferTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := make([]domain.TransferTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	return tasks
}

func (s *HLSSession) remove(task *hlsTask) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tasks {
		if t == task {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return
		}
	}
}

func (s *HLSSession) reportProgress(task *hlsTask, m *downloadManifest) {
	loaded, expected := m.loaded(), m.expected()
	s.queue.Async(func() { s.delegate.DidLoadTimeRange(task, loaded, expected) })
}

// finish removes task and delivers its final callbacks
func (s *HLSSession) finish(task *hlsTask, location string, err error) {
	s.remove(task)

	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("Download task failed",
			zap.String("task_id", task.id),
			zap.String("title", task.title),
			zap.Error(err))
	}

	s.queue.Async(func() {
		if err == nil {
			s.delegate.DidFinishDownloading(task, location)
		}
		s.delegate.DidComplete(task, err)
	})
}

// hlsTask is one asset download
type hlsTask struct {
	id      string
	session *HLSSession
	asset   *domain.Asset
	title   string
	bitrate int

	mu          sync.Mutex
	cond        *sync.Cond
	description string
	state       domain.TaskState
	started     bool
	bytes       int64
	location    string
	cancel      context.CancelFunc
}

func (t *hlsTask) ID() string           { return t.id }
func (t *hlsTask) Asset() *domain.Asset { return t.asset }

func (t *hlsTask) Description() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.description
}

func (t *hlsTask) SetDescription(description string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.description = description
}

func (t *hlsTask) State() domain.TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *hlsTask) BytesReceived() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bytes
}

func (t *hlsTask) Location() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.location
}

// Resume starts the task or continues it after Suspend
func (t *hlsTask) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != domain.TaskSuspended {
		return
	}
	t.state = domain.TaskRunning
	if !t.started {
		t.started = true
		ctx, cancel := context.WithCancel(context.Background())
		t.cancel = cancel
		go t.run(ctx)
	}
	t.cond.Broadcast()
}

// Suspend pauses the task before its next segment
func (t *hlsTask) Suspend() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == domain.TaskRunning {
		t.state = domain.TaskSuspended
	}
}

// Cancel stops the task; its completion reports context.Canceled
func (t *hlsTask) Cancel() {
	t.mu.Lock()
	if t.state == domain.TaskCanceling || t.state == domain.TaskCompleted {
		t.mu.Unlock()
		return
	}
	t.state = domain.TaskCanceling
	neverStarted := !t.started
	t.started = true
	if t.cancel != nil {
		t.cancel()
	}
	t.cond.Broadcast()
	t.mu.Unlock()

	if neverStarted {
		t.complete(context.Canceled)
	}
}

func (t *hlsTask) complete(err error) {
	t.mu.Lock()
	t.state = domain.TaskCompleted
	location := t.location
	t.mu.Unlock()
	t.session.finish(t, location, err)
}

func (t *hlsTask) run(ctx context.Context) {
	t.complete(t.download(ctx))
}

// waitWhileSuspended blocks while the task is suspended
func (t *hlsTask) waitWhileSuspended(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for t.state == domain.TaskSuspended && ctx.Err() == nil {
		t.cond.Wait()
	}
	return ctx.Err()
}

func (t *hlsTask) download(ctx context.Context) error {
	manifest, location, err := t.prepare(ctx)
	if err != nil {
		return err
	}

	if t.asset.PreloadsEligibleContentKeys {
		if err := t.preloadKeys(ctx, manifest, location); err != nil {
			return err
		}
	}

	if manifest.doneCount() > 0 {
		t.session.reportProgress(t, manifest)
	}

	for i := range manifest.Segments {
		if err := t.waitWhileSuspended(ctx); err != nil {
			return err
		}
		segment := &manifest.Segments[i]
		if segment.Done {
			continue
		}

		n, err := t.fetchSegment(ctx, segment.URI, filepath.Join(location, segment.File))
		if err != nil {
			return err
		}
		segment.Done = true

		t.mu.Lock()
		t.bytes += n
		t.mu.Unlock()

		if err := manifest.write(location); err != nil {
			return err
		}
		t.session.reportProgress(t, manifest)
	}

	return manifest.writeLocalPlaylist(location)
}

// prepare opens the download location, resuming a local one or laying out a new one
func (t *hlsTask) prepare(ctx context.Context) (*downloadManifest, string, error) {
	if t.asset.IsLocal() {
		location := strings.TrimPrefix(t.asset.URL, "file://")
		manifest, err := readManifest(location)
		if err != nil {
			return nil, "", err
		}

		var received int64
		for _, s := range manifest.Segments {
			if !s.Done {
				continue
			}
			if info, err := os.Stat(filepath.Join(location, s.File)); err == nil {
				received += info.Size()
			}
		}

		t.mu.Lock()
		t.location = location
		t.bytes = received
		t.mu.Unlock()

		t.session.logger.Info("Resuming download",
			zap.String("title", t.title),
			zap.String("location", location),
			zap.Int("done", manifest.doneCount()),
			zap.Int("segments", len(manifest.Segments)))
		return manifest, location, nil
	}

	media, mediaURL, err := resolveMediaPlaylist(ctx, t.session.http, t.asset.URL, t.bitrate)
	if err != nil {
		return nil, "", err
	}
	manifest, err := newDownloadManifest(t.asset.URL, mediaURL, t.title, media)
	if err != nil {
		return nil, "", err
	}

	location := filepath.Join(t.session.baseDir, fmt.Sprintf("%s_%s.movpkg", sanitizeFileName(t.title), t.id[:8]))
	if err := os.MkdirAll(location, 0755); err != nil {
		return nil, "", fmt.Errorf("failed to create download location: %w", err)
	}
	if err := manifest.write(location); err != nil {
		return nil, "", err
	}

	t.mu.Lock()
	t.location = location
	t.mu.Unlock()

	t.session.logger.Info("Download started",
		zap.String("title", t.title),
		zap.String("media_url", mediaURL),
		zap.String("location", location),
		zap.Int("segments", len(manifest.Segments)))
	return manifest, location, nil
}

// preloadKeys fetches every content key through the asset's resource loader and stores
// them next to the media
func (t *hlsTask) preloadKeys(ctx context.Context, manifest *downloadManifest, location string) error {
	keys, err := loadContentKeys(ctx, t.asset, manifest.KeyURIs, t.session.cdm)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	dir := filepath.Join(location, "keys")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}
	for uri, key := range keys {
		name := fmt.Sprintf("%x.key", sha256.Sum256([]byte(uri)))
		if err := os.WriteFile(filepath.Join(dir, name), key, 0600); err != nil {
			return fmt.Errorf("failed to store key: %w", err)
		}
	}
	return nil
}

func (t *hlsTask) fetchSegment(ctx context.Context, url, path string) (int64, error) {
	body, _, err := t.session.http.Stream(ctx, url)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("failed to create segment file: %w", err)
	}

	n, err := io.Copy(f, body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, &domain.TransportError{Op: "segment " + url, Err: err}
	}

	if err := os.Rename(tmp, path); err != nil {
		return 0, fmt.Errorf("failed to store segment: %w", err)
	}
	return n, nil
}

// sanitizeFileName replaces characters that are unsafe in directory names
func sanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}
