package app

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/yourusername/offline-player-go/internal/domain"
	"go.uber.org/zap"
)

// SessionFactory builds the transfer session that reports to delegate
type SessionFactory func(delegate domain.TransferDelegate) domain.TransferSession

// taskProgress tracks one scheduled task between callbacks
type taskProgress struct {
	lastPercent int
	cached      bool
	completed   bool
	cancelled   bool
	replaced    bool
}

// DownloadSessionManager owns the process-wide transfer session and turns its
// callbacks into storage updates and events
type DownloadSessionManager struct {
	factory   SessionFactory
	once      sync.Once
	session   domain.TransferSession
	storage   *AssetStorage
	bus       *EventBus
	bitrate   int
	threshold int
	logger    *zap.Logger

	mu       sync.Mutex
	progress map[string]*taskProgress
}

// NewDownloadSessionManager creates a new session manager; the session is created on first use
func NewDownloadSessionManager(
	factory SessionFactory,
	storage *AssetStorage,
	bus *EventBus,
	config domain.DownloadConfig,
	logger *zap.Logger,
) *DownloadSessionManager {
	return &DownloadSessionManager{
		factory:   factory,
		storage:   storage,
		bus:       bus,
		bitrate:   config.MinimumBitrate,
		threshold: config.CompletionThreshold,
		logger:    logger,
		progress:  make(map[string]*taskProgress),
	}
}

func (m *DownloadSessionManager) transferSession() domain.TransferSession {
	m.once.Do(func() {
		m.session = m.factory(m)
		m.logger.Info("Transfer session created")
	})
	return m.session
}

// tasksFor returns the session tasks whose descriptor title matches; malformed descriptors are skipped
func (m *DownloadSessionManager) tasksFor(title string) []domain.TransferTask {
	var matched []domain.TransferTask
	for _, task := range m.transferSession().Tasks() {
		desc, err := domain.ParseTaskDescriptor(task.Description())
		if err != nil {
			continue
		}
		if desc.Title == title {
			matched = append(matched, task)
		}
	}
	return matched
}

func (m *DownloadSessionManager) entry(taskID string) *taskProgress {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.progress[taskID]
	if !ok {
		p = &taskProgress{}
		m.progress[taskID] = p
	}
	return p
}

// markCancelled records that we cancelled taskID; replaced marks a cancel issued by a reschedule
func (m *DownloadSessionManager) markCancelled(taskID string, replaced bool) {
	p := m.entry(taskID)
	m.mu.Lock()
	defer m.mu.Unlock()
	p.cancelled = true
	p.replaced = p.replaced || replaced
}

// Schedule cancels any task already downloading title, then starts a new one for url.
// A resolvable temporary bookmark for title is used as the asset location instead of url.
func (m *DownloadSessionManager) Schedule(url, title string, videoID float64, loader domain.ResourceLoaderDelegate) (domain.TaskInfo, error) {
	if err := domain.ValidateTitle(title); err != nil {
		return domain.TaskInfo{}, err
	}

	for _, task := range m.tasksFor(title) {
		if task.State() == domain.TaskCompleted {
			continue
		}
		m.logger.Info("Cancelling previous task for title",
			zap.String("title", title),
			zap.String("task_id", task.ID()),
			zap.String("descriptor", task.Description()))
		m.markCancelled(task.ID(), true)
		task.Cancel()
	}

	assetURL := url
	if location, ok := m.storage.TemporaryLocation(title); ok {
		m.logger.Info("Resuming from cached location",
			zap.String("title", title),
			zap.String("location", location))
		assetURL = location
	}

	asset := &domain.Asset{
		URL:                         assetURL,
		PreloadsEligibleContentKeys: true,
		ResourceLoader:              loader,
	}

	task, err := m.transferSession().MakeAssetDownloadTask(asset, title, m.bitrate)
	if err != nil {
		return domain.TaskInfo{}, fmt.Errorf("failed to create download task: %w", err)
	}

	desc := domain.NewTaskDescriptor(title, videoID)
	task.SetDescription(desc.String())
	m.entry(task.ID())
	task.Resume()

	m.logger.Info("Download scheduled",
		zap.String("title", title),
		zap.Float64("video_id", videoID),
		zap.String("task_id", task.ID()),
		zap.String("url", assetURL))

	return taskInfo(task, desc), nil
}

// Pause suspends the running task of title. It returns false when no running task matches.
func (m *DownloadSessionManager) Pause(title string) bool {
	found := false
	for _, task := range m.tasksFor(title) {
		if task.State() != domain.TaskRunning {
			continue
		}
		task.Suspend()
		found = true

		desc, _ := domain.ParseTaskDescriptor(task.Description())
		m.logger.Info("Download paused", zap.String("title", title), zap.String("task_id", task.ID()))
		m.bus.Publish(domain.NewEvent(domain.EventDownloadPaused, title, desc.VideoID))
	}
	return found
}

// Resume resumes the suspended task of title and reports whether one was found.
// completion is invoked exactly once.
func (m *DownloadSessionManager) Resume(title string, completion func(found bool)) {
	found := false
	for _, task := range m.tasksFor(title) {
		if task.State() != domain.TaskSuspended {
			continue
		}
		task.Resume()
		found = true
		m.logger.Info("Download resumed", zap.String("title", title), zap.String("task_id", task.ID()))
	}
	if completion != nil {
		completion(found)
	}
}

// Cancel cancels every task of title and reports whether any was found
func (m *DownloadSessionManager) Cancel(title string) bool {
	found := false
	for _, task := range m.tasksFor(title) {
		m.markCancelled(task.ID(), false)
		task.Cancel()
		found = true
		m.logger.Info("Download cancelled", zap.String("title", title), zap.String("task_id", task.ID()))
	}
	return found
}

// Tasks lists the session tasks with a well-formed descriptor
func (m *DownloadSessionManager) Tasks() []domain.TaskInfo {
	var infos []domain.TaskInfo
	for _, task := range m.transferSession().Tasks() {
		desc, err := domain.ParseTaskDescriptor(task.Description())
		if err != nil {
			continue
		}
		infos = append(infos, taskInfo(task, desc))
	}
	return infos
}

func taskInfo(task domain.TransferTask, desc domain.TaskDescriptor) domain.TaskInfo {
	return domain.TaskInfo{
		ID:         task.ID(),
		Descriptor: desc,
		State:      task.State(),
		Bytes:      task.BytesReceived(),
		Location:   task.Location(),
	}
}

// DidLoadTimeRange re-encodes the task progress, broadcasts it, caches a resumable
// bookmark once the first percent is in and completes the download past the threshold
func (m *DownloadSessionManager) DidLoadTimeRange(task domain.TransferTask, loaded []domain.TimeRange, expected domain.TimeRange) {
	desc, err := domain.ParseTaskDescriptor(task.Description())
	if err != nil {
		m.logger.Debug("Skipping task with malformed descriptor",
			zap.String("task_id", task.ID()),
			zap.String("descriptor", task.Description()))
		return
	}

	loadedSeconds := 0.0
	for _, r := range loaded {
		loadedSeconds += r.Duration.Seconds()
	}
	percentComplete := loadedSeconds * 100 / expected.Duration.Seconds()
	if math.IsNaN(percentComplete) || math.IsInf(percentComplete, 0) {
		return
	}

	percent := int(percentComplete)
	if percent > 100 {
		percent = 100
	}
	if percent < 0 {
		percent = 0
	}

	progress := m.entry(task.ID())
	m.mu.Lock()
	if percent < progress.lastPercent {
		m.mu.Unlock()
		return
	}
	progress.lastPercent = percent
	m.mu.Unlock()

	task.SetDescription(desc.WithPercent(percent).String())

	received := task.BytesReceived()
	total := int64(0)
	if percentComplete > 0 {
		total = int64(float64(received) * 100 / percentComplete)
	}

	event := domain.NewEvent(domain.EventDownloadInProgress, desc.Title, desc.VideoID)
	event.Progression = &domain.AssetDownloadProgression{
		VideoIdentifier:  desc.VideoID,
		DownloadProgress: percent,
		BytesDownloaded:  humanize.Bytes(uint64(received)),
		TotalBytes:       humanize.Bytes(uint64(total)),
	}
	m.bus.Publish(event)

	location := task.Location()
	if percent >= 1 && !progress.cached && location != "" {
		m.cacheLocation(progress, location, desc)
	}

	if percent > m.threshold && !progress.completed && location != "" {
		m.complete(progress, desc, func() error {
			return m.storage.SaveCompleted(location, desc.Title)
		})
	}
}

func (m *DownloadSessionManager) cacheLocation(progress *taskProgress, location string, desc domain.TaskDescriptor) {
	if cached, ok := m.storage.TemporaryLocation(desc.Title); ok && cached == location {
		progress.cached = true
		return
	}

	if _, err := m.storage.Cache(location, desc.Title); err != nil {
		m.logger.Warn("Failed to cache download location",
			zap.String("title", desc.Title),
			zap.String("location", location),
			zap.Error(err))
		return
	}
	progress.cached = true
	m.bus.Publish(domain.NewEvent(domain.EventDownloadCached, desc.Title, desc.VideoID))
}

// complete runs the storage side effects and the finished event once per task
func (m *DownloadSessionManager) complete(progress *taskProgress, desc domain.TaskDescriptor, persist func() error) {
	m.mu.Lock()
	if progress.completed {
		m.mu.Unlock()
		return
	}
	progress.completed = true
	m.mu.Unlock()

	if err := persist(); err != nil {
		m.logger.Warn("Failed to persist completed download, promoting cached bookmark",
			zap.String("title", desc.Title),
			zap.Error(err))
		if err := m.storage.PromoteToCompleted(desc.Title); err != nil {
			m.logger.Error("Failed to promote cached bookmark", zap.String("title", desc.Title), zap.Error(err))
		}
	}

	m.logger.Info("Download finished",
		zap.String("title", desc.Title),
		zap.Float64("video_id", desc.VideoID),
		zap.Time("at", time.Now()))
	m.bus.Publish(domain.NewEvent(domain.EventDownloadFinished, desc.Title, desc.VideoID))
}

// reconcile records the final location of a finished transfer
func (m *DownloadSessionManager) reconcile(progress *taskProgress, location string, desc domain.TaskDescriptor) {
	if progress.completed {
		if location != "" {
			if err := m.storage.SaveCompleted(location, desc.Title); err != nil {
				m.logger.Debug("Failed to refresh completed bookmark", zap.String("title", desc.Title), zap.Error(err))
			}
		}
		return
	}

	m.complete(progress, desc, func() error {
		if location == "" {
			return m.storage.PromoteToCompleted(desc.Title)
		}
		if _, err := m.storage.Cache(location, desc.Title); err != nil {
			return err
		}
		return m.storage.PromoteToCompleted(desc.Title)
	})
}

// DidFinishDownloading reconciles storage with the final location of the task
func (m *DownloadSessionManager) DidFinishDownloading(task domain.TransferTask, location string) {
	desc, err := domain.ParseTaskDescriptor(task.Description())
	if err != nil {
		return
	}
	m.reconcile(m.entry(task.ID()), location, desc)
}

// DidComplete handles the end of a task: success reconciles, an explicit cancel reports
// download_cancelled, a task replaced by a reschedule is ignored and other failures are
// reported without retry
func (m *DownloadSessionManager) DidComplete(task domain.TransferTask, err error) {
	progress := m.entry(task.ID())
	defer func() {
		m.mu.Lock()
		delete(m.progress, task.ID())
		m.mu.Unlock()
	}()

	desc, parseErr := domain.ParseTaskDescriptor(task.Description())
	if parseErr != nil {
		m.logger.Debug("Completed task has malformed descriptor", zap.String("task_id", task.ID()))
		return
	}

	if err == nil {
		m.reconcile(progress, task.Location(), desc)
		return
	}

	m.mu.Lock()
	cancelled, replaced := progress.cancelled, progress.replaced
	m.mu.Unlock()

	switch {
	case replaced:
		m.logger.Debug("Replaced task completed", zap.String("title", desc.Title), zap.String("task_id", task.ID()))
	case cancelled:
		m.bus.Publish(domain.NewEvent(domain.EventDownloadCancelled, desc.Title, desc.VideoID))
	default:
		m.logger.Error("Download failed",
			zap.String("title", desc.Title),
			zap.Float64("video_id", desc.VideoID),
			zap.Int("percent", desc.Percent),
			zap.Error(err))
		m.bus.Publish(domain.NewEvent(domain.EventDownloadFailed, desc.Title, desc.VideoID).WithError(err))
	}
}
