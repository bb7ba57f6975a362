package app

import (
	"context"
	"fmt"

	"github.com/yourusername/offline-player-go/internal/domain"
	"github.com/yourusername/offline-player-go/pkg/dispatch"
	"go.uber.org/zap"
)

// MovieDownloader resolves the key identifier of a movie, then hands its stream to the
// download session manager with an interceptor serving its keys
type MovieDownloader struct {
	streaming domain.StreamingConfig
	broker    *LicenseBroker
	sessions  *DownloadSessionManager
	storage   *AssetStorage
	keyQueue  *dispatch.SerialQueue
	bus       *EventBus
	logger    *zap.Logger
}

// NewMovieDownloader creates a new movie downloader
func NewMovieDownloader(
	streaming domain.StreamingConfig,
	broker *LicenseBroker,
	sessions *DownloadSessionManager,
	storage *AssetStorage,
	keyQueue *dispatch.SerialQueue,
	bus *EventBus,
	logger *zap.Logger,
) *MovieDownloader {
	return &MovieDownloader{
		streaming: streaming,
		broker:    broker,
		sessions:  sessions,
		storage:   storage,
		keyQueue:  keyQueue,
		bus:       bus,
		logger:    logger,
	}
}

// ScheduleAssetDownload starts downloading req. A failed key resolution publishes a
// key_exchange_error event and schedules nothing.
func (d *MovieDownloader) ScheduleAssetDownload(ctx context.Context, req domain.DownloadRequest) (domain.TaskInfo, error) {
	if err := req.Validate(); err != nil {
		return domain.TaskInfo{}, err
	}

	desc := domain.NewStreamDescriptor(d.streaming, req.ContentID)
	if err := d.broker.ResolveKeyID(ctx, desc); err != nil {
		d.logger.Error("Failed to resolve key id",
			zap.String("title", req.Title),
			zap.String("content_id", req.ContentID),
			zap.Error(err))
		d.bus.Publish(domain.NewEvent(domain.EventKeyExchangeError, req.Title, req.VideoID).WithError(err))
		return domain.TaskInfo{}, fmt.Errorf("failed to resolve key id: %w", err)
	}

	streamURL, err := desc.StreamURL()
	if err != nil {
		d.bus.Publish(domain.NewEvent(domain.EventKeyExchangeError, req.Title, req.VideoID).WithError(err))
		return domain.TaskInfo{}, err
	}

	interceptor := NewAssetInterceptor(desc, req.Title, req.VideoID, d.broker, d.keyQueue, d.bus, d.logger)
	return d.sessions.Schedule(streamURL, req.Title, req.VideoID, interceptor)
}

// Pause suspends the download of title
func (d *MovieDownloader) Pause(title string) bool {
	return d.sessions.Pause(title)
}

// Resume resumes the download of title and reports whether a suspended task was found
func (d *MovieDownloader) Resume(title string) bool {
	found := false
	d.sessions.Resume(title, func(ok bool) { found = ok })
	return found
}

// Cancel cancels the download of title
func (d *MovieDownloader) Cancel(title string) bool {
	return d.sessions.Cancel(title)
}

// Remove cancels any download of title, deletes its media and forgets its bookmarks
func (d *MovieDownloader) Remove(title string) error {
	if err := domain.ValidateTitle(title); err != nil {
		return err
	}
	d.sessions.Cancel(title)

	if err := d.storage.Discard(title); err != nil {
		return err
	}

	if err := d.storage.Remove(title); err != nil {
		return err
	}
	if err := d.storage.RemoveCompleted(title); err != nil {
		return err
	}

	d.logger.Info("Removed downloaded movie", zap.String("title", title))
	return nil
}

// CompletedDownloads maps downloaded titles to their local location
func (d *MovieDownloader) CompletedDownloads() (map[string]string, error) {
	return d.storage.CompletedDownloads()
}

// Downloads lists the known download tasks
func (d *MovieDownloader) Downloads() []domain.TaskInfo {
	return d.sessions.Tasks()
}
