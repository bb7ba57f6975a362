package app

import (
	"github.com/yourusername/offline-player-go/internal/domain"
	"github.com/yourusername/offline-player-go/pkg/dispatch"
	"github.com/yourusername/offline-player-go/pkg/logger"
	"go.uber.org/zap"
)

// TransferFactory creates the transfer session; callbacks must be delivered on queue
type TransferFactory func(delegate domain.TransferDelegate, queue *dispatch.SerialQueue) domain.TransferSession

// Adapters are the outside-world implementations the runtime is assembled from
type Adapters struct {
	Bookmarks  domain.BookmarkRepository
	Keys       domain.ContentKeyRepository
	Bookmarker domain.Bookmarker
	License    LicenseClient
	Transfer   TransferFactory
	Loader     domain.AssetLoader
	Stats      StatsReporter
}

// Runtime owns the long-lived services and the queues they share
type Runtime struct {
	Bus        *EventBus
	Storage    *AssetStorage
	Broker     *LicenseBroker
	Sessions   *DownloadSessionManager
	Downloader *MovieDownloader
	Playback   *PlaybackController

	delegateQueue *dispatch.SerialQueue
	keyQueue      *dispatch.SerialQueue
	mainQueue     *dispatch.SerialQueue
	logs          *logger.LoggerAdapter
}

// NewRuntime wires the services for config
func NewRuntime(config *domain.Config, adapters Adapters, logs *logger.LoggerAdapter) *Runtime {
	if logs == nil {
		logs = logger.NewLoggerAdapter(zap.NewNop(), nil)
	}

	r := &Runtime{
		delegateQueue: dispatch.NewSerialQueue(),
		keyQueue:      dispatch.NewSerialQueue(),
		mainQueue:     dispatch.NewSerialQueue(),
		logs:          logs,
	}

	r.Bus = NewEventBus(logs.General())
	r.Storage = NewAssetStorage(adapters.Bookmarks, adapters.Bookmarker, config.Download.MinimumBitrate, logs.Download())
	r.Broker = NewLicenseBroker(adapters.License, adapters.Keys, logs.License())

	r.Sessions = NewDownloadSessionManager(func(delegate domain.TransferDelegate) domain.TransferSession {
		return adapters.Transfer(delegate, r.delegateQueue)
	}, r.Storage, r.Bus, config.Download, logs.Download())

	r.Downloader = NewMovieDownloader(config.Streaming, r.Broker, r.Sessions, r.Storage, r.keyQueue, r.Bus, logs.Download())

	configurator := NewPlaybackConfigurator(
		config.Streaming,
		r.Storage,
		r.Downloader,
		r.Broker,
		r.keyQueue,
		r.mainQueue,
		adapters.Loader,
		r.Bus,
		logs.Playback(),
	)
	r.Playback = NewPlaybackController(configurator, adapters.Stats, config.Streaming, logs.Playback())

	return r
}

// Close stops playback sessions, drains the queues and closes the event bus
func (r *Runtime) Close() {
	r.Playback.Close()
	r.delegateQueue.Close()
	r.keyQueue.Close()
	r.mainQueue.Close()
	r.Bus.Close()
	r.logs.General().Info("Runtime stopped")
}
