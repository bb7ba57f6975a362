package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/offline-player-go/internal/domain"
	"github.com/yourusername/offline-player-go/pkg/dispatch"
	"go.uber.org/zap"
)

// PlaybackDelegate is told, on the main queue, whether an asset became playable
type PlaybackDelegate interface {
	AssetReady(item domain.PlayerItem)
	AssetFailed(err error)
}

// StatsReporter emits telemetry without reporting failures back
type StatsReporter interface {
	Report(event domain.StatEvent)
}

// PlaybackConfigurator picks the asset to play for a request and loads it
type PlaybackConfigurator struct {
	streaming  domain.StreamingConfig
	storage    *AssetStorage
	downloader *MovieDownloader
	broker     *LicenseBroker
	keyQueue   *dispatch.SerialQueue
	main       *dispatch.SerialQueue
	loader     domain.AssetLoader
	bus        *EventBus
	logger     *zap.Logger
}

// NewPlaybackConfigurator creates a new playback configurator
func NewPlaybackConfigurator(
	streaming domain.StreamingConfig,
	storage *AssetStorage,
	downloader *MovieDownloader,
	broker *LicenseBroker,
	keyQueue *dispatch.SerialQueue,
	main *dispatch.SerialQueue,
	loader domain.AssetLoader,
	bus *EventBus,
	logger *zap.Logger,
) *PlaybackConfigurator {
	return &PlaybackConfigurator{
		streaming:  streaming,
		storage:    storage,
		downloader: downloader,
		broker:     broker,
		keyQueue:   keyQueue,
		main:       main,
		loader:     loader,
		bus:        bus,
		logger:     logger,
	}
}

// Configure resolves req to an asset and starts loading it. The precedence is a completed
// download, then the remote stream in online mode, then a partial download when requested.
// Otherwise a download is scheduled and the delegate hears nothing until it finishes.
func (c *PlaybackConfigurator) Configure(ctx context.Context, req domain.PlaybackRequest, delegate PlaybackDelegate) (domain.AssetResolution, error) {
	desc := domain.NewStreamDescriptor(c.streaming, req.ContentID)
	interceptor := NewAssetInterceptor(desc, req.Title, req.VideoID, c.broker, c.keyQueue, c.bus, c.logger)

	if location, ok := c.storage.CompletedLocation(req.Title); ok {
		c.prepare(ctx, location, domain.ResolutionCompleted, interceptor, delegate)
		return domain.ResolutionCompleted, nil
	}

	if req.Mode == domain.ModeOnline {
		if err := c.broker.ResolveKeyID(ctx, desc); err != nil {
			c.bus.Publish(domain.NewEvent(domain.EventKeyExchangeError, req.Title, req.VideoID).WithError(err))
			return "", fmt.Errorf("failed to resolve key id: %w", err)
		}
		streamURL, err := desc.StreamURL()
		if err != nil {
			return "", err
		}
		c.prepare(ctx, streamURL, domain.ResolutionRemote, interceptor, delegate)
		return domain.ResolutionRemote, nil
	}

	if req.PartiallyDownloaded {
		if location, ok := c.storage.TemporaryLocation(req.Title); ok {
			c.prepare(ctx, location, domain.ResolutionPartial, interceptor, delegate)
			return domain.ResolutionPartial, nil
		}
	}

	events, unsubscribe := c.bus.Subscribe()
	_, err := c.downloader.ScheduleAssetDownload(ctx, domain.DownloadRequest{
		Title:     req.Title,
		ContentID: req.ContentID,
		VideoID:   req.VideoID,
	})
	if err != nil {
		unsubscribe()
		return "", err
	}

	go c.awaitDownload(ctx, req, interceptor, delegate, events, unsubscribe)
	return domain.ResolutionDownloadScheduled, nil
}

func (c *PlaybackConfigurator) awaitDownload(
	ctx context.Context,
	req domain.PlaybackRequest,
	loader domain.ResourceLoaderDelegate,
	delegate PlaybackDelegate,
	events <-chan domain.Event,
	unsubscribe func(),
) {
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if event.VideoID != req.VideoID {
				continue
			}

			switch event.Kind {
			case domain.EventDownloadFinished:
				location, ok := c.storage.CompletedLocation(req.Title)
				if !ok {
					c.fail(delegate, &domain.AssetError{URL: req.Title, Err: domain.ErrLocationUnavailable})
					return
				}
				c.prepare(ctx, location, domain.ResolutionCompleted, loader, delegate)
				return
			case domain.EventDownloadFailed:
				c.fail(delegate, &domain.AssetError{
					URL: req.Title,
					Err: fmt.Errorf("%w: %s", domain.ErrAssetLoadFailed, event.Error),
				})
				return
			case domain.EventDownloadCancelled:
				c.fail(delegate, &domain.AssetError{URL: req.Title, Err: domain.ErrAssetLoadCancelled})
				return
			}
		}
	}
}

// prepare loads the playable key of the asset off the main queue and reports on it
func (c *PlaybackConfigurator) prepare(
	ctx context.Context,
	assetURL string,
	resolution domain.AssetResolution,
	loader domain.ResourceLoaderDelegate,
	delegate PlaybackDelegate,
) {
	asset := &domain.Asset{
		URL:                         assetURL,
		PreloadsEligibleContentKeys: true,
		ResourceLoader:              loader,
	}

	c.logger.Info("Loading asset",
		zap.String("url", assetURL),
		zap.String("resolution", string(resolution)))

	go func() {
		playable, err := c.loader.LoadPlayable(ctx, asset)

		switch {
		case ctx.Err() != nil || errors.Is(err, context.Canceled):
			c.fail(delegate, &domain.AssetError{URL: assetURL, Err: domain.ErrAssetLoadCancelled})
		case err != nil:
			c.fail(delegate, &domain.AssetError{URL: assetURL, Err: fmt.Errorf("%w: %v", domain.ErrAssetLoadFailed, err)})
		case !playable:
			c.fail(delegate, &domain.AssetError{URL: assetURL, Err: domain.ErrAssetNotPlayable})
		default:
			item := domain.PlayerItem{AssetURL: assetURL, Local: asset.IsLocal(), Resolution: resolution}
			c.main.Async(func() { delegate.AssetReady(item) })
		}
	}()
}

func (c *PlaybackConfigurator) fail(delegate PlaybackDelegate, err error) {
	c.logger.Warn("Asset not prepared", zap.Error(err))
	c.main.Async(func() { delegate.AssetFailed(err) })
}

// PlaybackSession tracks one player and maps its state changes to telemetry
type PlaybackSession struct {
	mu             sync.Mutex
	state          domain.PlaybackState
	username       string
	domainName     string
	programVersion string
	stats          StatsReporter
	cancel         context.CancelFunc
	logger         *zap.Logger
}

// State returns a snapshot of the session
func (s *PlaybackSession) State() domain.PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.state
	if s.state.Item != nil {
		item := *s.state.Item
		state.Item = &item
	}
	return state
}

func (s *PlaybackSession) setResolution(resolution domain.AssetResolution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Resolution == "" {
		s.state.Resolution = resolution
	}
}

// AssetReady attaches item to the player
func (s *PlaybackSession) AssetReady(item domain.PlayerItem) {
	s.mu.Lock()
	wasReady := s.state.Status == domain.PlaybackReadyToPlay
	s.state.Status = domain.PlaybackReadyToPlay
	s.state.Item = &item
	s.state.Resolution = item.Resolution
	s.state.Error = ""
	s.mu.Unlock()

	s.logger.Info("Player ready",
		zap.String("session_id", s.state.ID),
		zap.String("url", item.AssetURL),
		zap.String("resolution", string(item.Resolution)))

	if !wasReady {
		s.emit(domain.StatPlayerInit)
	}
}

// AssetFailed moves the session to the failed state
func (s *PlaybackSession) AssetFailed(err error) {
	s.mu.Lock()
	s.state.Status = domain.PlaybackFailed
	s.state.Error = err.Error()
	id := s.state.ID
	s.mu.Unlock()

	s.logger.Error("Playback failed", zap.String("session_id", id), zap.Error(err))
}

// TimeControlStatusChanged maps paused, waiting and playing to their stat types
func (s *PlaybackSession) TimeControlStatusChanged(status domain.TimeControlStatus) error {
	var stat domain.StatType
	switch status {
	case domain.TimeControlPaused:
		stat = domain.StatVideoPause
	case domain.TimeControlWaiting:
		stat = domain.StatSliderChange
	case domain.TimeControlPlaying:
		stat = domain.StatVideoPlay
	default:
		return fmt.Errorf("%w: time control %q", domain.ErrInvalidPlayerEvent, status)
	}

	s.mu.Lock()
	changed := s.state.TimeControlStatus != status
	s.state.TimeControlStatus = status
	s.mu.Unlock()

	if changed {
		s.emit(stat)
	}
	return nil
}

// GravityChanged reports fullscreen on for resizeAspectFill and off otherwise
func (s *PlaybackSession) GravityChanged(gravity domain.VideoGravity) error {
	switch gravity {
	case domain.GravityResizeAspect, domain.GravityResizeAspectFill, domain.GravityResize:
	default:
		return fmt.Errorf("%w: gravity %q", domain.ErrInvalidPlayerEvent, gravity)
	}

	s.mu.Lock()
	changed := s.state.Gravity != gravity
	s.state.Gravity = gravity
	s.mu.Unlock()

	if !changed {
		return nil
	}
	if gravity == domain.GravityResizeAspectFill {
		s.emit(domain.StatFullScreenOn)
	} else {
		s.emit(domain.StatFullScreenOff)
	}
	return nil
}

// VolumeChanged reports a mute for zero and a volume change otherwise
func (s *PlaybackSession) VolumeChanged(volume float64) error {
	if volume < 0 || volume > 1 {
		return fmt.Errorf("%w: volume %v", domain.ErrInvalidPlayerEvent, volume)
	}

	s.mu.Lock()
	changed := s.state.Volume != volume
	s.state.Volume = volume
	s.mu.Unlock()

	if !changed {
		return nil
	}
	if volume == 0 {
		s.emit(domain.StatVolumeMuted)
	} else {
		s.emit(domain.StatVolumeChanged)
	}
	return nil
}

// PlayedToEnd reports the end of the video
func (s *PlaybackSession) PlayedToEnd() {
	s.emit(domain.StatVideoEnd)
}

func (s *PlaybackSession) emit(stat domain.StatType) {
	if s.stats == nil {
		return
	}
	s.stats.Report(domain.StatEvent{
		Type:           stat,
		SessionID:      s.state.ID,
		Username:       s.username,
		DomainName:     s.domainName,
		ProgramVersion: s.programVersion,
		At:             time.Now(),
	})
}

// PlaybackController owns the playback sessions
type PlaybackController struct {
	configurator *PlaybackConfigurator
	stats        StatsReporter
	streaming    domain.StreamingConfig
	logger       *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*PlaybackSession
}

// NewPlaybackController creates a new playback controller
func NewPlaybackController(
	configurator *PlaybackConfigurator,
	stats StatsReporter,
	streaming domain.StreamingConfig,
	logger *zap.Logger,
) *PlaybackController {
	return &PlaybackController{
		configurator: configurator,
		stats:        stats,
		streaming:    streaming,
		logger:       logger,
		sessions:     make(map[string]*PlaybackSession),
	}
}

// Play starts a playback session for req
func (c *PlaybackController) Play(req domain.PlaybackRequest) (domain.PlaybackState, error) {
	if req.Mode == "" {
		req.Mode = domain.ModeOnline
	}
	if !domain.ValidateMode(req.Mode) {
		return domain.PlaybackState{}, fmt.Errorf("%w: %s", domain.ErrInvalidMode, req.Mode)
	}
	download := domain.DownloadRequest{Title: req.Title, ContentID: req.ContentID, VideoID: req.VideoID}
	if err := download.Validate(); err != nil {
		return domain.PlaybackState{}, err
	}

	username := req.Username
	if username == "" {
		username = c.streaming.LicenseUsername
	}

	ctx, cancel := context.WithCancel(context.Background())
	desc := domain.NewStreamDescriptor(c.streaming, req.ContentID)
	session := &PlaybackSession{
		state: domain.PlaybackState{
			ID:        uuid.New().String(),
			Title:     req.Title,
			VideoID:   req.VideoID,
			Mode:      req.Mode,
			Status:    domain.PlaybackLoadingValues,
			Volume:    1,
			CreatedAt: time.Now(),
		},
		username:       username,
		domainName:     c.streaming.DomainName,
		programVersion: desc.ProgramVersion(),
		stats:          c.stats,
		cancel:         cancel,
		logger:         c.logger,
	}

	c.mu.Lock()
	c.sessions[session.state.ID] = session
	c.mu.Unlock()

	resolution, err := c.configurator.Configure(ctx, req, session)
	if err != nil {
		cancel()
		c.mu.Lock()
		delete(c.sessions, session.state.ID)
		c.mu.Unlock()
		return domain.PlaybackState{}, err
	}
	session.setResolution(resolution)

	c.logger.Info("Playback session started",
		zap.String("session_id", session.state.ID),
		zap.String("title", req.Title),
		zap.String("mode", string(req.Mode)),
		zap.String("resolution", string(resolution)))

	return session.State(), nil
}

func (c *PlaybackController) session(id string) (*PlaybackSession, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	session, ok := c.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Get returns the state of a session
func (c *PlaybackController) Get(id string) (domain.PlaybackState, error) {
	session, err := c.session(id)
	if err != nil {
		return domain.PlaybackState{}, err
	}
	return session.State(), nil
}

// List returns every session
func (c *PlaybackController) List() []domain.PlaybackState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	states := make([]domain.PlaybackState, 0, len(c.sessions))
	for _, session := range c.sessions {
		states = append(states, session.State())
	}
	return states
}

// HandleEvent applies a player state change to a session
func (c *PlaybackController) HandleEvent(id string, event domain.PlayerEvent) error {
	session, err := c.session(id)
	if err != nil {
		return err
	}

	switch event.Type {
	case domain.PlayerEventTimeControl:
		return session.TimeControlStatusChanged(domain.TimeControlStatus(event.Value))
	case domain.PlayerEventGravity:
		return session.GravityChanged(domain.VideoGravity(event.Value))
	case domain.PlayerEventVolume:
		volume, err := strconv.ParseFloat(event.Value, 64)
		if err != nil {
			return fmt.Errorf("%w: volume %q", domain.ErrInvalidPlayerEvent, event.Value)
		}
		return session.VolumeChanged(volume)
	case domain.PlayerEventPlayedToEnd:
		session.PlayedToEnd()
		return nil
	default:
		return fmt.Errorf("%w: type %q", domain.ErrInvalidPlayerEvent, event.Type)
	}
}

// Stop ends a session and cancels any pending asset load
func (c *PlaybackController) Stop(id string) error {
	c.mu.Lock()
	session, ok := c.sessions[id]
	delete(c.sessions, id)
	c.mu.Unlock()

	if !ok {
		return domain.ErrSessionNotFound
	}
	session.cancel()
	c.logger.Info("Playback session stopped", zap.String("session_id", id))
	return nil
}

// Close stops every session
func (c *PlaybackController) Close() {
	c.mu.Lock()
	sessions := c.sessions
	c.sessions = make(map[string]*PlaybackSession)
	c.mu.Unlock()

	for _, session := range sessions {
		session.cancel()
	}
}
