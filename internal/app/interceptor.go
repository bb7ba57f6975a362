package app

import (
	"sync"

	"github.com/yourusername/offline-player-go/internal/domain"
	"github.com/yourusername/offline-player-go/pkg/dispatch"
	"go.uber.org/zap"
)

// AssetInterceptor serves key loading requests for one stream, from the key cache or
// through the license broker. All requests are handled on one serial queue shared by
// every interceptor so key cache reads and writes never interleave.
type AssetInterceptor struct {
	desc    *domain.StreamDescriptor
	title   string
	videoID float64
	broker  *LicenseBroker
	queue   *dispatch.SerialQueue
	bus     *EventBus
	logger  *zap.Logger
}

// NewAssetInterceptor creates an interceptor for desc
func NewAssetInterceptor(
	desc *domain.StreamDescriptor,
	title string,
	videoID float64,
	broker *LicenseBroker,
	queue *dispatch.SerialQueue,
	bus *EventBus,
	logger *zap.Logger,
) *AssetInterceptor {
	return &AssetInterceptor{
		desc:    desc,
		title:   title,
		videoID: videoID,
		broker:  broker,
		queue:   queue,
		bus:     bus,
		logger:  logger,
	}
}

// ShouldWaitForLoading takes ownership of req and handles it asynchronously
func (i *AssetInterceptor) ShouldWaitForLoading(req domain.LoadingRequest) bool {
	pending := &pendingKeyRequest{req: req}
	return i.queue.Async(func() { i.handle(pending) })
}

// pendingKeyRequest is the single terminal point of a loading request
type pendingKeyRequest struct {
	req  domain.LoadingRequest
	once sync.Once
}

func (p *pendingKeyRequest) finish(data []byte, err error) bool {
	finished := false
	p.once.Do(func() {
		if err == nil {
			p.req.Respond(data)
		}
		p.req.Finish(err)
		finished = true
	})
	return finished
}

func (i *AssetInterceptor) handle(p *pendingKeyRequest) {
	u := p.req.URL()
	if u == nil || u.Scheme == "" {
		i.fail(p, "", &domain.KeyError{Code: domain.KeyCodeMissingURL, Err: domain.ErrMissingLicenseURL})
		return
	}

	assetID := domain.AssetIDFromKeyURL(u)
	if key, ok := i.broker.CachedKey(assetID); ok {
		i.logger.Debug("Serving local key", zap.String("asset_id", assetID))
		p.finish(key, nil)
		return
	}

	if _, err := i.desc.LicenseURL(); err != nil {
		i.fail(p, assetID, &domain.KeyError{Code: domain.KeyCodeMissingURL, Err: err})
		return
	}

	cert, err := i.broker.Certificate(i.desc)
	if err != nil {
		i.fail(p, assetID, &domain.KeyError{Code: domain.KeyCodeRequestData, Err: err})
		return
	}

	contentID := domain.ContentIDFromKeyURL(u)
	if contentID == "" {
		i.fail(p, assetID, &domain.KeyError{Code: domain.KeyCodeRequestData, Err: domain.ErrMissingContentID})
		return
	}

	spc, err := p.req.ContentKeyRequestData(cert, []byte(contentID))
	if err != nil {
		i.fail(p, assetID, &domain.KeyError{Code: domain.KeyCodeRequestData, Err: err})
		return
	}

	ctx := p.req.Context()
	go func() {
		payload, err := i.broker.ExchangeLicense(ctx, i.desc, spc)
		if !i.queue.Async(func() { i.complete(p, assetID, payload, err) }) {
			p.finish(nil, domain.ErrRequestCancelled)
		}
	}()
}

func (i *AssetInterceptor) complete(p *pendingKeyRequest, assetID string, payload []byte, err error) {
	if ctxErr := p.req.Context().Err(); ctxErr != nil {
		i.logger.Debug("Dropping license response for cancelled request", zap.String("asset_id", assetID))
		p.finish(nil, domain.ErrRequestCancelled)
		return
	}

	if err != nil {
		i.fail(p, assetID, &domain.KeyError{Code: domain.KeyCodeLicenseRequest, Err: err})
		return
	}

	persistent, perr := p.req.PersistentContentKey(payload)
	if perr != nil {
		i.logger.Debug("License response is not persistable, serving raw payload",
			zap.String("asset_id", assetID),
			zap.Error(perr))
		p.finish(payload, nil)
		return
	}

	if err := i.broker.StoreKey(assetID, persistent); err != nil {
		i.logger.Warn("Failed to persist content key", zap.String("asset_id", assetID), zap.Error(err))
	}
	p.finish(persistent, nil)
}

func (i *AssetInterceptor) fail(p *pendingKeyRequest, assetID string, err error) {
	if !p.finish(nil, err) {
		return
	}
	i.logger.Warn("Key request failed",
		zap.String("title", i.title),
		zap.String("asset_id", assetID),
		zap.Error(err))
	if i.bus != nil {
		i.bus.Publish(domain.NewEvent(domain.EventKeyExchangeError, i.title, i.videoID).WithError(err))
	}
}
