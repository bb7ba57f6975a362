package infrastructure

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/yourusername/offline-player-go/internal/domain"
)

var (
	spcMagic  = []byte("SPC1")
	pkeyMagic = []byte("PKY1")

	errKeyRequestDeclined = errors.New("resource loader declined key request")
	errEmptyKeyResponse   = errors.New("empty key response")
)

// EnvelopeCDM is a software content decryption module. The SPC it produces carries a
// random nonce, the certificate digest and the content id; persistable keys wrap the
// license response with a header.
type EnvelopeCDM struct{}

// NewEnvelopeCDM creates a new envelope CDM
func NewEnvelopeCDM() *EnvelopeCDM {
	return &EnvelopeCDM{}
}

// KeyRequestData builds the SPC sent to the license server
func (c *EnvelopeCDM) KeyRequestData(certificate, contentID []byte) ([]byte, error) {
	if len(certificate) == 0 {
		return nil, domain.ErrMissingCertificate
	}
	if len(contentID) == 0 {
		return nil, domain.ErrMissingContentID
	}

	nonce := uuid.New()
	digest := sha256.Sum256(certificate)

	var buf bytes.Buffer
	buf.Write(spcMagic)
	buf.Write(nonce[:])
	buf.Write(digest[:])
	binary.Write(&buf, binary.BigEndian, uint16(len(contentID)))
	buf.Write(contentID)
	return buf.Bytes(), nil
}

// PersistableKey wraps a license response into a key that can be stored
func (c *EnvelopeCDM) PersistableKey(response []byte) ([]byte, error) {
	if len(response) == 0 {
		return nil, errEmptyKeyResponse
	}
	if bytes.HasPrefix(response, pkeyMagic) {
		return response, nil
	}
	return append(append([]byte(nil), pkeyMagic...), response...), nil
}

// keyLoadingRequest is handed to a resource loader when a playlist needs a key
type keyLoadingRequest struct {
	ctx  context.Context
	url  *url.URL
	cdm  domain.ContentDecryptionModule
	once sync.Once
	done chan struct{}

	mu   sync.Mutex
	data []byte
	err  error
}

func newKeyLoadingRequest(ctx context.Context, keyURL *url.URL, cdm domain.ContentDecryptionModule) *keyLoadingRequest {
	return &keyLoadingRequest{ctx: ctx, url: keyURL, cdm: cdm, done: make(chan struct{})}
}

func (r *keyLoadingRequest) Context() context.Context { return r.ctx }
func (r *keyLoadingRequest) URL() *url.URL            { return r.url }

func (r *keyLoadingRequest) ContentKeyRequestData(certificate, contentID []byte) ([]byte, error) {
	return r.cdm.KeyRequestData(certificate, contentID)
}

func (r *keyLoadingRequest) PersistentContentKey(response []byte) ([]byte, error) {
	return r.cdm.PersistableKey(response)
}

func (r *keyLoadingRequest) Respond(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = append(r.data, data...)
}

func (r *keyLoadingRequest) Finish(err error) {
	r.once.Do(func() {
		r.mu.Lock()
		r.err = err
		r.mu.Unlock()
		close(r.done)
	})
}

// wait blocks until the request is finished or ctx is done
func (r *keyLoadingRequest) wait() ([]byte, error) {
	select {
	case <-r.done:
	case <-r.ctx.Done():
		return nil, r.ctx.Err()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	if len(r.data) == 0 {
		return nil, errEmptyKeyResponse
	}
	return r.data, nil
}

// loadContentKeys asks the asset's resource loader for every key URI and returns the
// keys by URI. The first failure aborts.
func loadContentKeys(ctx context.Context, asset *domain.Asset, uris []string, cdm domain.ContentDecryptionModule) (map[string][]byte, error) {
	keys := make(map[string][]byte, len(uris))
	if len(uris) == 0 {
		return keys, nil
	}
	if asset.ResourceLoader == nil {
		return nil, fmt.Errorf("asset %s needs %d keys but has no resource loader", asset.URL, len(uris))
	}

	for _, raw := range uris {
		keyURL, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid key uri %q: %w", raw, err)
		}

		req := newKeyLoadingRequest(ctx, keyURL, cdm)
		if !asset.ResourceLoader.ShouldWaitForLoading(req) {
			return nil, fmt.Errorf("%s: %w", raw, errKeyRequestDeclined)
		}
		key, err := req.wait()
		if err != nil {
			return nil, fmt.Errorf("failed to load key %s: %w", raw, err)
		}
		keys[raw] = key
	}
	return keys, nil
}
