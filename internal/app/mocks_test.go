package app

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/yourusername/offline-player-go/internal/domain"
)

// memoryBookmarks implements domain.BookmarkRepository and domain.ContentKeyRepository for testing
type memoryBookmarks struct {
	mu   sync.Mutex
	data map[string][]byte
	keys map[string][]byte
	puts int
}

func newMemoryBookmarks() *memoryBookmarks {
	return &memoryBookmarks{data: make(map[string][]byte), keys: make(map[string][]byte)}
}

func (m *memoryBookmarks) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	m.puts++
	return nil
}

func (m *memoryBookmarks) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryBookmarks) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memoryBookmarks) Keys(prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memoryBookmarks) SaveContentKey(assetID string, key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[assetID] = append([]byte(nil), key...)
	return nil
}

func (m *memoryBookmarks) FindContentKey(assetID string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.keys[assetID]
	return k, ok, nil
}

func (m *memoryBookmarks) DeleteContentKey(assetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, assetID)
	return nil
}

func (m *memoryBookmarks) value(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *memoryBookmarks) contentKeyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}

// fakeBookmarker bookmarks any location in its live set
type fakeBookmarker struct {
	mu        sync.Mutex
	live      map[string]bool
	discarded []string
}

func newFakeBookmarker(locations ...string) *fakeBookmarker {
	b := &fakeBookmarker{live: make(map[string]bool)}
	for _, l := range locations {
		b.live[l] = true
	}
	return b
}

func (b *fakeBookmarker) add(location string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.live[location] = true
}

func (b *fakeBookmarker) drop(location string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.live, location)
}

func (b *fakeBookmarker) Bookmark(location string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.live[location] {
		return nil, domain.ErrLocationUnavailable
	}
	return []byte("bookmark:" + location), nil
}

func (b *fakeBookmarker) Resolve(data []byte) (string, bool, error) {
	location := strings.TrimPrefix(string(data), "bookmark:")
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.live[location] {
		return "", false, domain.ErrLocationUnavailable
	}
	return location, false, nil
}

func (b *fakeBookmarker) Discard(location string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.live, location)
	b.discarded = append(b.discarded, location)
	return nil
}

// mockLicenseClient implements LicenseClient
type mockLicenseClient struct {
	mu          sync.Mutex
	keyIDBody   string
	keyIDErr    error
	license     []byte
	licenseErr  error
	keyIDCalls  int
	licenseURLs []string
	spcs        [][]byte
	block       chan struct{}
}

func (m *mockLicenseClient) FetchKeyID(ctx context.Context, rawURL string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keyIDCalls++
	return m.keyIDBody, m.keyIDErr
}

func (m *mockLicenseClient) RequestLicense(ctx context.Context, rawURL string, spc []byte) ([]byte, error) {
	m.mu.Lock()
	m.licenseURLs = append(m.licenseURLs, rawURL)
	m.spcs = append(m.spcs, spc)
	block := m.block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.license, m.licenseErr
}

func (m *mockLicenseClient) licenseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.licenseURLs)
}

// fakeLoadingRequest implements domain.LoadingRequest
type fakeLoadingRequest struct {
	ctx          context.Context
	url          *url.URL
	spcErr       error
	persistErr   error
	mu           sync.Mutex
	responses    [][]byte
	finishErrs   []error
	finishCount  int
	finished     chan struct{}
	gotCert      []byte
	gotContentID []byte
}

func newFakeLoadingRequest(ctx context.Context, raw string) *fakeLoadingRequest {
	u, _ := url.Parse(raw)
	return &fakeLoadingRequest{ctx: ctx, url: u, finished: make(chan struct{})}
}

func (r *fakeLoadingRequest) Context() context.Context { return r.ctx }
func (r *fakeLoadingRequest) URL() *url.URL            { return r.url }

func (r *fakeLoadingRequest) ContentKeyRequestData(cert, contentID []byte) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gotCert = cert
	r.gotContentID = contentID
	if r.spcErr != nil {
		return nil, r.spcErr
	}
	return append([]byte("spc:"), contentID...), nil
}

func (r *fakeLoadingRequest) PersistentContentKey(response []byte) ([]byte, error) {
	if r.persistErr != nil {
		return nil, r.persistErr
	}
	return append([]byte("persistent:"), response...), nil
}

func (r *fakeLoadingRequest) Respond(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, data)
}

func (r *fakeLoadingRequest) Finish(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishCount++
	r.finishErrs = append(r.finishErrs, err)
	if r.finishCount == 1 {
		close(r.finished)
	}
}

func (r *fakeLoadingRequest) result() ([][]byte, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.responses, r.finishErrs
}

var errBoom = errors.New("boom")
