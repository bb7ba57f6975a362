package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/offline-player-go/internal/domain"
	"github.com/yourusername/offline-player-go/pkg/dispatch"
	"go.uber.org/zap"
)

const testKeyURL = "skd://HLS_1-VO;asset-1"

type interceptorFixture struct {
	interceptor *AssetInterceptor
	client      *mockLicenseClient
	keys        *memoryBookmarks
	desc        *domain.StreamDescriptor
	events      <-chan domain.Event
}

func newInterceptorFixture(t *testing.T, client *mockLicenseClient) *interceptorFixture {
	t.Helper()
	keys := newMemoryBookmarks()
	broker := NewLicenseBroker(client, keys, zap.NewNop())
	queue := dispatch.NewSerialQueue()
	t.Cleanup(queue.Close)
	bus := NewEventBus(zap.NewNop())
	events, unsubscribe := bus.Subscribe()
	t.Cleanup(unsubscribe)

	desc := newTestStreamDescriptor(t)
	desc.FairplayKeyID = "key-123"

	return &interceptorFixture{
		interceptor: NewAssetInterceptor(desc, "Show A", 42, broker, queue, bus, zap.NewNop()),
		client:      client,
		keys:        keys,
		desc:        desc,
		events:      events,
	}
}

func waitFinished(t *testing.T, req *fakeLoadingRequest) {
	t.Helper()
	select {
	case <-req.finished:
	case <-time.After(2 * time.Second):
		t.Fatal("loading request never finished")
	}
}

func requireKeyCode(t *testing.T, err error, code int) {
	t.Helper()
	var keyErr *domain.KeyError
	require.True(t, errors.As(err, &keyErr), "expected KeyError, got %v", err)
	assert.Equal(t, code, keyErr.Code)
}

func TestInterceptor_ServesLocalKey(t *testing.T) {
	f := newInterceptorFixture(t, &mockLicenseClient{license: []byte("ckc")})
	require.NoError(t, f.keys.SaveContentKey("asset-1", []byte("stored-key")))

	req := newFakeLoadingRequest(context.Background(), testKeyURL)
	assert.True(t, f.interceptor.ShouldWaitForLoading(req))
	waitFinished(t, req)

	responses, errs := req.result()
	assert.Equal(t, [][]byte{[]byte("stored-key")}, responses)
	assert.Equal(t, []error{nil}, errs)
	assert.Zero(t, f.client.licenseCalls())
}

func TestInterceptor_ServesRemotelyAndPersists(t *testing.T) {
	f := newInterceptorFixture(t, &mockLicenseClient{license: []byte("ckc")})

	req := newFakeLoadingRequest(context.Background(), testKeyURL)
	assert.True(t, f.interceptor.ShouldWaitForLoading(req))
	waitFinished(t, req)

	responses, errs := req.result()
	assert.Equal(t, [][]byte{[]byte("persistent:ckc")}, responses)
	assert.Equal(t, []error{nil}, errs)

	stored, ok, err := f.keys.FindContentKey("asset-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("persistent:ckc"), stored)

	assert.Equal(t, []byte("certificate"), req.gotCert)
	assert.Equal(t, []byte("HLS_1-VO"), req.gotContentID)
	assert.Equal(t, []byte("spc:HLS_1-VO"), f.client.spcs[0])
}

func TestInterceptor_RespondsRawPayloadWhenNotPersistable(t *testing.T) {
	f := newInterceptorFixture(t, &mockLicenseClient{license: []byte("ckc")})

	req := newFakeLoadingRequest(context.Background(), testKeyURL)
	req.persistErr = errors.New("not persistable")
	f.interceptor.ShouldWaitForLoading(req)
	waitFinished(t, req)

	responses, _ := req.result()
	assert.Equal(t, [][]byte{[]byte("ckc")}, responses)
	assert.Zero(t, f.keys.contentKeyCount())
}

func TestInterceptor_MissingLicenseURL(t *testing.T) {
	f := newInterceptorFixture(t, &mockLicenseClient{license: []byte("ckc")})
	f.desc.FairplayKeyID = ""

	req := newFakeLoadingRequest(context.Background(), testKeyURL)
	f.interceptor.ShouldWaitForLoading(req)
	waitFinished(t, req)

	responses, errs := req.result()
	assert.Empty(t, responses)
	require.Len(t, errs, 1)
	requireKeyCode(t, errs[0], domain.KeyCodeMissingURL)
	assert.Zero(t, f.client.licenseCalls())

	select {
	case event := <-f.events:
		assert.Equal(t, domain.EventKeyExchangeError, event.Kind)
		assert.Equal(t, 42.0, event.VideoID)
		assert.NotEmpty(t, event.Error)
	case <-time.After(time.Second):
		t.Fatal("key_exchange_error not published")
	}
}

func TestInterceptor_MissingScheme(t *testing.T) {
	f := newInterceptorFixture(t, &mockLicenseClient{license: []byte("ckc")})

	req := newFakeLoadingRequest(context.Background(), "HLS_1-VO;asset-1")
	f.interceptor.ShouldWaitForLoading(req)
	waitFinished(t, req)

	_, errs := req.result()
	requireKeyCode(t, errs[0], domain.KeyCodeMissingURL)
}

func TestInterceptor_MissingCertificate(t *testing.T) {
	f := newInterceptorFixture(t, &mockLicenseClient{license: []byte("ckc")})
	f.desc.CertificatePath = ""

	req := newFakeLoadingRequest(context.Background(), testKeyURL)
	f.interceptor.ShouldWaitForLoading(req)
	waitFinished(t, req)

	_, errs := req.result()
	requireKeyCode(t, errs[0], domain.KeyCodeRequestData)
	assert.ErrorIs(t, errs[0], domain.ErrMissingCertificate)
}

func TestInterceptor_SPCFailure(t *testing.T) {
	f := newInterceptorFixture(t, &mockLicenseClient{license: []byte("ckc")})

	req := newFakeLoadingRequest(context.Background(), testKeyURL)
	req.spcErr = errBoom
	f.interceptor.ShouldWaitForLoading(req)
	waitFinished(t, req)

	_, errs := req.result()
	requireKeyCode(t, errs[0], domain.KeyCodeRequestData)
}

func TestInterceptor_LicenseFailure(t *testing.T) {
	f := newInterceptorFixture(t, &mockLicenseClient{licenseErr: &domain.TransportError{Op: "license", Err: errBoom}})

	req := newFakeLoadingRequest(context.Background(), testKeyURL)
	f.interceptor.ShouldWaitForLoading(req)
	waitFinished(t, req)

	_, errs := req.result()
	requireKeyCode(t, errs[0], domain.KeyCodeLicenseRequest)
	assert.True(t, domain.IsTransportError(errs[0]))
	assert.Zero(t, f.keys.contentKeyCount())
}

func TestInterceptor_CancelledRequestDoesNotPersist(t *testing.T) {
	client := &mockLicenseClient{license: []byte("ckc"), block: make(chan struct{})}
	f := newInterceptorFixture(t, client)

	ctx, cancel := context.WithCancel(context.Background())
	req := newFakeLoadingRequest(ctx, testKeyURL)
	f.interceptor.ShouldWaitForLoading(req)

	require.Eventually(t, func() bool { return client.licenseCalls() == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	waitFinished(t, req)

	responses, errs := req.result()
	assert.Empty(t, responses)
	assert.ErrorIs(t, errs[0], domain.ErrRequestCancelled)
	assert.Zero(t, f.keys.contentKeyCount())
}

func TestInterceptor_IndependentRequests(t *testing.T) {
	f := newInterceptorFixture(t, &mockLicenseClient{license: []byte("ckc")})
	f.desc.CertificatePath = ""
	require.NoError(t, f.keys.SaveContentKey("asset-2", []byte("stored")))

	failing := newFakeLoadingRequest(context.Background(), testKeyURL)
	served := newFakeLoadingRequest(context.Background(), "skd://HLS_1-VO;asset-2")
	f.interceptor.ShouldWaitForLoading(failing)
	f.interceptor.ShouldWaitForLoading(served)
	waitFinished(t, failing)
	waitFinished(t, served)

	_, failErrs := failing.result()
	assert.Error(t, failErrs[0])
	responses, servedErrs := served.result()
	assert.NoError(t, servedErrs[0])
	assert.Equal(t, [][]byte{[]byte("stored")}, responses)
}
