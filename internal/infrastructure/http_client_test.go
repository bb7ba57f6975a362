package infrastructure

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/offline-player-go/internal/domain"
)

// trickle sends headers at once and the body in slow chunks
func trickle(w http.ResponseWriter, r *http.Request) {
	flusher := w.(http.Flusher)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	for i := 0; i < 3; i++ {
		select {
		case <-time.After(80 * time.Millisecond):
		case <-r.Context().Done():
			return
		}
		w.Write([]byte("seg"))
		flusher.Flush()
	}
}

func TestStream_SlowBodyOutlivesTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(trickle))
	defer server.Close()

	client := NewHTTPClient(WithTimeout(100 * time.Millisecond))
	body, _, err := client.Stream(context.Background(), server.URL+"/segment-1.ts")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "segsegseg", string(data))
}

func TestStream_HeaderTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	client := NewHTTPClient(WithTimeout(50 * time.Millisecond))
	_, _, err := client.Stream(context.Background(), server.URL)
	assert.True(t, domain.IsTransportError(err))
}

func TestDo_TimeoutBoundsWholeRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(trickle))
	defer server.Close()

	client := NewHTTPClient(WithTimeout(100 * time.Millisecond))
	_, err := client.Do(context.Background(), http.MethodGet, server.URL, "", nil)
	assert.True(t, domain.IsTransportError(err))

	unbounded := NewHTTPClient()
	resp, err := unbounded.Do(context.Background(), http.MethodGet, server.URL, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "segsegseg", string(resp.Body))
}
