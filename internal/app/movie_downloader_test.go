package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/offline-player-go/internal/domain"
	"github.com/yourusername/offline-player-go/pkg/dispatch"
	"go.uber.org/zap"
)

func newTestMovieDownloader(t *testing.T, client *mockLicenseClient) (*MovieDownloader, *sessionFixture) {
	t.Helper()
	f := newSessionFixture(t)
	queue := dispatch.NewSerialQueue()
	t.Cleanup(queue.Close)

	broker := NewLicenseBroker(client, newMemoryBookmarks(), zap.NewNop())
	desc := newTestStreamDescriptor(t)
	bus := f.manager.bus

	streaming := domain.StreamingConfig{
		CloudDistributionHost: desc.CloudDistributionHost,
		StorageHost:           desc.StorageHost,
		LicenseHost:           desc.LicenseHost,
		LicenseUsername:       desc.LicenseUsername,
		DomainName:            desc.DomainName,
		CertificatePath:       desc.CertificatePath,
		ProductID:             desc.ProductID,
		TransactionID:         desc.TransactionID,
	}

	downloader := NewMovieDownloader(streaming, broker, f.manager, f.storage, queue, bus, zap.NewNop())
	return downloader, f
}

func TestScheduleAssetDownload(t *testing.T) {
	downloader, f := newTestMovieDownloader(t, &mockLicenseClient{keyIDBody: "key-123\n"})

	info, err := downloader.ScheduleAssetDownload(context.Background(), domain.DownloadRequest{
		Title:     "Show A",
		ContentID: "DW_1-VO",
		VideoID:   42,
	})
	require.NoError(t, err)
	assert.Equal(t, "Show A:42:0", info.Descriptor.String())

	require.Len(t, f.session.tasks, 1)
	asset := f.session.tasks[0].asset
	assert.Equal(t, "https://cdn.example.com/HLS_1-VO-fairplay-download.ism/stream.m3u8", asset.URL)
	_, ok := asset.ResourceLoader.(*AssetInterceptor)
	assert.True(t, ok, "interceptor installed on the asset")
}

func TestScheduleAssetDownload_KeyFailure(t *testing.T) {
	downloader, f := newTestMovieDownloader(t, &mockLicenseClient{keyIDBody: "Access Denied"})

	_, err := downloader.ScheduleAssetDownload(context.Background(), domain.DownloadRequest{
		Title:     "Show A",
		ContentID: "DW_1-VO",
		VideoID:   42,
	})
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
	assert.Empty(t, f.session.tasks)

	events := f.drain()
	require.Equal(t, []domain.EventKind{domain.EventKeyExchangeError}, kinds(events))
	assert.Equal(t, 42.0, events[0].VideoID)
}

func TestScheduleAssetDownload_InvalidRequest(t *testing.T) {
	downloader, f := newTestMovieDownloader(t, &mockLicenseClient{keyIDBody: "key"})

	_, err := downloader.ScheduleAssetDownload(context.Background(), domain.DownloadRequest{Title: "Show A"})
	assert.ErrorIs(t, err, domain.ErrMissingContentID)
	assert.Empty(t, f.session.tasks)
}

func TestMovieDownloader_Controls(t *testing.T) {
	downloader, f := newTestMovieDownloader(t, &mockLicenseClient{keyIDBody: "key"})
	_, err := downloader.ScheduleAssetDownload(context.Background(), domain.DownloadRequest{
		Title:     "Show A",
		ContentID: "DW_1-VO",
		VideoID:   42,
	})
	require.NoError(t, err)

	assert.False(t, downloader.Resume("Show A"))
	assert.True(t, downloader.Pause("Show A"))
	assert.True(t, downloader.Resume("Show A"))
	assert.Len(t, downloader.Downloads(), 1)

	task := f.session.tasks[0]
	f.bookmarker.add(task.location)
	_, err = f.storage.Cache(task.location, "Show A")
	require.NoError(t, err)
	require.NoError(t, f.storage.SaveCompleted(task.location, "Show A"))

	require.NoError(t, downloader.Remove("Show A"))
	assert.Equal(t, 1, task.cancels)
	assert.Equal(t, []string{task.location}, f.bookmarker.discarded, "the shared location is deleted once")
	_, ok := f.storage.TemporaryLocation("Show A")
	assert.False(t, ok)
	_, ok = f.storage.CompletedLocation("Show A")
	assert.False(t, ok)

	assert.ErrorIs(t, downloader.Remove("a:b"), domain.ErrMalformedDescriptor)
}
