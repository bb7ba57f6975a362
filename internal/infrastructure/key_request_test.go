package infrastructure

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/offline-player-go/internal/domain"
)

func TestEnvelopeCDM_KeyRequestData(t *testing.T) {
	cdm := NewEnvelopeCDM()
	cert := []byte("application certificate")
	contentID := []byte("content-42")

	spc, err := cdm.KeyRequestData(cert, contentID)
	require.NoError(t, err)

	digest := sha256.Sum256(cert)
	require.Len(t, spc, 4+16+32+2+len(contentID))
	assert.Equal(t, spcMagic, spc[:4])
	assert.Equal(t, digest[:], spc[20:52])
	assert.Equal(t, uint16(len(contentID)), binary.BigEndian.Uint16(spc[52:54]))
	assert.Equal(t, contentID, spc[54:])

	again, err := cdm.KeyRequestData(cert, contentID)
	require.NoError(t, err)
	assert.NotEqual(t, spc[4:20], again[4:20], "every request carries a fresh nonce")
}

func TestEnvelopeCDM_KeyRequestDataErrors(t *testing.T) {
	cdm := NewEnvelopeCDM()

	_, err := cdm.KeyRequestData(nil, []byte("content-42"))
	assert.ErrorIs(t, err, domain.ErrMissingCertificate)

	_, err = cdm.KeyRequestData([]byte("cert"), nil)
	assert.ErrorIs(t, err, domain.ErrMissingContentID)
}

func TestEnvelopeCDM_PersistableKey(t *testing.T) {
	cdm := NewEnvelopeCDM()

	key, err := cdm.PersistableKey([]byte("ckc"))
	require.NoError(t, err)
	assert.Equal(t, []byte("PKY1ckc"), key)

	again, err := cdm.PersistableKey(key)
	require.NoError(t, err)
	assert.Equal(t, key, again)

	_, err = cdm.PersistableKey(nil)
	assert.ErrorIs(t, err, errEmptyKeyResponse)
}

func TestKeyLoadingRequest_FinishOnce(t *testing.T) {
	keyURL, _ := url.Parse("skd://content-42")
	req := newKeyLoadingRequest(context.Background(), keyURL, NewEnvelopeCDM())

	req.Respond([]byte("PKY1"))
	req.Respond([]byte("abc"))
	req.Finish(nil)
	req.Finish(assert.AnError)

	data, err := req.wait()
	require.NoError(t, err)
	assert.True(t, bytes.Equal([]byte("PKY1abc"), data))
}

func TestKeyLoadingRequest_EmptyResponse(t *testing.T) {
	keyURL, _ := url.Parse("skd://content-42")
	req := newKeyLoadingRequest(context.Background(), keyURL, NewEnvelopeCDM())
	req.Finish(nil)

	_, err := req.wait()
	assert.ErrorIs(t, err, errEmptyKeyResponse)
}

func TestLoadContentKeys(t *testing.T) {
	loader := &keyLoader{}
	asset := &domain.Asset{URL: "https://cdn.example.com/master.m3u8", ResourceLoader: loader}

	keys, err := loadContentKeys(context.Background(), asset, []string{"skd://a", "skd://b"}, NewEnvelopeCDM())
	require.NoError(t, err)
	assert.Equal(t, []byte("PKY1ckc:a"), keys["skd://a"])
	assert.Equal(t, []byte("PKY1ckc:b"), keys["skd://b"])
	assert.Equal(t, []string{"skd://a", "skd://b"}, loader.requested())
}

func TestLoadContentKeys_NoKeys(t *testing.T) {
	keys, err := loadContentKeys(context.Background(), &domain.Asset{URL: "x"}, nil, NewEnvelopeCDM())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestLoadContentKeys_StopsAtFirstFailure(t *testing.T) {
	loader := &keyLoader{err: assert.AnError}
	asset := &domain.Asset{URL: "https://cdn.example.com/master.m3u8", ResourceLoader: loader}

	_, err := loadContentKeys(context.Background(), asset, []string{"skd://a", "skd://b"}, NewEnvelopeCDM())
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, []string{"skd://a"}, loader.requested())
}

func TestLoadContentKeys_ContextDone(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	asset := &domain.Asset{URL: "https://cdn.example.com/master.m3u8", ResourceLoader: &keyLoader{hold: true}}

	_, err := loadContentKeys(ctx, asset, []string{"skd://a"}, NewEnvelopeCDM())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
