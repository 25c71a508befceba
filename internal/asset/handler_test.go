package asset

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetServe(t *testing.T) {
	h := NewHandler(t.TempDir())
	key := Key("snap_01", 320, 200)
	assert.Equal(t, "snap_01_320x200.png", key)

	_, err := h.Get(key)
	assert.ErrorIs(t, err, ErrNotCached)

	require.NoError(t, h.Put(key, []byte("png-bytes")))
	data, err := h.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	rec := httptest.NewRecorder()
	h.Serve().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, h.URL(key), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Cache-Control"), "immutable")
	assert.Equal(t, "png-bytes", rec.Body.String())
}

func TestKeysCannotEscapeDir(t *testing.T) {
	assert.Equal(t, "passwd_1x1.png", Key("../../etc/passwd", 1, 1))
	assert.Equal(t, "a-b", sanitize("a b"))
}

func TestDeletePrefix(t *testing.T) {
	h := NewHandler(t.TempDir())
	require.NoError(t, h.Put(Key("snap_a", 1, 1), []byte("1")))
	require.NoError(t, h.Put(Key("snap_a", 2, 2), []byte("2")))
	require.NoError(t, h.Put(Key("snap_b", 1, 1), []byte("3")))

	require.NoError(t, h.DeletePrefix("snap_a_"))

	_, err := h.Get(Key("snap_a", 1, 1))
	assert.ErrorIs(t, err, ErrNotCached)
	_, err = h.Get(Key("snap_b", 1, 1))
	assert.NoError(t, err)
}
