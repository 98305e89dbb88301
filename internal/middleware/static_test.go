package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStaticFileServer(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "logos")
	assert.NoError(t, os.Mkdir(dir, 0o755))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "bkash.svg"), []byte("<svg>bkash</svg>"), 0o644))
	assert.NoError(t, os.WriteFile(filepath.Join(base, "secret.txt"), []byte("top secret"), 0o600))

	handler := StaticFileServer(dir)

	t.Run("serves an existing logo", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/bkash.svg", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "<svg>bkash</svg>", rec.Body.String())
	})

	t.Run("missing logo falls back to the placeholder", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/nagad.svg", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Body.String(), "FF ARENA")
	})

	t.Run("parent traversal cannot escape the logo directory", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/bkash.svg", nil)
		req.URL.Path = "../secret.txt"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.NotContains(t, rec.Body.String(), "top secret")
		assert.Contains(t, rec.Body.String(), "FF ARENA")
	})
}
