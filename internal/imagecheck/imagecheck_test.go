package imagecheck

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/typed.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
	})
	mux.HandleFunc("/generic.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		if r.Method == http.MethodGet {
			assert.Equal(t, "bytes=0-511", r.Header.Get("Range"))
			_, _ = w.Write(pngHeader)
		}
	})
	mux.HandleFunc("/no-head.png", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write(pngHeader)
	})
	mux.HandleFunc("/page.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	})
	mux.HandleFunc("/fake.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte("<html><body>not an image</body></html>"))
		}
	})
	mux.HandleFunc("/slow.jpg", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
		w.Header().Set("Content-Type", "image/jpeg")
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestChecker_Available(t *testing.T) {
	srv := imageServer(t)
	checker := NewChecker(srv.Client(), 100*time.Millisecond, "Mozilla/5.0", slog.Default())

	tests := []struct {
		path string
		want bool
	}{
		{path: "/typed.jpg", want: true},
		{path: "/generic.png", want: true},
		{path: "/no-head.png", want: true},
		{path: "/page.jpg", want: false},
		{path: "/fake.png", want: false},
		{path: "/missing.jpg", want: false},
		{path: "/slow.jpg", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, checker.Available(context.Background(), srv.URL+tt.path))
		})
	}
}

func TestContentTypeHelpers(t *testing.T) {
	assert.True(t, isImageType("image/webp"))
	assert.True(t, isImageType("IMAGE/PNG; q=1"))
	assert.False(t, isImageType("text/html"))
	assert.True(t, isGenericType(""))
	assert.True(t, isGenericType("application/octet-stream"))
	assert.False(t, isGenericType("image/png"))
}

func TestNewChecker_Defaults(t *testing.T) {
	checker := NewChecker(nil, 0, "", slog.Default())
	assert.Equal(t, DefaultTimeout, checker.timeout)
	assert.NotNil(t, checker.client)
}
