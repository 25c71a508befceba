package asset

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotCached is returned by Get when no file exists for a key.
var ErrNotCached = errors.New("thumbnail not cached")

// Handler stores rendered thumbnails on disk and serves them. A key names an
// immutable snapshot rendering, so files never change once written.
type Handler struct {
	dir    string // directory to store thumbnail files
	prefix string // URL prefix Serve strips
}

// NewHandler creates a thumbnail handler that stores files in dir.
func NewHandler(dir string) *Handler {
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Error("create thumbnail dir", "error", err, "dir", dir)
	}
	return &Handler{dir: dir, prefix: "/thumbnails/"}
}

// Key builds the file name of a snapshot thumbnail at a given size.
func Key(snapshotID string, width, height int) string {
	return fmt.Sprintf("%s_%dx%d.png", sanitize(snapshotID), width, height)
}

// URL returns the public path of a stored key.
func (h *Handler) URL(key string) string {
	return h.prefix + key
}

// Get reads a cached thumbnail.
func (h *Handler) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(h.dir, sanitize(key)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotCached
		}
		return nil, fmt.Errorf("read thumbnail: %w", err)
	}
	return data, nil
}

// Put writes a thumbnail atomically so concurrent readers never see a partial file.
func (h *Handler) Put(key string, data []byte) error {
	tmp, err := os.CreateTemp(h.dir, ".thumb-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write thumbnail: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close thumbnail: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(h.dir, sanitize(key))); err != nil {
		return fmt.Errorf("store thumbnail: %w", err)
	}
	return nil
}

// Serve returns an http.Handler that serves stored thumbnails with caching headers.
func (h *Handler) Serve() http.Handler {
	fs := http.FileServer(http.Dir(h.dir))
	return http.StripPrefix(h.prefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Keys are per snapshot, so files are immutable
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	}))
}

// DeletePrefix removes every thumbnail whose key starts with prefix, typically
// all sizes of one snapshot.
func (h *Handler) DeletePrefix(prefix string) error {
	matches, err := filepath.Glob(filepath.Join(h.dir, sanitize(prefix)+"*"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", filepath.Base(m), err)
		}
	}
	return nil
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.' {
			return r
		}
		return '-'
	}, filepath.Base(name))
}
