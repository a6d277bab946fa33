package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage writes under dir and serves from baseURL.
type LocalStorage struct {
	dir     string
	baseURL string
}

func NewLocal(dir, baseURL string) *LocalStorage {
	return &LocalStorage{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

// Dir is the directory the HTTP server exposes at the media URL.
func (l *LocalStorage) Dir() string { return l.dir }

func (l *LocalStorage) path(key string) (clean, dst string) {
	clean = filepath.Clean("/" + key)[1:]
	return clean, filepath.Join(l.dir, filepath.FromSlash(clean))
}

func (l *LocalStorage) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	clean, dst := l.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return "", fmt.Errorf("write media file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return l.baseURL + "/" + filepath.ToSlash(clean), nil
}

func (l *LocalStorage) Delete(_ context.Context, key string) error {
	_, dst := l.path(key)
	if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove media file: %w", err)
	}
	return nil
}
