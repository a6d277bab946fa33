// Package storage stores uploaded product images and returns their public URLs.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"shopx/internal/config"
)

// Storage writes objects and reports where they can be fetched.
type Storage interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (url string, err error)
	// Delete removes key. A missing object is not an error.
	Delete(ctx context.Context, key string) error
}

// New selects the backend named by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (Storage, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocal(cfg.MediaDir, cfg.MediaURL), nil
	case "s3":
		return NewS3(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// ProductImageKey builds a collision-free key under products/ keeping the extension.
func ProductImageKey(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if len(ext) > 10 {
		ext = ""
	}
	return "products/" + uuid.NewString() + ext
}
