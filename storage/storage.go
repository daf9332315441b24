package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

var ErrFileNotFound = errors.New("file not found")

// FileStorage persists uploaded repair images.
type FileStorage interface {
	// Store writes r and returns the path to record on the image row.
	Store(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, path string) error
}

// ObjectName builds a unique, URL-safe name that keeps the original extension.
func ObjectName(original string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(original))
	base := slug.Make(strings.TrimSuffix(filepath.Base(original), filepath.Ext(original)))
	if base == "" {
		base = "image"
	}
	if len(base) > 40 {
		base = base[:40]
	}
	return fmt.Sprintf("repair-%d-%s-%s%s", now.UnixMilli(), uuid.NewString()[:8], base, ext)
}
