package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"partychat/internal/metrics"
	"partychat/internal/storage"
)

const maxFileNameLen = 200

var ErrFileTooLarge = errors.New("file exceeds upload limit")

// UploadResult is returned to the uploading client.
type UploadResult struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// UploadService stores files under "{unixMillis}-{fileName}" keys.
type UploadService struct {
	store       storage.ObjectStore
	maxBytes    int64
	cacheMaxAge time.Duration
	now         func() time.Time
}

// NewUploadService returns a service storing into store, refusing files above
// maxBytes and serving them with a public cache lifetime of cacheMaxAge.
func NewUploadService(store storage.ObjectStore, maxBytes int64, cacheMaxAge time.Duration) *UploadService {
	return &UploadService{
		store:       store,
		maxBytes:    maxBytes,
		cacheMaxAge: cacheMaxAge,
		now:         time.Now,
	}
}

// MaxBytes is the hard cap on a single upload.
func (s *UploadService) MaxBytes() int64 {
	return s.maxBytes
}

// Upload stores one file. size is the size announced by the client and is
// checked before anything is written.
func (s *UploadService) Upload(ctx context.Context, fileName, contentType string, size int64, r io.Reader) (*UploadResult, error) {
	if size > s.maxBytes {
		metrics.UploadsTotal.WithLabelValues("too_large").Inc()
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrFileTooLarge, size, s.maxBytes)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := fmt.Sprintf("%d-%s", s.now().UnixMilli(), SanitizeFileName(fileName))
	info, err := s.store.Put(ctx, storage.Object{
		Key:          key,
		ContentType:  contentType,
		CacheControl: s.cacheControl(),
	}, io.LimitReader(r, s.maxBytes))
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.UploadsTotal.WithLabelValues("ok").Inc()
	metrics.UploadBytes.Add(float64(info.Size))
	return &UploadResult{
		Key:         key,
		URL:         "/files/" + url.PathEscape(key),
		Size:        info.Size,
		ContentType: contentType,
	}, nil
}

// Open returns a stored file and its metadata.
func (s *UploadService) Open(ctx context.Context, key string) (io.ReadCloser, *storage.ObjectInfo, error) {
	return s.store.Get(ctx, key)
}

func (s *UploadService) cacheControl() string {
	return fmt.Sprintf("public, max-age=%d", int64(s.cacheMaxAge/time.Second))
}

// SanitizeFileName keeps only the base name and strips characters that would
// make the object key ambiguous.
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), `\`, "/")
	name = filepath.Base(name)
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == '"' {
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == "/" || name == ".." {
		name = "file"
	}
	if runes := []rune(name); len(runes) > maxFileNameLen {
		name = string(runes[len(runes)-maxFileNameLen:])
	}
	return name
}
