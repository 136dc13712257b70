package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

// ObjectStore holds uploaded files keyed by name.
type ObjectStore interface {
	Put(ctx context.Context, obj Object, r io.Reader) (*ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error)
}

// Object describes a file about to be stored.
type Object struct {
	Key          string
	ContentType  string
	CacheControl string
}

// ObjectInfo is the metadata kept alongside a stored object.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	CacheControl string    `json:"cache_control"`
	ModTime      time.Time `json:"mod_time"`
}
