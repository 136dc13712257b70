package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// metaDir holds one JSON file per object, outside the object namespace.
const metaDir = ".meta"

// FSObjectStore keeps objects as files under a root directory. Content type
// and cache-control live in root/.meta/<key>.json.
type FSObjectStore struct {
	fs   afero.Fs
	root string
}

// NewFSObjectStore returns a store rooted at dir on the OS filesystem.
func NewFSObjectStore(dir string) (*FSObjectStore, error) {
	return NewFSObjectStoreWithFs(afero.NewOsFs(), dir)
}

// NewFSObjectStoreWithFs is NewFSObjectStore over an arbitrary afero filesystem.
func NewFSObjectStoreWithFs(fs afero.Fs, dir string) (*FSObjectStore, error) {
	if err := fs.MkdirAll(filepath.Join(dir, metaDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &FSObjectStore{fs: fs, root: dir}, nil
}

func (s *FSObjectStore) objectPath(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." || key == metaDir {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.root, key), nil
}

func (s *FSObjectStore) metaPath(key string) string {
	return filepath.Join(s.root, metaDir, key+".json")
}

func (s *FSObjectStore) Put(_ context.Context, obj Object, r io.Reader) (*ObjectInfo, error) {
	p, err := s.objectPath(obj.Key)
	if err != nil {
		return nil, err
	}

	f, err := s.fs.Create(p)
	if err != nil {
		return nil, fmt.Errorf("failed to create object: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = s.fs.Remove(p)
		return nil, fmt.Errorf("failed to write object: %w", err)
	}

	info := &ObjectInfo{
		Key:          obj.Key,
		Size:         n,
		ContentType:  obj.ContentType,
		CacheControl: obj.CacheControl,
		ModTime:      time.Now().UTC(),
	}
	meta, err := json.Marshal(info)
	if err != nil {
		return nil, err
	}
	if err := afero.WriteFile(s.fs, s.metaPath(obj.Key), meta, 0o644); err != nil {
		_ = s.fs.Remove(p)
		return nil, fmt.Errorf("failed to write object metadata: %w", err)
	}
	return info, nil
}

func (s *FSObjectStore) Get(_ context.Context, key string) (io.ReadCloser, *ObjectInfo, error) {
	p, err := s.objectPath(key)
	if err != nil {
		return nil, nil, ErrObjectNotFound
	}

	meta, err := afero.ReadFile(s.fs, s.metaPath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, ErrObjectNotFound
		}
		return nil, nil, fmt.Errorf("failed to read object metadata: %w", err)
	}
	var info ObjectInfo
	if err := json.Unmarshal(meta, &info); err != nil {
		return nil, nil, fmt.Errorf("corrupt object metadata: %w", err)
	}

	f, err := s.fs.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, ErrObjectNotFound
		}
		return nil, nil, fmt.Errorf("failed to open object: %w", err)
	}
	return f, &info, nil
}
