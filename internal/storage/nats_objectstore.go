package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSObjectStore keeps objects in a JetStream object store bucket.
type NATSObjectStore struct {
	conn  *nats.Conn
	store jetstream.ObjectStore
}

// NewNATSObjectStore connects to NATS and opens the bucket, creating it if absent.
func NewNATSObjectStore(ctx context.Context, natsURL, bucket string) (*NATSObjectStore, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	store, err := js.ObjectStore(ctx, bucket)
	if err != nil {
		store, err = js.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{
			Bucket:      bucket,
			Description: "partychat uploads",
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create object store bucket: %w", err)
		}
	}

	return &NATSObjectStore{conn: conn, store: store}, nil
}

func (s *NATSObjectStore) Put(ctx context.Context, obj Object, r io.Reader) (*ObjectInfo, error) {
	meta := jetstream.ObjectMeta{
		Name: obj.Key,
		Headers: nats.Header{
			"Content-Type":  []string{obj.ContentType},
			"Cache-Control": []string{obj.CacheControl},
		},
	}

	info, err := s.store.Put(ctx, meta, r)
	if err != nil {
		return nil, fmt.Errorf("failed to store object: %w", err)
	}

	return &ObjectInfo{
		Key:          info.Name,
		Size:         int64(info.Size),
		ContentType:  obj.ContentType,
		CacheControl: obj.CacheControl,
		ModTime:      info.ModTime,
	}, nil
}

func (s *NATSObjectStore) Get(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error) {
	result, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrObjectNotFound) {
			return nil, nil, ErrObjectNotFound
		}
		return nil, nil, fmt.Errorf("failed to get object: %w", err)
	}

	info, err := result.Info()
	if err != nil {
		result.Close()
		return nil, nil, fmt.Errorf("failed to get object info: %w", err)
	}

	return result, &ObjectInfo{
		Key:          info.Name,
		Size:         int64(info.Size),
		ContentType:  headerOr(info.Headers, "Content-Type", "application/octet-stream"),
		CacheControl: headerOr(info.Headers, "Cache-Control", ""),
		ModTime:      info.ModTime,
	}, nil
}

// Close drops the NATS connection.
func (s *NATSObjectStore) Close() {
	s.conn.Close()
}

func headerOr(h nats.Header, key, fallback string) string {
	if h != nil {
		if v := h.Get(key); v != "" {
			return v
		}
	}
	return fallback
}
