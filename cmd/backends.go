package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"partychat/internal/repository"
	"partychat/internal/storage"
	"partychat/pkg/config"
)

// openStore connects the configured message store. The returned func
// releases the connection.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*repository.Repositories, func(), error) {
	switch cfg.Store.Driver {
	case "postgres":
		db, err := storage.NewPostgresDB(cfg.DB.PostgresDSN())
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("host", cfg.DB.Host).Str("db", cfg.DB.Name).Msg("connected to PostgreSQL")
		return repository.NewSQLRepositories(db), func() { _ = db.Close() }, nil

	case "sqlite":
		db, err := storage.NewSQLiteDB(cfg.DB.Path)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("path", cfg.DB.Path).Msg("opened SQLite database")
		return repository.NewSQLRepositories(db), func() { _ = db.Close() }, nil

	case "redis":
		client, err := storage.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Msg("connected to Redis")
		return repository.NewRedisRepositories(client), func() { _ = client.Close() }, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownStoreDriver, cfg.Store.Driver)
}

// openObjectStore connects the configured upload backend.
func openObjectStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storage.ObjectStore, func(), error) {
	switch cfg.Upload.Backend {
	case "fs":
		store, err := storage.NewFSObjectStore(cfg.Upload.Dir)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("dir", cfg.Upload.Dir).Msg("storing uploads on disk")
		return store, func() {}, nil

	case "nats":
		store, err := storage.NewNATSObjectStore(ctx, cfg.Upload.NATSURL, cfg.Upload.Bucket)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("bucket", cfg.Upload.Bucket).Msg("storing uploads in NATS object store")
		return store, store.Close, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownUploadBackend, cfg.Upload.Backend)
}
