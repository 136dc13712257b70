package service

import (
	"time"

	"github.com/rs/zerolog"

	"partychat/internal/repository"
	"partychat/internal/storage"
)

// Services groups the long-lived service objects shared by the handlers.
type Services struct {
	Hub    *Hub
	Upload *UploadService
}

// Options collects the settings the services need from configuration.
type Options struct {
	Room              RoomOptions
	UploadMaxBytes    int64
	UploadCacheMaxAge time.Duration
}

// NewServices builds the hub and upload service from the stores and options.
func NewServices(repos *repository.Repositories, objects storage.ObjectStore, opts Options, log zerolog.Logger) *Services {
	return &Services{
		Hub:    NewHub(repos.Message, opts.Room, log),
		Upload: NewUploadService(objects, opts.UploadMaxBytes, opts.UploadCacheMaxAge),
	}
}
