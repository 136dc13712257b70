package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"partychat/internal/models"
	"partychat/internal/storage"
)

// MessageRepository is the durable store behind every room's state.
// Load order is insertion order; updates keep a message's position.
type MessageRepository interface {
	EnsureSchema(ctx context.Context) error
	Upsert(ctx context.Context, msg *models.ChatMessage) error
	FindByRoom(ctx context.Context, roomID string) ([]models.ChatMessage, error)
	DeleteOlderThan(ctx context.Context, roomID string, cutoff int64) (int64, error)
}

// Repositories groups the stores used by the service layer.
type Repositories struct {
	Message MessageRepository
}

// NewSQLRepositories backs the repositories with a gorm database.
func NewSQLRepositories(db *storage.DB) *Repositories {
	return &Repositories{
		Message: NewMessageRepository(db),
	}
}

// NewRedisRepositories backs the repositories with redis.
func NewRedisRepositories(client *redis.Client) *Repositories {
	return &Repositories{
		Message: NewRedisMessageRepository(client),
	}
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
