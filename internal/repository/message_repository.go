package repository

import (
	"context"

	"gorm.io/gorm/clause"

	"partychat/internal/models"
	"partychat/internal/storage"
)

// upsertColumns are overwritten when a message id already exists.
// created_at is left alone so the message keeps its place in load order.
var upsertColumns = []string{"content", "user", "role", "timestamp", "msgtype", "file_name", "file_type"}

type messageRepository struct {
	db *storage.DB
}

// NewMessageRepository stores messages in the chat_messages table.
func NewMessageRepository(db *storage.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) EnsureSchema(ctx context.Context) error {
	return wrap("migrate chat_messages", r.db.WithContext(ctx).AutoMigrate(&models.ChatMessage{}))
}

func (r *messageRepository) Upsert(ctx context.Context, msg *models.ChatMessage) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "room_id"}, {Name: "id"}},
			DoUpdates: clause.AssignmentColumns(upsertColumns),
		}).
		Create(msg).Error
	return wrap("upsert message", err)
}

func (r *messageRepository) FindByRoom(ctx context.Context, roomID string) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := r.db.WithContext(ctx).
		Where(clause.Eq{Column: clause.Column{Name: "room_id"}, Value: roomID}).
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Name: "created_at"}},
			{Column: clause.Column{Name: "id"}},
		}}).
		Find(&messages).Error
	if err != nil {
		return nil, wrap("load messages", err)
	}
	return messages, nil
}

func (r *messageRepository) DeleteOlderThan(ctx context.Context, roomID string, cutoff int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Where(clause.Eq{Column: clause.Column{Name: "room_id"}, Value: roomID}).
		Where(clause.Lt{Column: clause.Column{Name: "timestamp"}, Value: cutoff}).
		Delete(&models.ChatMessage{})
	if result.Error != nil {
		return 0, wrap("delete expired messages", result.Error)
	}
	return result.RowsAffected, nil
}
