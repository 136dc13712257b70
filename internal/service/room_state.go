package service

import (
	"context"
	"time"

	"partychat/internal/models"
	"partychat/internal/repository"
)

// RetentionWindow is how long a message survives after its last add or update.
const RetentionWindow = 24 * time.Hour

// RoomState is the in-memory mirror of one room's stored messages.
// It is owned by a single room goroutine and is not safe for concurrent use.
type RoomState struct {
	roomID   string
	repo     repository.MessageRepository
	messages []models.ChatMessage
	index    map[string]int // id -> position in messages
	now      func() time.Time
}

// NewRoomState returns an empty state for roomID; call Initialize to load it.
func NewRoomState(roomID string, repo repository.MessageRepository) *RoomState {
	return &RoomState{
		roomID: roomID,
		repo:   repo,
		index:  make(map[string]int),
		now:    time.Now,
	}
}

// Initialize ensures the schema exists and loads every stored message.
func (s *RoomState) Initialize(ctx context.Context) error {
	if err := s.repo.EnsureSchema(ctx); err != nil {
		return err
	}
	return s.reload(ctx)
}

func (s *RoomState) reload(ctx context.Context) error {
	messages, err := s.repo.FindByRoom(ctx, s.roomID)
	if err != nil {
		return err
	}
	s.replace(messages)
	return nil
}

func (s *RoomState) replace(messages []models.ChatMessage) {
	s.messages = messages
	s.index = make(map[string]int, len(messages))
	for i, m := range messages {
		s.index[m.ID] = i
	}
}

// Upsert replaces the message with the same id or appends a new one, then
// persists it. A persistence error is returned but the in-memory change stays.
func (s *RoomState) Upsert(ctx context.Context, msg models.ChatMessage) error {
	msg.RoomID = s.roomID

	if i, ok := s.index[msg.ID]; ok {
		msg.CreatedAt = s.messages[i].CreatedAt
		s.messages[i] = msg
	} else {
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = s.now()
		}
		s.index[msg.ID] = len(s.messages)
		s.messages = append(s.messages, msg)
	}

	return s.repo.Upsert(ctx, &msg)
}

// Prune deletes stored messages older than now-window and reloads from the
// store. It returns the ids that are no longer present.
func (s *RoomState) Prune(ctx context.Context, window time.Duration) ([]string, error) {
	cutoff := s.now().Add(-window).UnixMilli()
	before := s.messages

	_, err := s.repo.DeleteOlderThan(ctx, s.roomID, cutoff)
	if err == nil {
		err = s.reload(ctx)
	}
	if err != nil {
		// store unavailable: still drop expired messages from memory
		kept := make([]models.ChatMessage, 0, len(before))
		for _, m := range before {
			if m.Timestamp >= cutoff {
				kept = append(kept, m)
			}
		}
		s.replace(kept)
	}

	return removedIDs(before, s.index), err
}

func removedIDs(before []models.ChatMessage, after map[string]int) []string {
	var removed []string
	for _, m := range before {
		if _, ok := after[m.ID]; !ok {
			removed = append(removed, m.ID)
		}
	}
	return removed
}

// Snapshot returns a copy of the messages in load order.
func (s *RoomState) Snapshot() []models.ChatMessage {
	out := make([]models.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of retained messages.
func (s *RoomState) Len() int {
	return len(s.messages)
}
