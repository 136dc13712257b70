package service

import (
	"context"
	"errors"
	"sync"

	"partychat/internal/models"
)

var errStoreDown = errors.New("store unavailable")

// fakeRepo is an in-memory MessageRepository keeping insertion order.
type fakeRepo struct {
	mu        sync.Mutex
	rows      map[string][]models.ChatMessage
	upsertErr error
	deleteErr error
	findErr   error
	upserts   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: make(map[string][]models.ChatMessage)}
}

func (f *fakeRepo) seed(room string, msgs ...models.ChatMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		m.RoomID = room
		f.rows[room] = append(f.rows[room], m)
	}
}

func (f *fakeRepo) stored(room string) []models.ChatMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.ChatMessage, len(f.rows[room]))
	copy(out, f.rows[room])
	return out
}

func (f *fakeRepo) EnsureSchema(context.Context) error { return nil }

func (f *fakeRepo) Upsert(_ context.Context, msg *models.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	rows := f.rows[msg.RoomID]
	for i := range rows {
		if rows[i].ID == msg.ID {
			created := rows[i].CreatedAt
			rows[i] = *msg
			rows[i].CreatedAt = created
			return nil
		}
	}
	f.rows[msg.RoomID] = append(rows, *msg)
	return nil
}

func (f *fakeRepo) FindByRoom(_ context.Context, roomID string) ([]models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	out := make([]models.ChatMessage, len(f.rows[roomID]))
	copy(out, f.rows[roomID])
	return out, nil
}

func (f *fakeRepo) DeleteOlderThan(_ context.Context, roomID string, cutoff int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	var kept []models.ChatMessage
	var n int64
	for _, m := range f.rows[roomID] {
		if m.Timestamp < cutoff {
			n++
			continue
		}
		kept = append(kept, m)
	}
	f.rows[roomID] = kept
	return n, nil
}
