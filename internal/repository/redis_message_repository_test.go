package repository

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"partychat/internal/models"
)

func setupRedisRepo(t *testing.T) (MessageRepository, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := NewRedisMessageRepository(client)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	return repo, mr
}

func ids(msgs []models.ChatMessage) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func TestRedisMessageRepository_UpdateKeepsPosition(t *testing.T) {
	repo, _ := setupRedisRepo(t)
	ctx := context.Background()

	for _, m := range []*models.ChatMessage{
		newMessage("lobby", "a", "first", 100),
		newMessage("lobby", "b", "second", 200),
		newMessage("lobby", "a", "first, edited", 300),
	} {
		if err := repo.Upsert(ctx, m); err != nil {
			t.Fatalf("Upsert(%s) error = %v", m.ID, err)
		}
	}

	msgs, err := repo.FindByRoom(ctx, "lobby")
	if err != nil {
		t.Fatalf("FindByRoom() error = %v", err)
	}
	if got := ids(msgs); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("expected order [a b], got %v", got)
	}
	if msgs[0].Content != "first, edited" || msgs[0].Timestamp != 300 {
		t.Errorf("expected a to be updated in place, got %+v", msgs[0])
	}
	if msgs[0].RoomID != "lobby" {
		t.Errorf("expected room id to be restored, got %q", msgs[0].RoomID)
	}
}

func TestRedisMessageRepository_RoomIsolation(t *testing.T) {
	repo, _ := setupRedisRepo(t)
	ctx := context.Background()

	if err := repo.Upsert(ctx, newMessage("lobby", "m1", "hi", 100)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := repo.Upsert(ctx, newMessage("kitchen", "m1", "other room", 100)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	lobby, err := repo.FindByRoom(ctx, "lobby")
	if err != nil {
		t.Fatalf("FindByRoom() error = %v", err)
	}
	if len(lobby) != 1 || lobby[0].Content != "hi" {
		t.Errorf("unexpected lobby messages: %+v", lobby)
	}

	empty, err := repo.FindByRoom(ctx, "attic")
	if err != nil {
		t.Fatalf("FindByRoom() error = %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected an empty, non-nil list, got %#v", empty)
	}
}

func TestRedisMessageRepository_DeleteOlderThan(t *testing.T) {
	repo, _ := setupRedisRepo(t)
	ctx := context.Background()

	for _, m := range []*models.ChatMessage{
		newMessage("lobby", "old", "x", 100),
		newMessage("lobby", "edge", "y", 250),
		newMessage("lobby", "new", "z", 300),
		newMessage("kitchen", "old", "x", 100),
	} {
		if err := repo.Upsert(ctx, m); err != nil {
			t.Fatalf("Upsert(%s) error = %v", m.ID, err)
		}
	}

	n, err := repo.DeleteOlderThan(ctx, "lobby", 250)
	if err != nil {
		t.Fatalf("DeleteOlderThan() error = %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 deleted, got %d", n)
	}

	msgs, err := repo.FindByRoom(ctx, "lobby")
	if err != nil {
		t.Fatalf("FindByRoom() error = %v", err)
	}
	if got := ids(msgs); len(got) != 2 || got[0] != "edge" || got[1] != "new" {
		t.Errorf("expected [edge new] to survive, got %v", got)
	}

	kitchen, _ := repo.FindByRoom(ctx, "kitchen")
	if len(kitchen) != 1 {
		t.Errorf("expected other rooms untouched, got %v", ids(kitchen))
	}

	if n, err := repo.DeleteOlderThan(ctx, "lobby", 250); err != nil || n != 0 {
		t.Errorf("expected a second prune to delete nothing, got %d, %v", n, err)
	}
}

func TestRedisMessageRepository_EnsureSchemaFailsWhenDown(t *testing.T) {
	repo, mr := setupRedisRepo(t)
	mr.Close()

	if err := repo.EnsureSchema(context.Background()); err == nil {
		t.Error("expected an error once redis is gone")
	}
}
