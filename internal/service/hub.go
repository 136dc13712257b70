package service

import (
	"context"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"partychat/internal/metrics"
	"partychat/internal/models"
	"partychat/internal/repository"
)

var ErrHubClosed = errors.New("hub is shutting down")

type roomEntry struct {
	room *Room
	refs int
}

// Hub owns the room actors. A room is started on first use and stopped when
// its last user goes away; its state is then reloaded from the store next time.
type Hub struct {
	repo repository.MessageRepository
	opts RoomOptions
	log  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	rooms  map[string]*roomEntry
	closed bool
}

// NewHub returns a hub whose rooms load from and persist to repo.
func NewHub(repo repository.MessageRepository, opts RoomOptions, log zerolog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		repo:   repo,
		opts:   opts,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		rooms:  make(map[string]*roomEntry),
	}
}

func (h *Hub) acquire(roomID string) (*Room, error) {
	if err := models.ValidateRoomName(roomID); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}

	entry, ok := h.rooms[roomID]
	if !ok {
		room := newRoom(roomID, h.repo, h.opts, h.log)
		entry = &roomEntry{room: room}
		h.rooms[roomID] = entry
		metrics.ActiveRooms.Inc()

		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			room.run(h.ctx)
		}()
	}
	entry.refs++
	return entry.room, nil
}

func (h *Hub) release(roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry, ok := h.rooms[roomID]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs > 0 {
		return
	}
	delete(h.rooms, roomID)
	metrics.ActiveRooms.Dec()
	entry.room.stop()
}

// Serve runs a participant connection until it closes.
func (h *Hub) Serve(roomID string, conn *websocket.Conn) error {
	room, err := h.acquire(roomID)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer h.release(roomID)

	client := NewClient(conn, h.opts.SendBuffer)
	room.Join(client)

	go client.writePump()
	client.readPump(room, h.opts.ReadLimit, room.log)

	room.Leave(client)
	return nil
}

// Snapshot returns the messages of a room, starting it if needed.
func (h *Hub) Snapshot(ctx context.Context, roomID string) ([]models.ChatMessage, error) {
	room, err := h.acquire(roomID)
	if err != nil {
		return nil, err
	}
	defer h.release(roomID)

	return room.Snapshot(ctx)
}

// RoomCount returns the number of running rooms.
func (h *Hub) RoomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

// Close disconnects every participant and waits for the rooms to stop.
func (h *Hub) Close(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	for _, entry := range h.rooms {
		entry.room.shutdown()
	}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.cancel()
		return nil
	case <-ctx.Done():
		h.cancel()
		return ctx.Err()
	}
}
