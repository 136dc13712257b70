package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"partychat/internal/metrics"
	"partychat/internal/models"
	"partychat/internal/repository"
)

type eventKind int

const (
	eventJoin eventKind = iota
	eventLeave
	eventInbound
	eventSnapshot
	eventShutdown
)

type roomEvent struct {
	kind    eventKind
	client  *Client
	payload []byte
	reply   chan []models.ChatMessage
}

// RoomOptions tune every room created by a Hub.
type RoomOptions struct {
	// EchoSender re-broadcasts a frame to its sender as well.
	EchoSender bool
	SendBuffer int
	ReadLimit  int64
	Retention  time.Duration
}

// Room is the actor for one chat room. All events for the room are handled
// one at a time by run, which is the only code touching state and clients.
type Room struct {
	id      string
	state   *RoomState
	opts    RoomOptions
	events  chan roomEvent
	clients map[*Client]struct{}
	log     zerolog.Logger
	now     func() time.Time
	done    chan struct{}
	// set once shutdown is handled; later joins are disconnected at once
	closing bool
}

func newRoom(id string, repo repository.MessageRepository, opts RoomOptions, log zerolog.Logger) *Room {
	if opts.Retention <= 0 {
		opts.Retention = RetentionWindow
	}
	return &Room{
		id:      id,
		state:   NewRoomState(id, repo),
		opts:    opts,
		events:  make(chan roomEvent, 64),
		clients: make(map[*Client]struct{}),
		log:     log.With().Str("room", id).Logger(),
		now:     time.Now,
		done:    make(chan struct{}),
	}
}

// Join registers a participant. The room prunes expired messages and sends
// the participant the full message list.
func (r *Room) Join(c *Client) {
	r.events <- roomEvent{kind: eventJoin, client: c}
}

// Leave unregisters a participant and closes its send queue.
func (r *Room) Leave(c *Client) {
	r.events <- roomEvent{kind: eventLeave, client: c}
}

// Inbound hands a raw frame received from c to the room.
func (r *Room) Inbound(c *Client, payload []byte) {
	r.events <- roomEvent{kind: eventInbound, client: c, payload: payload}
}

// Snapshot returns the current messages as seen by the room goroutine.
func (r *Room) Snapshot(ctx context.Context) ([]models.ChatMessage, error) {
	reply := make(chan []models.ChatMessage, 1)
	select {
	case r.events <- roomEvent{kind: eventSnapshot, reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case msgs := <-reply:
		return msgs, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Room) shutdown() {
	r.events <- roomEvent{kind: eventShutdown}
}

// stop ends run once queued events are handled. Callers guarantee no
// further events are sent.
func (r *Room) stop() {
	close(r.events)
}

func (r *Room) run(ctx context.Context) {
	defer close(r.done)

	if err := r.state.Initialize(ctx); err != nil {
		metrics.StoreErrors.WithLabelValues("initialize").Inc()
		r.log.Error().Err(err).Msg("failed to load room state, starting empty")
	} else {
		r.log.Info().Int("messages", r.state.Len()).Msg("room started")
	}

	for ev := range r.events {
		switch ev.kind {
		case eventJoin:
			r.handleJoin(ctx, ev.client)
		case eventLeave:
			r.handleLeave(ev.client)
		case eventInbound:
			r.handleInbound(ctx, ev.client, ev.payload)
		case eventSnapshot:
			ev.reply <- r.state.Snapshot()
		case eventShutdown:
			r.closing = true
			for c := range r.clients {
				c.closeConn()
			}
		}
	}

	for c := range r.clients {
		r.drop(c)
	}
	r.log.Info().Msg("room stopped")
}

func (r *Room) handleJoin(ctx context.Context, c *Client) {
	if r.closing {
		c.closeSend()
		c.closeConn()
		return
	}
	removed, err := r.state.Prune(ctx, r.opts.Retention)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("prune").Inc()
		r.log.Error().Err(err).Msg("prune failed")
	}
	if len(removed) > 0 {
		metrics.PrunedMessages.Add(float64(len(removed)))
		r.log.Debug().Int("removed", len(removed)).Msg("pruned expired messages")
		// participants already connected drop the expired messages too
		r.sendEvent(models.RemoveEvent{IDs: removed}, nil)
	}

	r.clients[c] = struct{}{}
	metrics.ActiveConnections.Inc()
	r.log.Info().Str("conn", c.ID).Int("participants", len(r.clients)).Msg("participant joined")

	frame, err := models.EncodeEvent(models.AllEvent{Messages: r.state.Snapshot()})
	if err != nil {
		r.log.Error().Err(err).Msg("failed to encode snapshot")
		return
	}
	if !c.enqueue(frame) {
		r.drop(c)
	}
}

func (r *Room) handleLeave(c *Client) {
	if _, ok := r.clients[c]; !ok {
		return
	}
	r.drop(c)
	r.log.Info().Str("conn", c.ID).Int("participants", len(r.clients)).Msg("participant left")
}

func (r *Room) handleInbound(ctx context.Context, from *Client, payload []byte) {
	ev, err := models.DecodeClientEvent(payload)
	if err != nil {
		metrics.MessagesIngested.WithLabelValues("invalid").Inc()
		r.log.Warn().Err(err).Str("conn", from.ID).Msg("dropping inbound frame")
		return
	}
	metrics.MessagesIngested.WithLabelValues(string(ev.Type())).Inc()

	var exclude *Client
	if !r.opts.EchoSender {
		exclude = from
	}
	r.broadcast(payload, exclude)

	msg, ok := models.MessageOf(ev)
	if !ok {
		return
	}
	msg.Timestamp = r.now().UnixMilli()
	if err := r.state.Upsert(ctx, msg); err != nil {
		metrics.StoreErrors.WithLabelValues("upsert").Inc()
		r.log.Error().Err(err).Str("id", msg.ID).Msg("failed to persist message")
	}
}

// broadcast queues a frame for every participant except exclude. A
// participant whose queue is full is dropped.
func (r *Room) broadcast(frame []byte, exclude *Client) {
	for c := range r.clients {
		if c == exclude {
			continue
		}
		if c.enqueue(frame) {
			metrics.BroadcastFrames.Inc()
			continue
		}
		metrics.DroppedParticipants.Inc()
		r.log.Warn().Str("conn", c.ID).Msg("send queue full, dropping participant")
		r.drop(c)
	}
}

func (r *Room) sendEvent(ev models.Event, exclude *Client) {
	frame, err := models.EncodeEvent(ev)
	if err != nil {
		r.log.Error().Err(err).Msg("failed to encode event")
		return
	}
	r.broadcast(frame, exclude)
}

func (r *Room) drop(c *Client) {
	if _, ok := r.clients[c]; ok {
		delete(r.clients, c)
		metrics.ActiveConnections.Dec()
	}
	c.closeSend()
	c.closeConn()
}
