package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"partychat/internal/models"
)

// Per room:
//
//	room:{id}:messages  hash  id -> message JSON
//	room:{id}:order     zset  id scored by insertion sequence
//	room:{id}:expiry    zset  id scored by timestamp
//	room:{id}:seq       counter feeding the order scores
func roomKey(roomID, suffix string) string {
	return fmt.Sprintf("room:%s:%s", roomID, suffix)
}

type redisMessageRepository struct {
	client *redis.Client
}

// NewRedisMessageRepository stores messages in per-room redis keys.
func NewRedisMessageRepository(client *redis.Client) MessageRepository {
	return &redisMessageRepository{client: client}
}

// EnsureSchema only checks connectivity; redis needs no schema.
func (r *redisMessageRepository) EnsureSchema(ctx context.Context) error {
	return wrap("ping redis", r.client.Ping(ctx).Err())
}

func (r *redisMessageRepository) Upsert(ctx context.Context, msg *models.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return wrap("encode message", err)
	}

	seq, err := r.client.Incr(ctx, roomKey(msg.RoomID, "seq")).Result()
	if err != nil {
		return wrap("upsert message", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, roomKey(msg.RoomID, "messages"), msg.ID, data)
		pipe.ZAddNX(ctx, roomKey(msg.RoomID, "order"), redis.Z{Score: float64(seq), Member: msg.ID})
		pipe.ZAdd(ctx, roomKey(msg.RoomID, "expiry"), redis.Z{Score: float64(msg.Timestamp), Member: msg.ID})
		return nil
	})
	return wrap("upsert message", err)
}

func (r *redisMessageRepository) FindByRoom(ctx context.Context, roomID string) ([]models.ChatMessage, error) {
	ids, err := r.client.ZRange(ctx, roomKey(roomID, "order"), 0, -1).Result()
	if err != nil {
		return nil, wrap("load message order", err)
	}
	if len(ids) == 0 {
		return []models.ChatMessage{}, nil
	}

	values, err := r.client.HMGet(ctx, roomKey(roomID, "messages"), ids...).Result()
	if err != nil {
		return nil, wrap("load messages", err)
	}

	messages := make([]models.ChatMessage, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var msg models.ChatMessage
		if err := json.Unmarshal([]byte(s), &msg); err != nil {
			continue
		}
		msg.RoomID = roomID
		messages = append(messages, msg)
	}
	return messages, nil
}

func (r *redisMessageRepository) DeleteOlderThan(ctx context.Context, roomID string, cutoff int64) (int64, error) {
	ids, err := r.client.ZRangeByScore(ctx, roomKey(roomID, "expiry"), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff, 10),
	}).Result()
	if err != nil {
		return 0, wrap("find expired messages", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, roomKey(roomID, "messages"), ids...)
		pipe.ZRem(ctx, roomKey(roomID, "order"), members...)
		pipe.ZRem(ctx, roomKey(roomID, "expiry"), members...)
		return nil
	})
	if err != nil {
		return 0, wrap("delete expired messages", err)
	}
	return int64(len(ids)), nil
}
