package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dkeye/Lobby/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	roomsKey       = "lobby:rooms"
	messagesKeyFmt = "lobby:messages:%s"
)

// Redis keeps each room's history in a capped list and room names in a set.
type Redis struct {
	client *redis.Client
	retain int64
}

func OpenRedis(ctx context.Context, url string, retain int) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedis(client, retain), nil
}

func NewRedis(client *redis.Client, retain int) *Redis {
	if retain < domain.HistoryLimit {
		retain = domain.HistoryLimit
	}
	return &Redis{client: client, retain: int64(retain)}
}

func messagesKey(room domain.RoomName) string {
	return fmt.Sprintf(messagesKeyFmt, room)
}

func (r *Redis) FindMessages(ctx context.Context, room domain.RoomName, limit int) ([]domain.Message, error) {
	raw, err := r.client.LRange(ctx, messagesKey(room), -int64(limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	msgs := make([]domain.Message, 0, len(raw))
	for _, item := range raw {
		var m domain.Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			log.Warn().Err(err).Str("module", "store.redis").Str("room", string(room)).Msg("skipping corrupt message")
			continue
		}
		msgs = append(msgs, m)
	}
	return lastN(msgs, limit), nil
}

func (r *Redis) SaveMessage(ctx context.Context, msg domain.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	key := messagesKey(msg.Room)
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -r.retain, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

func (r *Redis) DeleteMessages(ctx context.Context, room domain.RoomName) error {
	if err := r.client.Del(ctx, messagesKey(room)).Err(); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	return nil
}

func (r *Redis) CreateRoom(ctx context.Context, name domain.RoomName) error {
	if err := r.client.SAdd(ctx, roomsKey, string(name)).Err(); err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

func (r *Redis) ListRooms(ctx context.Context) ([]domain.RoomName, error) {
	names, err := r.client.SMembers(ctx, roomsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	out := make([]domain.RoomName, len(names))
	for i, n := range names {
		out[i] = domain.RoomName(n)
	}
	return out, nil
}

func (r *Redis) Close() error { return r.client.Close() }
