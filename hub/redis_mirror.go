package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultStream = "floor-events"

// RedisMirror appends floor events to a Redis stream for the reporting side.
type RedisMirror struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisMirror(addr, password string, db int, stream string) (*RedisMirror, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	if stream == "" {
		stream = DefaultStream
	}
	return &RedisMirror{client: rdb, stream: stream, maxLen: 10000}, nil
}

func (m *RedisMirror) Mirror(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg.Data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	err = m.client.XAdd(ctx, &redis.XAddArgs{
		Stream: m.stream,
		MaxLen: m.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"event":       msg.Event,
			"data":        string(data),
			"occurred_at": time.Now().UTC().Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", m.stream, err)
	}
	return nil
}

func (m *RedisMirror) Close() error {
	return m.client.Close()
}
