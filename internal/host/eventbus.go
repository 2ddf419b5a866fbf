package host

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	EventStream       = "ams:events"
	eventStreamMaxLen = 100000
)

type Event struct {
	Type    string
	UsageID string
	UserID  string
	Payload map[string]any
}

type EventBus interface {
	Publish(ctx context.Context, ev Event) error
}

// RedisEventBus appends events to a capped Redis stream for the analytics pipeline.
type RedisEventBus struct {
	rdb    *redis.Client
	stream string
}

func NewRedisEventBus(rdb *redis.Client) *RedisEventBus {
	return &RedisEventBus{rdb: rdb, stream: EventStream}
}

func (b *RedisEventBus) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("encode event payload: %w", err)
	}
	return b.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		MaxLen: eventStreamMaxLen,
		Approx: true,
		Values: map[string]any{
			"event_type": ev.Type,
			"usage_id":   ev.UsageID,
			"user_id":    ev.UserID,
			"payload":    string(payload),
			"time":       time.Now().UTC().Format(time.RFC3339Nano),
		},
	}).Err()
}

// LogEventBus writes events to the service log; used when Redis is not configured.
type LogEventBus struct{ log *zap.SugaredLogger }

func NewLogEventBus(log *zap.SugaredLogger) LogEventBus { return LogEventBus{log: log} }

func (b LogEventBus) Publish(_ context.Context, ev Event) error {
	b.log.Infow("block event", "event_type", ev.Type, "usage_id", ev.UsageID, "user_id", ev.UserID, "payload", ev.Payload)
	return nil
}
