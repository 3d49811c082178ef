package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/senvr/senvr/engine/corpus"
	"github.com/senvr/senvr/engine/trainer"
)

const defaultMessageTTL = 7 * 24 * time.Hour

// MessageLog remembers accepted message ids as expiring keys so live intake can drop
// redeliveries.
type MessageLog struct {
	client RedisInterface
	prefix string
	ttl    time.Duration
}

var _ trainer.Recorder = (*MessageLog)(nil)

// NewMessageLog keeps ids for ttl; a non-positive ttl means a week.
func NewMessageLog(client RedisInterface, prefix string, ttl time.Duration) *MessageLog {
	if ttl <= 0 {
		ttl = defaultMessageTTL
	}
	return &MessageLog{client: client, prefix: prefix + ":messages:", ttl: ttl}
}

func (l *MessageLog) key(id corpus.MessageID) string {
	return l.prefix + string(id)
}

// Record marks unit as seen. Recording an id twice keeps the first expiry.
func (l *MessageLog) Record(ctx context.Context, unit corpus.TextUnit) error {
	if err := l.client.SetNX(ctx, l.key(unit.ID), string(unit.Channel), l.ttl).Err(); err != nil {
		return fmt.Errorf("redis: record message: %w", err)
	}
	return nil
}

func (l *MessageLog) Seen(ctx context.Context, id corpus.MessageID) (bool, error) {
	n, err := l.client.Exists(ctx, l.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("redis: check message: %w", err)
	}
	return n > 0, nil
}
