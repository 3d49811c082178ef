package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/senvr/senvr/engine/corpus"
	"github.com/senvr/senvr/engine/watermark"
)

// WatermarkStore keeps channel watermarks in one redis hash.
type WatermarkStore struct {
	client RedisInterface
	key    string
}

var _ watermark.Store = (*WatermarkStore)(nil)

func NewWatermarkStore(client RedisInterface, prefix string) *WatermarkStore {
	return &WatermarkStore{client: client, key: prefix + ":watermarks"}
}

func (s *WatermarkStore) Get(ctx context.Context, channel corpus.ChannelID) (corpus.MessageID, bool, error) {
	id, err := s.client.HGet(ctx, s.key, string(channel)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis: get watermark: %w", err)
	}
	return corpus.MessageID(id), true, nil
}

func (s *WatermarkStore) Advance(ctx context.Context, channel corpus.ChannelID, id corpus.MessageID) error {
	if err := s.client.HSet(ctx, s.key, string(channel), string(id)).Err(); err != nil {
		return fmt.Errorf("redis: advance watermark: %w", err)
	}
	return nil
}

func (s *WatermarkStore) All(ctx context.Context) (map[corpus.ChannelID]corpus.MessageID, error) {
	raw, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list watermarks: %w", err)
	}
	out := make(map[corpus.ChannelID]corpus.MessageID, len(raw))
	for channel, id := range raw {
		out[corpus.ChannelID(channel)] = corpus.MessageID(id)
	}
	return out, nil
}
