package cache

import (
	"context"
	"fmt"

	"github.com/senvr/senvr/engine/status"
)

// StatusChannel publishes statuses on a redis pub/sub channel for presence displays.
type StatusChannel struct {
	client  RedisInterface
	channel string
}

var _ status.Publisher = (*StatusChannel)(nil)

func NewStatusChannel(client RedisInterface, prefix string) *StatusChannel {
	return &StatusChannel{client: client, channel: prefix + ":status"}
}

// Name returns the pub/sub channel statuses are published on.
func (s *StatusChannel) Name() string {
	return s.channel
}

func (s *StatusChannel) PublishStatus(ctx context.Context, text string) error {
	if err := s.client.Publish(ctx, s.channel, text).Err(); err != nil {
		return fmt.Errorf("redis: publish status: %w", err)
	}
	return nil
}
