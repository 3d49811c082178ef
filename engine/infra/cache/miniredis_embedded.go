package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/senvr/senvr/pkg/logger"
)

// MiniredisEmbedded runs an in-process redis server for single-node deployments.
type MiniredisEmbedded struct {
	server *miniredis.Miniredis
	client *redis.Client
	once   sync.Once
}

// NewMiniredisEmbedded starts the server and connects a client to it.
func NewMiniredisEmbedded(ctx context.Context) (*MiniredisEmbedded, error) {
	server, err := miniredis.Run()
	if err != nil {
		return nil, fmt.Errorf("starting embedded redis: %w", err)
	}
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	if err := pingRedis(ctx, client, 0); err != nil {
		client.Close()
		server.Close()
		return nil, err
	}
	logger.FromContext(ctx).Info("Embedded redis started", "addr", server.Addr())
	return &MiniredisEmbedded{server: server, client: client}, nil
}

func (m *MiniredisEmbedded) Client() *redis.Client {
	return m.client
}

func (m *MiniredisEmbedded) Addr() string {
	return m.server.Addr()
}

// Close stops the client and the server. It is safe to call twice.
func (m *MiniredisEmbedded) Close(ctx context.Context) error {
	var err error
	m.once.Do(func() {
		err = m.client.Close()
		m.server.Close()
		logger.FromContext(ctx).Debug("Embedded redis stopped")
	})
	return err
}
