package cache

import "time"

// Config carries the redis connection settings.
type Config struct {
	// URL is a redis:// connection string. Empty starts an embedded server.
	URL         string
	Prefix      string
	PingTimeout time.Duration
	PoolSize    int
}
