package sqlite

import "time"

const memoryPath = ":memory:"

// Config captures SQLite store configuration derived from application settings.
type Config struct {
	// Path is the database location or ":memory:" for a private in-memory database.
	Path string

	// MaxOpenConns controls the pool size exposed by database/sql.
	MaxOpenConns int

	// MaxIdleConns limits idle connections retained in the pool.
	MaxIdleConns int

	// ConnMaxIdleTime bounds idle connection retention.
	ConnMaxIdleTime time.Duration

	// BusyTimeout configures sqlite busy timeout via PRAGMA busy_timeout.
	BusyTimeout time.Duration

	// RecentCacheSize bounds the LRU of recently recorded message ids.
	RecentCacheSize int
}

func (c *Config) withDefaults() *Config {
	out := *c
	if out.Path == "" {
		out.Path = memoryPath
	}
	if out.MaxOpenConns <= 0 {
		out.MaxOpenConns = 4
	}
	if out.Path == memoryPath {
		out.MaxOpenConns = 1
	}
	if out.MaxIdleConns <= 0 || out.MaxIdleConns > out.MaxOpenConns {
		out.MaxIdleConns = out.MaxOpenConns
	}
	if out.BusyTimeout <= 0 {
		out.BusyTimeout = 5 * time.Second
	}
	if out.RecentCacheSize <= 0 {
		out.RecentCacheSize = 4096
	}
	return &out
}
