package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/senvr/senvr/pkg/logger"
)

// Store owns the database handle shared by the repositories.
type Store struct {
	db  *sql.DB
	cfg *Config
}

// NewStore opens the database and applies the embedded migrations.
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg = cfg.withDefaults()
	db, err := sql.Open("sqlite", buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	if cfg.Path != memoryPath {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping database: %w", err)
	}
	if err := ApplyMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	version, err := SchemaVersion(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	logger.FromContext(ctx).Debug("SQLite store ready", "path", cfg.Path, "schema", version)
	return &Store{db: db, cfg: cfg}, nil
}

func (s *Store) DB() *sql.DB {
	return s.db
}

// Watermarks returns the channel watermark repository.
func (s *Store) Watermarks() *WatermarkRepo {
	return NewWatermarkRepo(s.db)
}

// Messages returns the message record repository.
func (s *Store) Messages() (*MessageRepo, error) {
	return NewMessageRepo(s.db, s.cfg.RecentCacheSize)
}

func (s *Store) Close(_ context.Context) error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("sqlite: close database: %w", err)
	}
	return nil
}

func buildDSN(cfg *Config) string {
	pragmas := []string{
		fmt.Sprintf("_pragma=busy_timeout(%d)", cfg.BusyTimeout.Milliseconds()),
		"_pragma=foreign_keys(ON)",
	}
	if cfg.Path == memoryPath {
		return "file::memory:?" + strings.Join(pragmas, "&")
	}
	pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	return "file:" + cfg.Path + "?" + strings.Join(pragmas, "&")
}
