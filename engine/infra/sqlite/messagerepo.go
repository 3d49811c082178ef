package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/senvr/senvr/engine/corpus"
	"github.com/senvr/senvr/engine/trainer"
)

// MessageRecord is one accepted message as stored in message_records.
type MessageRecord struct {
	ID      corpus.MessageID
	Channel corpus.ChannelID
	Author  corpus.AuthorID
	Content string
}

// MessageRepo stores accepted messages once each. Recently recorded ids are kept in an
// LRU so repeated deliveries skip the database.
type MessageRepo struct {
	db     *sql.DB
	recent *lru.Cache[corpus.MessageID, struct{}]
}

var _ trainer.Recorder = (*MessageRepo)(nil)

func NewMessageRepo(db *sql.DB, cacheSize int) (*MessageRepo, error) {
	recent, err := lru.New[corpus.MessageID, struct{}](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("sqlite: create message cache: %w", err)
	}
	return &MessageRepo{db: db, recent: recent}, nil
}

// Record inserts unit unless its id was already stored.
func (r *MessageRepo) Record(ctx context.Context, unit corpus.TextUnit) error {
	if unit.ID == "" || r.recent.Contains(unit.ID) {
		return nil
	}
	const q = `INSERT INTO message_records (message_id, channel_id, author_id, content)
		VALUES (?, ?, ?, ?) ON CONFLICT(message_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, q, string(unit.ID), string(unit.Channel), string(unit.Author), unit.Content)
	if err != nil {
		return fmt.Errorf("sqlite: record message: %w", err)
	}
	r.recent.Add(unit.ID, struct{}{})
	return nil
}

// Seen reports whether id was recorded before.
func (r *MessageRepo) Seen(ctx context.Context, id corpus.MessageID) (bool, error) {
	if r.recent.Contains(id) {
		return true, nil
	}
	const q = `SELECT 1 FROM message_records WHERE message_id = ?`
	var one int
	if err := r.db.QueryRowContext(ctx, q, string(id)).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("sqlite: lookup message: %w", err)
	}
	r.recent.Add(id, struct{}{})
	return true, nil
}

// Count returns the number of recorded messages.
func (r *MessageRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM message_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count messages: %w", err)
	}
	return n, nil
}

// Each calls fn for every record, oldest first, stopping at the first error.
func (r *MessageRepo) Each(ctx context.Context, fn func(MessageRecord) error) error {
	const q = `SELECT message_id, channel_id, author_id, content FROM message_records ORDER BY rowid`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return fmt.Errorf("sqlite: list messages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, channel, author, content string
		if err := rows.Scan(&id, &channel, &author, &content); err != nil {
			return fmt.Errorf("sqlite: scan message: %w", err)
		}
		rec := MessageRecord{
			ID:      corpus.MessageID(id),
			Channel: corpus.ChannelID(channel),
			Author:  corpus.AuthorID(author),
			Content: content,
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: iter messages: %w", err)
	}
	return nil
}

// Unit converts the record back into a training unit.
func (m MessageRecord) Unit() corpus.TextUnit {
	return corpus.TextUnit{ID: m.ID, Channel: m.Channel, Author: m.Author, Content: m.Content}
}
