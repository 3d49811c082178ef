package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/senvr/senvr/engine/corpus"
	"github.com/senvr/senvr/engine/watermark"
)

// WatermarkRepo implements watermark.Store on top of a SQLite *sql.DB.
type WatermarkRepo struct{ db *sql.DB }

var _ watermark.Store = (*WatermarkRepo)(nil)

func NewWatermarkRepo(db *sql.DB) *WatermarkRepo { return &WatermarkRepo{db: db} }

func (r *WatermarkRepo) Get(ctx context.Context, channel corpus.ChannelID) (corpus.MessageID, bool, error) {
	const q = `SELECT message_id FROM channel_watermarks WHERE channel_id = ?`
	var id string
	if err := r.db.QueryRowContext(ctx, q, string(channel)).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("sqlite: get watermark: %w", err)
	}
	return corpus.MessageID(id), true, nil
}

func (r *WatermarkRepo) Advance(ctx context.Context, channel corpus.ChannelID, id corpus.MessageID) error {
	const q = `INSERT INTO channel_watermarks (channel_id, message_id) VALUES (?, ?)
		ON CONFLICT(channel_id) DO UPDATE SET message_id = excluded.message_id, updated_at = CURRENT_TIMESTAMP`
	if _, err := r.db.ExecContext(ctx, q, string(channel), string(id)); err != nil {
		return fmt.Errorf("sqlite: advance watermark: %w", err)
	}
	return nil
}

func (r *WatermarkRepo) All(ctx context.Context) (map[corpus.ChannelID]corpus.MessageID, error) {
	const q = `SELECT channel_id, message_id FROM channel_watermarks`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list watermarks: %w", err)
	}
	defer rows.Close()
	out := make(map[corpus.ChannelID]corpus.MessageID)
	for rows.Next() {
		var channel, id string
		if err := rows.Scan(&channel, &id); err != nil {
			return nil, fmt.Errorf("sqlite: scan watermark: %w", err)
		}
		out[corpus.ChannelID(channel)] = corpus.MessageID(id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iter watermarks: %w", err)
	}
	return out, nil
}
