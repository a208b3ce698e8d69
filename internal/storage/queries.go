package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pable/highlight-clipper/internal/model"
)

const timeLayout = time.RFC3339

// SaveMatchPayload stores the raw match_info JSON, zstd-compressed. Uses
// INSERT OR REPLACE for idempotency.
func (db *DB) SaveMatchPayload(ctx context.Context, matchID int64, payload []byte) error {
	blob := db.enc.EncodeAll(payload, nil)
	_, err := db.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO matches(match_id, payload, fetched_at)
		VALUES (?, ?, ?)`,
		matchID, blob, time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert match %d: %w", matchID, err)
	}
	return nil
}

// LoadMatchPayload returns the stored match_info JSON, or ok=false when the
// match has not been cached.
func (db *DB) LoadMatchPayload(ctx context.Context, matchID int64) ([]byte, bool, error) {
	var blob []byte
	err := db.conn.QueryRowContext(ctx, "SELECT payload FROM matches WHERE match_id = ?", matchID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	payload, err := db.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, false, fmt.Errorf("decompress match %d: %w", matchID, err)
	}
	return payload, true, nil
}

// RecordClip adds a produced clip to the ledger.
func (db *DB) RecordClip(ctx context.Context, c model.ClipRecord) error {
	created := c.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO clips(path, channel_id, account_id, video_id, match_id, kind, video_start_ms, video_end_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Path, c.ChannelID, c.AccountID, c.VideoID, c.MatchID, c.Kind,
		c.VideoStart.Milliseconds(), c.VideoEnd.Milliseconds(),
		created.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert clip %s: %w", c.Path, err)
	}
	return nil
}

// ListClips returns the ledger entries of a channel, newest first.
func (db *DB) ListClips(ctx context.Context, channelID string) ([]model.ClipRecord, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT path, channel_id, account_id, video_id, match_id, kind, video_start_ms, video_end_ms, created_at
		FROM clips WHERE channel_id = ?
		ORDER BY created_at DESC, path`, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ClipRecord
	for rows.Next() {
		var c model.ClipRecord
		var startMs, endMs int64
		var created string
		if err := rows.Scan(&c.Path, &c.ChannelID, &c.AccountID, &c.VideoID, &c.MatchID, &c.Kind,
			&startMs, &endMs, &created); err != nil {
			return nil, err
		}
		c.VideoStart = time.Duration(startMs) * time.Millisecond
		c.VideoEnd = time.Duration(endMs) * time.Millisecond
		if c.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("parse created_at of %s: %w", c.Path, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveOffset records the calibrated clock offset for a match within a video.
func (db *DB) SaveOffset(ctx context.Context, videoID string, matchID int64, offset time.Duration) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO offsets(video_id, match_id, offset_ms, computed_at)
		VALUES (?, ?, ?, ?)`,
		videoID, matchID, offset.Milliseconds(), time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert offset %s/%d: %w", videoID, matchID, err)
	}
	return nil
}

// LoadOffset returns a previously computed offset, or ok=false if none exists.
func (db *DB) LoadOffset(ctx context.Context, videoID string, matchID int64) (time.Duration, bool, error) {
	var ms int64
	err := db.conn.QueryRowContext(ctx,
		"SELECT offset_ms FROM offsets WHERE video_id = ? AND match_id = ?", videoID, matchID).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return time.Duration(ms) * time.Millisecond, true, nil
}
