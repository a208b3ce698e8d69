package storage

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/pable/highlight-clipper/internal/model"
)

func openMemDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMatchPayloadCache(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()

	if _, ok, err := db.LoadMatchPayload(ctx, 1); err != nil || ok {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}

	payload := bytes.Repeat([]byte(`{"game_time_s":95,"killer_player_slot":1},`), 200)
	if err := db.SaveMatchPayload(ctx, 1, payload); err != nil {
		t.Fatalf("SaveMatchPayload: %v", err)
	}

	var stored int
	db.conn.QueryRow("SELECT length(payload) FROM matches WHERE match_id = 1").Scan(&stored)
	if stored >= len(payload) {
		t.Errorf("expected compressed payload smaller than %d bytes, got %d", len(payload), stored)
	}

	got, ok, err := db.LoadMatchPayload(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("LoadMatchPayload: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("payload mismatch after decompression")
	}
}

func TestClipLedger(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()

	older := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
	recs := []model.ClipRecord{
		{Path: "clips/a/multikill/0-K7-V3.mp4", ChannelID: "42", AccountID: 100, VideoID: "v1", MatchID: 7,
			Kind: "multikill", VideoStart: 90 * time.Second, VideoEnd: 125*time.Second + 500*time.Millisecond, CreatedAt: older},
		{Path: "clips/a/team_fight/100-K5.mp4", ChannelID: "42", AccountID: 100, VideoID: "v1", MatchID: 7,
			Kind: "team_fight", VideoStart: 200 * time.Second, VideoEnd: 240 * time.Second, CreatedAt: older.Add(time.Minute)},
		{Path: "clips/b/kill/1-K1-V2-3.mp4", ChannelID: "99", AccountID: 5, VideoID: "v9", MatchID: 8,
			Kind: "kill", CreatedAt: older},
	}
	for _, r := range recs {
		if err := db.RecordClip(ctx, r); err != nil {
			t.Fatalf("RecordClip: %v", err)
		}
	}
	// Re-recording the same path replaces the row.
	if err := db.RecordClip(ctx, recs[0]); err != nil {
		t.Fatalf("second RecordClip should succeed (idempotent): %v", err)
	}

	got, err := db.ListClips(ctx, "42")
	if err != nil {
		t.Fatalf("ListClips: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 clips for channel 42, got %d", len(got))
	}
	if got[0].Kind != "team_fight" {
		t.Errorf("expected newest clip first, got %s", got[0].Kind)
	}
	if got[1].VideoEnd != recs[0].VideoEnd || got[1].VideoStart != 90*time.Second {
		t.Errorf("window mismatch: %v-%v", got[1].VideoStart, got[1].VideoEnd)
	}
	if !got[1].CreatedAt.Equal(older) {
		t.Errorf("CreatedAt = %v, want %v", got[1].CreatedAt, older)
	}
}

func TestOffsets(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()

	if _, ok, err := db.LoadOffset(ctx, "v1", 7); err != nil || ok {
		t.Fatalf("expected no offset, ok=%v err=%v", ok, err)
	}
	if err := db.SaveOffset(ctx, "v1", 7, -7250*time.Millisecond); err != nil {
		t.Fatalf("SaveOffset: %v", err)
	}
	if err := db.SaveOffset(ctx, "v1", 7, -7*time.Second); err != nil {
		t.Fatalf("SaveOffset overwrite: %v", err)
	}

	off, ok, err := db.LoadOffset(ctx, "v1", 7)
	if err != nil || !ok {
		t.Fatalf("LoadOffset: ok=%v err=%v", ok, err)
	}
	if off != -7*time.Second {
		t.Errorf("offset = %v, want -7s", off)
	}
	if _, ok, _ := db.LoadOffset(ctx, "v2", 7); ok {
		t.Error("offset should be keyed by video as well as match")
	}
}
