package store

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmylchreest/instacomment/internal/crypto"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestStore(t *testing.T, withKey bool) *SQLiteStore {
	t.Helper()

	var enc *crypto.Encryptor
	if withKey {
		key, err := crypto.DeriveKey("test secret")
		if err != nil {
			t.Fatalf("DeriveKey: %v", err)
		}
		enc, err = crypto.NewEncryptor(key)
		if err != nil {
			t.Fatalf("NewEncryptor: %v", err)
		}
	}

	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sub", "test.db"), enc, testLogger())
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_Cookies(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		s := newTestStore(t, true)
		raw, updatedAt, err := s.LoadCookies(ctx)
		if err != nil {
			t.Fatalf("LoadCookies: %v", err)
		}
		if raw != "" || !updatedAt.IsZero() {
			t.Errorf("LoadCookies = %q, %v; want empty", raw, updatedAt)
		}
	})

	t.Run("save and overwrite", func(t *testing.T) {
		s := newTestStore(t, true)
		if err := s.SaveCookies(ctx, "sessionid=a; csrftoken=b"); err != nil {
			t.Fatalf("SaveCookies: %v", err)
		}
		if err := s.SaveCookies(ctx, "sessionid=a; csrftoken=c"); err != nil {
			t.Fatalf("SaveCookies (overwrite): %v", err)
		}

		raw, updatedAt, err := s.LoadCookies(ctx)
		if err != nil {
			t.Fatalf("LoadCookies: %v", err)
		}
		if raw != "sessionid=a; csrftoken=c" {
			t.Errorf("LoadCookies = %q", raw)
		}
		if updatedAt.IsZero() {
			t.Error("expected updatedAt to be set")
		}
	})

	t.Run("stored value is not plaintext", func(t *testing.T) {
		s := newTestStore(t, true)
		if err := s.SaveCookies(ctx, "sessionid=plaintext-marker"); err != nil {
			t.Fatalf("SaveCookies: %v", err)
		}
		var stored string
		if err := s.db.QueryRow("SELECT cookies_enc FROM session_cookies").Scan(&stored); err != nil {
			t.Fatalf("query: %v", err)
		}
		if stored == "" || stored == "sessionid=plaintext-marker" {
			t.Errorf("stored value %q is not encrypted", stored)
		}
	})

	t.Run("refuses without key", func(t *testing.T) {
		s := newTestStore(t, false)
		if s.CanPersistCookies() {
			t.Error("CanPersistCookies = true, want false")
		}
		if err := s.SaveCookies(ctx, "sessionid=a"); !errors.Is(err, ErrNoEncryptor) {
			t.Errorf("SaveCookies err = %v, want ErrNoEncryptor", err)
		}
		if _, _, err := s.LoadCookies(ctx); !errors.Is(err, ErrNoEncryptor) {
			t.Errorf("LoadCookies err = %v, want ErrNoEncryptor", err)
		}
	})
}

func TestSQLiteStore_Runs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, false)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		run := &RunRecord{
			ID:        id,
			Job:       "comment",
			Status:    "running",
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.RecordRun(ctx, run); err != nil {
			t.Fatalf("RecordRun(%s): %v", id, err)
		}
	}
	if err := s.RecordRun(ctx, &RunRecord{ID: "other", Job: "other", Status: "completed", StartedAt: base}); err != nil {
		t.Fatalf("RecordRun(other): %v", err)
	}

	finished := base.Add(10 * time.Minute)
	if err := s.RecordRun(ctx, &RunRecord{
		ID:          "run-b",
		Job:         "comment",
		Status:      "completed",
		StartedAt:   base.Add(time.Minute),
		FinishedAt:  &finished,
		ItemsTotal:  3,
		ItemsFailed: 1,
	}); err != nil {
		t.Fatalf("RecordRun(update): %v", err)
	}

	runs, err := s.ListRuns(ctx, "comment", 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("len(runs) = %d, want 3", len(runs))
	}
	if runs[0].ID != "run-c" || runs[2].ID != "run-a" {
		t.Errorf("order = %s,%s,%s; want newest first", runs[0].ID, runs[1].ID, runs[2].ID)
	}

	b := runs[1]
	if b.Status != "completed" || b.ItemsTotal != 3 || b.ItemsFailed != 1 {
		t.Errorf("run-b = %+v", b)
	}
	if b.FinishedAt == nil || !b.FinishedAt.Equal(finished) {
		t.Errorf("FinishedAt = %v, want %v", b.FinishedAt, finished)
	}

	limited, err := s.ListRuns(ctx, "comment", 1)
	if err != nil || len(limited) != 1 {
		t.Errorf("ListRuns(limit=1) = %d runs, %v", len(limited), err)
	}

	deleted, err := s.CleanupRunsOlderThan(ctx, base.Add(90*time.Second))
	if err != nil {
		t.Fatalf("CleanupRunsOlderThan: %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3 (run-a, run-b, other)", deleted)
	}
}

func TestSQLiteStore_SubSecondOrdering(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, false)

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	// Inserted out of order; trailing zeros in the fraction must not affect sorting.
	offsets := []time.Duration{
		120 * time.Millisecond,
		0,
		500 * time.Millisecond,
		123 * time.Millisecond,
	}
	for i, off := range offsets {
		rec := &RunRecord{ID: string(rune('a' + i)), Job: "comment", Status: "completed", StartedAt: base.Add(off)}
		if err := s.RecordRun(ctx, rec); err != nil {
			t.Fatalf("RecordRun: %v", err)
		}
	}

	runs, err := s.ListRuns(ctx, "comment", 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	var got []string
	for _, r := range runs {
		got = append(got, r.ID)
	}
	want := []string{"c", "d", "a", "b"}
	if len(got) != len(want) {
		t.Fatalf("ids = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ids = %v, want %v", got, want)
		}
	}
	if !runs[0].StartedAt.Equal(base.Add(500 * time.Millisecond)) {
		t.Errorf("StartedAt = %v", runs[0].StartedAt)
	}

	n, err := s.CleanupRunsOlderThan(ctx, base.Add(121*time.Millisecond))
	if err != nil {
		t.Fatalf("CleanupRunsOlderThan: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d, want 2 (the :00 and :00.12 runs)", n)
	}
}

func TestSQLiteStore_WALMode(t *testing.T) {
	s := newTestStore(t, false)

	var mode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}
