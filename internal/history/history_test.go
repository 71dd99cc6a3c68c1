package history

import (
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/napoleonmm83/paperless-scanner-sub004/internal/bus"
	"github.com/napoleonmm83/paperless-scanner-sub004/internal/store"
)

func testService(t *testing.T, retention time.Duration) (*Service, *store.DB) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "sync.db"), bus.New())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	return New(db, retention, zap.NewNop()), db
}

func record(t *testing.T, db *store.DB, title string, success bool, age time.Duration) {
	t.Helper()
	_, err := db.RecordSyncHistory(&store.SyncHistoryEntry{
		ActionType: "upload",
		Title:      title,
		Success:    success,
		CreatedAt:  time.Now().Add(-age).UnixMilli(),
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestPruneRespectsRetention(t *testing.T) {
	s, db := testService(t, 30*24*time.Hour)
	record(t, db, "old", true, 40*24*time.Hour)
	record(t, db, "recent", true, time.Hour)

	if n := s.Prune(); n != 1 {
		t.Errorf("pruned = %d, want 1", n)
	}

	entries, err := s.Recent(nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Title != "recent" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestClearFailedKeepsSuccesses(t *testing.T) {
	s, db := testService(t, 30*24*time.Hour)
	record(t, db, "good", true, time.Hour)
	record(t, db, "bad", false, time.Hour)

	n, err := s.FailedCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("failed count = %d", n)
	}

	if err := s.ClearFailed(); err != nil {
		t.Fatal(err)
	}
	entries, err := s.Recent(nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || !entries[0].Success {
		t.Errorf("entries = %+v", entries)
	}
}

func TestDeleteSingleEntry(t *testing.T) {
	s, db := testService(t, 30*24*time.Hour)
	record(t, db, "only", true, time.Hour)
	entries, err := s.Recent(nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(entries[0].ID); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(entries[0].ID); err == nil {
		t.Error("deleting a missing entry should error")
	}
}
