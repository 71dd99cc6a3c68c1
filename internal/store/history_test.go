package store

import (
	"testing"
	"time"
)

func TestRecordAndQuerySyncHistory(t *testing.T) {
	db := testDB(t)

	if _, err := db.RecordSyncHistory(&SyncHistoryEntry{
		ActionType: "upload", Title: "Scan A", Success: true, DocumentIDs: []int64{12},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := db.RecordSyncHistory(&SyncHistoryEntry{
		ActionType: "upload", Title: "Scan B", Success: false,
		UserMessage: "Server unreachable", TechnicalError: "dial tcp: timeout",
	}); err != nil {
		t.Fatal(err)
	}

	all, err := db.RecentSyncHistory(nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d entries, want 2", len(all))
	}

	ok := true
	succeeded, err := db.RecentSyncHistory(&ok, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(succeeded) != 1 || succeeded[0].Title != "Scan A" {
		t.Errorf("successful = %v, want Scan A only", succeeded)
	}
	if len(succeeded[0].DocumentIDs) != 1 || succeeded[0].DocumentIDs[0] != 12 {
		t.Errorf("document ids = %v, want [12]", succeeded[0].DocumentIDs)
	}

	n, err := db.FailedSyncHistoryCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("failed count = %d, want 1", n)
	}
}

func TestPruneSyncHistoryByAge(t *testing.T) {
	db := testDB(t)

	old := time.Now().Add(-40 * 24 * time.Hour)
	if _, err := db.RecordSyncHistory(&SyncHistoryEntry{
		ActionType: "upload", Title: "Ancient", Success: true, CreatedAt: old.UnixMilli(),
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := db.RecordSyncHistory(&SyncHistoryEntry{
		ActionType: "upload", Title: "Fresh", Success: true,
	}); err != nil {
		t.Fatal(err)
	}

	pruned, err := db.PruneSyncHistory(time.Now().Add(-30 * 24 * time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if pruned != 1 {
		t.Errorf("pruned %d entries, want 1", pruned)
	}

	remaining, err := db.RecentSyncHistory(nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 1 || remaining[0].Title != "Fresh" {
		t.Errorf("remaining = %v, want only Fresh", remaining)
	}
}

func TestClearFailedSyncHistory(t *testing.T) {
	db := testDB(t)

	if err := db.RecordSyncHistoryBatch([]SyncHistoryEntry{
		{ActionType: "upload", Title: "ok", Success: true},
		{ActionType: "upload", Title: "bad", Success: false},
		{ActionType: "replay", Title: "worse", Success: false},
	}); err != nil {
		t.Fatal(err)
	}

	if err := db.ClearFailedSyncHistory(); err != nil {
		t.Fatal(err)
	}
	all, err := db.RecentSyncHistory(nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || !all[0].Success {
		t.Errorf("after clear-failed: %v, want only the success entry", all)
	}

	if err := db.ClearSyncHistory(); err != nil {
		t.Fatal(err)
	}
	all, err = db.RecentSyncHistory(nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Errorf("after clear-all: %d entries, want 0", len(all))
	}
}

func TestDeleteSyncHistoryEntry(t *testing.T) {
	db := testDB(t)

	id, err := db.RecordSyncHistory(&SyncHistoryEntry{ActionType: "upload", Title: "x", Success: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteSyncHistoryEntry(id); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteSyncHistoryEntry(id); err == nil {
		t.Error("deleting a missing entry should error")
	}
}
