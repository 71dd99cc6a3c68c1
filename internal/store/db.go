package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/napoleonmm83/paperless-scanner-sub004/internal/bus"
)

// DB wraps a SQLite database connection for the app-owned sync.db.
// Mutating operations publish on the bus after the write commits, so
// observers always re-query state that already includes the change.
type DB struct {
	*sql.DB
	bus *bus.Bus
}

// Open creates a new SQLite connection with WAL mode and recommended pragmas.
// The bus may be nil; no events are published in that case.
func Open(path string, b *bus.Bus) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Verify connection.
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{DB: db, bus: b}, nil
}

// Event kinds published by this package, re-exported so call sites in the
// store read naturally.
const (
	KindDocumentUpserted = bus.KindDocumentUpserted
	KindDocumentDeleted  = bus.KindDocumentDeleted
	KindTagUpserted      = bus.KindTagUpserted
	KindTagDeleted       = bus.KindTagDeleted
	KindMetadataUpserted = bus.KindMetadataUpserted
	KindTaskUpserted     = bus.KindTaskUpserted
	KindPendingQueued    = bus.KindPendingQueued
	KindPendingReplayed  = bus.KindPendingReplayed
	KindUploadQueued     = bus.KindUploadQueued
	KindUploadStarted    = bus.KindUploadStarted
	KindUploadCompleted  = bus.KindUploadCompleted
	KindUploadFailed     = bus.KindUploadFailed
	KindHistoryRecorded  = bus.KindHistoryRecorded
)

func (db *DB) emit(kind string, payload any) {
	if db.bus != nil {
		db.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
