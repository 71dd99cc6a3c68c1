package store

import (
	"fmt"
	"time"
)

const historyColumns = `id, action_type, title, details, document_ids, success,
	user_message, technical_error, created_at`

// RecordSyncHistory appends one entry to the sync history log.
func (db *DB) RecordSyncHistory(e *SyncHistoryEntry) (int64, error) {
	if e.CreatedAt == 0 {
		e.CreatedAt = nowMillis()
	}
	res, err := db.Exec(`
		INSERT INTO sync_history (action_type, title, details, document_ids, success,
			user_message, technical_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ActionType, e.Title, e.Details, marshalIDs(e.DocumentIDs), e.Success,
		e.UserMessage, e.TechnicalError, e.CreatedAt)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	e.ID = id
	db.emit(KindHistoryRecorded, id)
	return id, nil
}

// RecordSyncHistoryBatch appends several entries in one transaction.
func (db *DB) RecordSyncHistoryBatch(entries []SyncHistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := nowMillis()
	for i := range entries {
		e := &entries[i]
		if e.CreatedAt == 0 {
			e.CreatedAt = now
		}
		if _, err := tx.Exec(`
			INSERT INTO sync_history (action_type, title, details, document_ids, success,
				user_message, technical_error, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ActionType, e.Title, e.Details, marshalIDs(e.DocumentIDs), e.Success,
			e.UserMessage, e.TechnicalError, e.CreatedAt); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	db.emit(KindHistoryRecorded, int64(len(entries)))
	return nil
}

// RecentSyncHistory returns the newest entries, optionally filtered by outcome.
// Pass nil for success to return both.
func (db *DB) RecentSyncHistory(success *bool, limit int) ([]SyncHistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT ` + historyColumns + ` FROM sync_history`
	var args []any
	if success != nil {
		q += ` WHERE success = ?`
		args = append(args, *success)
	}
	q += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []SyncHistoryEntry
	for rows.Next() {
		var e SyncHistoryEntry
		var ids string
		if err := rows.Scan(&e.ID, &e.ActionType, &e.Title, &e.Details, &ids,
			&e.Success, &e.UserMessage, &e.TechnicalError, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.DocumentIDs = unmarshalIDs(ids)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// FailedSyncHistoryCount returns the number of failure entries in the log.
func (db *DB) FailedSyncHistoryCount() (int64, error) {
	var n int64
	err := db.QueryRow(`SELECT COUNT(*) FROM sync_history WHERE success = 0`).Scan(&n)
	return n, err
}

// PruneSyncHistory removes entries older than the cutoff. Returns the number
// of rows removed.
func (db *DB) PruneSyncHistory(olderThan time.Time) (int64, error) {
	res, err := db.Exec(`DELETE FROM sync_history WHERE created_at < ?`, olderThan.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ClearFailedSyncHistory removes all failure entries.
func (db *DB) ClearFailedSyncHistory() error {
	_, err := db.Exec(`DELETE FROM sync_history WHERE success = 0`)
	return err
}

// ClearSyncHistory empties the log.
func (db *DB) ClearSyncHistory() error {
	_, err := db.Exec(`DELETE FROM sync_history`)
	return err
}

// DeleteSyncHistoryEntry removes a single entry by id.
func (db *DB) DeleteSyncHistoryEntry(id int64) error {
	res, err := db.Exec(`DELETE FROM sync_history WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sync history entry %d not found", id)
	}
	return nil
}
