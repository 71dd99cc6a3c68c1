package store

import "database/sql"

// UpsertTask inserts or overwrites a cached server task snapshot
// (idempotent on the server-assigned task uuid).
func (db *DB) UpsertTask(t *Task) error {
	if t.SyncedAt == 0 {
		t.SyncedAt = nowMillis()
	}
	_, err := db.Exec(`
		INSERT INTO tasks (uuid, status, acknowledged, related_document, result, created, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uuid) DO UPDATE SET
			status = excluded.status,
			acknowledged = excluded.acknowledged,
			related_document = excluded.related_document,
			result = excluded.result,
			created = excluded.created,
			synced_at = excluded.synced_at`,
		t.UUID, t.Status, t.Acknowledged, t.RelatedDocument, t.Result, t.Created, t.SyncedAt)
	if err != nil {
		return err
	}
	db.emit(KindTaskUpserted, t.UUID)
	return nil
}

// UpsertTasks overwrites a batch of task snapshots in one transaction.
func (db *DB) UpsertTasks(tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := nowMillis()
	for i := range tasks {
		t := &tasks[i]
		if t.SyncedAt == 0 {
			t.SyncedAt = now
		}
		if _, err := tx.Exec(`
			INSERT INTO tasks (uuid, status, acknowledged, related_document, result, created, synced_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(uuid) DO UPDATE SET
				status = excluded.status,
				acknowledged = excluded.acknowledged,
				related_document = excluded.related_document,
				result = excluded.result,
				created = excluded.created,
				synced_at = excluded.synced_at`,
			t.UUID, t.Status, t.Acknowledged, t.RelatedDocument, t.Result, t.Created, t.SyncedAt); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	for i := range tasks {
		db.emit(KindTaskUpserted, tasks[i].UUID)
	}
	return nil
}

// GetTask returns a cached task by uuid, or nil if absent.
func (db *DB) GetTask(uuid string) (*Task, error) {
	row := db.QueryRow(`
		SELECT uuid, status, acknowledged, related_document, result, created, synced_at
		FROM tasks WHERE uuid = ?`, uuid)
	return scanTask(row)
}

// ListTasks returns cached tasks, newest first. When unackedOnly is set,
// acknowledged tasks are excluded.
func (db *DB) ListTasks(unackedOnly bool, limit int) ([]Task, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT uuid, status, acknowledged, related_document, result, created, synced_at FROM tasks`
	if unackedOnly {
		q += ` WHERE acknowledged = 0`
	}
	q += ` ORDER BY created DESC LIMIT ?`

	rows, err := db.Query(q, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// AcknowledgeTask marks a cached task acknowledged.
func (db *DB) AcknowledgeTask(uuid string) error {
	_, err := db.Exec(`UPDATE tasks SET acknowledged = 1, synced_at = ? WHERE uuid = ?`, nowMillis(), uuid)
	if err != nil {
		return err
	}
	db.emit(KindTaskUpserted, uuid)
	return nil
}

// DeleteTask removes a cached task row.
func (db *DB) DeleteTask(uuid string) error {
	_, err := db.Exec(`DELETE FROM tasks WHERE uuid = ?`, uuid)
	return err
}

func scanTask(row rowScanner) (*Task, error) {
	var t Task
	var related sql.NullInt64
	err := row.Scan(&t.UUID, &t.Status, &t.Acknowledged, &related, &t.Result, &t.Created, &t.SyncedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if related.Valid {
		t.RelatedDocument = &related.Int64
	}
	return &t, nil
}
