package store

// EnqueueChange records an offline mutation for later replay. At most one row
// exists per (entity type, entity id): a newer change replaces the payload
// wholesale (last write wins), a delete supersedes any earlier change, and an
// update following an unsynced create stays a create so replay still issues
// the initial POST. The original created_at is kept so replay order follows
// the first time the entity was touched.
func (db *DB) EnqueueChange(c *PendingChange) error {
	if c.CreatedAt == 0 {
		c.CreatedAt = nowMillis()
	}
	_, err := db.Exec(`
		INSERT INTO pending_changes (entity_type, entity_id, change_type, change_data, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(entity_type, entity_id) DO UPDATE SET
			change_type = CASE
				WHEN excluded.change_type = 'delete' THEN 'delete'
				WHEN pending_changes.change_type = 'create' THEN 'create'
				ELSE excluded.change_type
			END,
			change_data = excluded.change_data`,
		string(c.EntityType), c.EntityID, string(c.ChangeType), c.ChangeData, c.CreatedAt)
	if err != nil {
		return err
	}
	db.emit(KindPendingQueued, c.EntityID)
	return nil
}

// PendingChanges returns the change log in FIFO order by creation time.
func (db *DB) PendingChanges() ([]PendingChange, error) {
	rows, err := db.Query(`
		SELECT id, entity_type, entity_id, change_type, change_data, created_at
		FROM pending_changes ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var changes []PendingChange
	for rows.Next() {
		var c PendingChange
		if err := rows.Scan(&c.ID, &c.EntityType, &c.EntityID, &c.ChangeType, &c.ChangeData, &c.CreatedAt); err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

// RemovePendingChange deletes the logged change for an entity after it has
// been confirmed replayed. Removing an absent row is a no-op.
func (db *DB) RemovePendingChange(entityType EntityType, entityID int64) error {
	_, err := db.Exec(`DELETE FROM pending_changes WHERE entity_type = ? AND entity_id = ?`,
		string(entityType), entityID)
	if err != nil {
		return err
	}
	db.emit(KindPendingReplayed, entityID)
	return nil
}

// PendingChangeCount returns the number of changes awaiting replay.
func (db *DB) PendingChangeCount() (int64, error) {
	var n int64
	err := db.QueryRow(`SELECT COUNT(*) FROM pending_changes`).Scan(&n)
	return n, err
}
