package store

import "database/sql"

// UpsertTag inserts or overwrites a cached tag snapshot.
func (db *DB) UpsertTag(t *Tag) error {
	if t.SyncedAt == 0 {
		t.SyncedAt = nowMillis()
	}
	_, err := db.Exec(`
		INSERT INTO tags (id, name, color, is_inbox_tag, document_count, is_deleted, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			color = excluded.color,
			is_inbox_tag = excluded.is_inbox_tag,
			document_count = excluded.document_count,
			is_deleted = excluded.is_deleted,
			synced_at = excluded.synced_at`,
		t.ID, t.Name, t.Color, t.IsInboxTag, t.DocumentCount, t.IsDeleted, t.SyncedAt)
	if err != nil {
		return err
	}
	db.emit(KindTagUpserted, t.ID)
	return nil
}

// UpsertTags overwrites a batch of cached tags in one transaction.
func (db *DB) UpsertTags(tags []Tag) error {
	if len(tags) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := nowMillis()
	for i := range tags {
		t := &tags[i]
		if t.SyncedAt == 0 {
			t.SyncedAt = now
		}
		if _, err := tx.Exec(`
			INSERT INTO tags (id, name, color, is_inbox_tag, document_count, is_deleted, synced_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				color = excluded.color,
				is_inbox_tag = excluded.is_inbox_tag,
				document_count = excluded.document_count,
				is_deleted = excluded.is_deleted,
				synced_at = excluded.synced_at`,
			t.ID, t.Name, t.Color, t.IsInboxTag, t.DocumentCount, t.IsDeleted, t.SyncedAt); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	for i := range tags {
		db.emit(KindTagUpserted, tags[i].ID)
	}
	return nil
}

// GetTag returns a cached tag by id, or nil if absent or soft-deleted.
func (db *DB) GetTag(id int64) (*Tag, error) {
	var t Tag
	err := db.QueryRow(`
		SELECT id, name, color, is_inbox_tag, document_count, is_deleted, synced_at
		FROM tags WHERE id = ? AND is_deleted = 0`, id).
		Scan(&t.ID, &t.Name, &t.Color, &t.IsInboxTag, &t.DocumentCount, &t.IsDeleted, &t.SyncedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTags returns all active cached tags ordered by name.
func (db *DB) ListTags() ([]Tag, error) {
	rows, err := db.Query(`
		SELECT id, name, color, is_inbox_tag, document_count, is_deleted, synced_at
		FROM tags WHERE is_deleted = 0 ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.IsInboxTag, &t.DocumentCount, &t.IsDeleted, &t.SyncedAt); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// SoftDeleteTag marks a tag deleted pending sync confirmation.
func (db *DB) SoftDeleteTag(id int64) error {
	_, err := db.Exec(`UPDATE tags SET is_deleted = 1, synced_at = ? WHERE id = ?`, nowMillis(), id)
	if err != nil {
		return err
	}
	db.emit(KindTagDeleted, id)
	return nil
}

// HardDeleteTag removes a tag row and its document joins.
func (db *DB) HardDeleteTag(id int64) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM document_tags WHERE tag_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM tags WHERE id = ?`, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	db.emit(KindTagDeleted, id)
	return nil
}

// AdjustTagDocumentCount shifts a tag's cached document count by delta,
// clamped at zero. Used for best-effort bookkeeping when a document's tag
// set changes locally.
func (db *DB) AdjustTagDocumentCount(id int64, delta int64) error {
	_, err := db.Exec(`
		UPDATE tags SET document_count = MAX(0, document_count + ?), synced_at = ?
		WHERE id = ?`, delta, nowMillis(), id)
	if err != nil {
		return err
	}
	db.emit(KindTagUpserted, id)
	return nil
}
