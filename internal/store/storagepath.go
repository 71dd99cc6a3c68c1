package store

import "database/sql"

// UpsertStoragePath inserts or overwrites a cached storage path.
func (db *DB) UpsertStoragePath(p *StoragePath) error {
	if p.SyncedAt == 0 {
		p.SyncedAt = nowMillis()
	}
	_, err := db.Exec(`
		INSERT INTO storage_paths (id, name, path, is_deleted, synced_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			path = excluded.path,
			is_deleted = excluded.is_deleted,
			synced_at = excluded.synced_at`,
		p.ID, p.Name, p.Path, p.IsDeleted, p.SyncedAt)
	if err != nil {
		return err
	}
	db.emit(KindMetadataUpserted, p.ID)
	return nil
}

// UpsertStoragePaths overwrites a batch of storage paths in one transaction.
func (db *DB) UpsertStoragePaths(paths []StoragePath) error {
	if len(paths) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := nowMillis()
	for i := range paths {
		p := &paths[i]
		if p.SyncedAt == 0 {
			p.SyncedAt = now
		}
		if _, err := tx.Exec(`
			INSERT INTO storage_paths (id, name, path, is_deleted, synced_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				path = excluded.path,
				is_deleted = excluded.is_deleted,
				synced_at = excluded.synced_at`,
			p.ID, p.Name, p.Path, p.IsDeleted, p.SyncedAt); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	db.emit(KindMetadataUpserted, int64(len(paths)))
	return nil
}

// GetStoragePath returns a cached storage path, or nil if absent or soft-deleted.
func (db *DB) GetStoragePath(id int64) (*StoragePath, error) {
	var p StoragePath
	err := db.QueryRow(`
		SELECT id, name, path, is_deleted, synced_at
		FROM storage_paths WHERE id = ? AND is_deleted = 0`, id).
		Scan(&p.ID, &p.Name, &p.Path, &p.IsDeleted, &p.SyncedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListStoragePaths returns all active cached storage paths ordered by name.
func (db *DB) ListStoragePaths() ([]StoragePath, error) {
	rows, err := db.Query(`
		SELECT id, name, path, is_deleted, synced_at
		FROM storage_paths WHERE is_deleted = 0 ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var paths []StoragePath
	for rows.Next() {
		var p StoragePath
		if err := rows.Scan(&p.ID, &p.Name, &p.Path, &p.IsDeleted, &p.SyncedAt); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// HardDeleteStoragePath removes a storage path row.
func (db *DB) HardDeleteStoragePath(id int64) error {
	_, err := db.Exec(`DELETE FROM storage_paths WHERE id = ?`, id)
	if err != nil {
		return err
	}
	db.emit(KindMetadataUpserted, id)
	return nil
}
