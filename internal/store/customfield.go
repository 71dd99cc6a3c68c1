package store

import "database/sql"

// UpsertCustomFields overwrites the cached custom field definitions.
func (db *DB) UpsertCustomFields(fields []CustomField) error {
	if len(fields) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := nowMillis()
	for i := range fields {
		f := &fields[i]
		if f.SyncedAt == 0 {
			f.SyncedAt = now
		}
		if _, err := tx.Exec(`
			INSERT INTO custom_fields (id, name, data_type, synced_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				data_type = excluded.data_type,
				synced_at = excluded.synced_at`,
			f.ID, f.Name, f.DataType, f.SyncedAt); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	db.emit(KindMetadataUpserted, int64(len(fields)))
	return nil
}

// GetCustomField returns a cached custom field definition, or nil if absent.
func (db *DB) GetCustomField(id int64) (*CustomField, error) {
	var f CustomField
	err := db.QueryRow(`SELECT id, name, data_type, synced_at FROM custom_fields WHERE id = ?`, id).
		Scan(&f.ID, &f.Name, &f.DataType, &f.SyncedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// ListCustomFields returns all cached custom field definitions.
func (db *DB) ListCustomFields() ([]CustomField, error) {
	rows, err := db.Query(`SELECT id, name, data_type, synced_at FROM custom_fields ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var fields []CustomField
	for rows.Next() {
		var f CustomField
		if err := rows.Scan(&f.ID, &f.Name, &f.DataType, &f.SyncedAt); err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}
