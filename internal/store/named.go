package store

import (
	"database/sql"
	"fmt"
)

// Correspondents and document types share one storage shape; the operations
// below are implemented once against a table name and wrapped per entity.
// Table names are compile-time constants, never caller input.

func (db *DB) upsertNamed(table string, e *NamedEntity) error {
	if e.SyncedAt == 0 {
		e.SyncedAt = nowMillis()
	}
	_, err := db.Exec(fmt.Sprintf(`
		INSERT INTO %s (id, name, document_count, is_deleted, synced_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			document_count = excluded.document_count,
			is_deleted = excluded.is_deleted,
			synced_at = excluded.synced_at`, table),
		e.ID, e.Name, e.DocumentCount, e.IsDeleted, e.SyncedAt)
	if err != nil {
		return err
	}
	db.emit(KindMetadataUpserted, e.ID)
	return nil
}

func (db *DB) upsertNamedBatch(table string, entities []NamedEntity) error {
	if len(entities) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := nowMillis()
	for i := range entities {
		e := &entities[i]
		if e.SyncedAt == 0 {
			e.SyncedAt = now
		}
		if _, err := tx.Exec(fmt.Sprintf(`
			INSERT INTO %s (id, name, document_count, is_deleted, synced_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				document_count = excluded.document_count,
				is_deleted = excluded.is_deleted,
				synced_at = excluded.synced_at`, table),
			e.ID, e.Name, e.DocumentCount, e.IsDeleted, e.SyncedAt); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	db.emit(KindMetadataUpserted, int64(len(entities)))
	return nil
}

func (db *DB) getNamed(table string, id int64) (*NamedEntity, error) {
	var e NamedEntity
	err := db.QueryRow(fmt.Sprintf(`
		SELECT id, name, document_count, is_deleted, synced_at
		FROM %s WHERE id = ? AND is_deleted = 0`, table), id).
		Scan(&e.ID, &e.Name, &e.DocumentCount, &e.IsDeleted, &e.SyncedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (db *DB) listNamed(table string) ([]NamedEntity, error) {
	rows, err := db.Query(fmt.Sprintf(`
		SELECT id, name, document_count, is_deleted, synced_at
		FROM %s WHERE is_deleted = 0 ORDER BY name COLLATE NOCASE`, table))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entities []NamedEntity
	for rows.Next() {
		var e NamedEntity
		if err := rows.Scan(&e.ID, &e.Name, &e.DocumentCount, &e.IsDeleted, &e.SyncedAt); err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

func (db *DB) softDeleteNamed(table string, id int64) error {
	_, err := db.Exec(fmt.Sprintf(`UPDATE %s SET is_deleted = 1, synced_at = ? WHERE id = ?`, table), nowMillis(), id)
	if err != nil {
		return err
	}
	db.emit(KindMetadataUpserted, id)
	return nil
}

func (db *DB) hardDeleteNamed(table string, id int64) error {
	_, err := db.Exec(fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table), id)
	if err != nil {
		return err
	}
	db.emit(KindMetadataUpserted, id)
	return nil
}

// Correspondent operations.

func (db *DB) UpsertCorrespondent(e *NamedEntity) error { return db.upsertNamed("correspondents", e) }
func (db *DB) UpsertCorrespondents(es []NamedEntity) error {
	return db.upsertNamedBatch("correspondents", es)
}
func (db *DB) GetCorrespondent(id int64) (*NamedEntity, error) {
	return db.getNamed("correspondents", id)
}
func (db *DB) ListCorrespondents() ([]NamedEntity, error) { return db.listNamed("correspondents") }
func (db *DB) SoftDeleteCorrespondent(id int64) error {
	return db.softDeleteNamed("correspondents", id)
}
func (db *DB) HardDeleteCorrespondent(id int64) error { return db.hardDeleteNamed("correspondents", id) }

// Document type operations.

func (db *DB) UpsertDocumentType(e *NamedEntity) error { return db.upsertNamed("document_types", e) }
func (db *DB) UpsertDocumentTypes(es []NamedEntity) error {
	return db.upsertNamedBatch("document_types", es)
}
func (db *DB) GetDocumentType(id int64) (*NamedEntity, error) {
	return db.getNamed("document_types", id)
}
func (db *DB) ListDocumentTypes() ([]NamedEntity, error) { return db.listNamed("document_types") }
func (db *DB) SoftDeleteDocumentType(id int64) error {
	return db.softDeleteNamed("document_types", id)
}
func (db *DB) HardDeleteDocumentType(id int64) error { return db.hardDeleteNamed("document_types", id) }
