package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

const documentColumns = `d.id, d.title, d.content, d.original_file_name,
	d.archive_serial_number, d.correspondent_id, d.document_type_id, d.storage_path_id,
	d.custom_fields, d.created, d.added, d.modified, d.is_deleted, d.synced_at`

// UpsertDocument inserts or overwrites a cached document snapshot and its
// tag set. The tag join rows are replaced in the same transaction.
func (db *DB) UpsertDocument(d *Document) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertDocumentTx(tx, d); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	db.emit(KindDocumentUpserted, d.ID)
	return nil
}

// UpsertDocuments overwrites a batch of cached documents in one transaction.
func (db *DB) UpsertDocuments(docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range docs {
		if err := upsertDocumentTx(tx, &docs[i]); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	for i := range docs {
		db.emit(KindDocumentUpserted, docs[i].ID)
	}
	return nil
}

func upsertDocumentTx(tx *sql.Tx, d *Document) error {
	fields, err := json.Marshal(d.CustomFields)
	if err != nil {
		return fmt.Errorf("marshal custom fields: %w", err)
	}
	if d.SyncedAt == 0 {
		d.SyncedAt = nowMillis()
	}
	_, err = tx.Exec(`
		INSERT INTO documents (id, title, content, original_file_name, archive_serial_number,
			correspondent_id, document_type_id, storage_path_id, custom_fields,
			created, added, modified, is_deleted, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			original_file_name = excluded.original_file_name,
			archive_serial_number = excluded.archive_serial_number,
			correspondent_id = excluded.correspondent_id,
			document_type_id = excluded.document_type_id,
			storage_path_id = excluded.storage_path_id,
			custom_fields = excluded.custom_fields,
			created = excluded.created,
			added = excluded.added,
			modified = excluded.modified,
			is_deleted = excluded.is_deleted,
			synced_at = excluded.synced_at`,
		d.ID, d.Title, d.Content, d.OriginalFileName, d.ArchiveSerialNumber,
		d.CorrespondentID, d.DocumentTypeID, d.StoragePathID, string(fields),
		d.Created, d.Added, d.Modified, d.IsDeleted, d.SyncedAt)
	if err != nil {
		return fmt.Errorf("upsert document %d: %w", d.ID, err)
	}

	if _, err := tx.Exec(`DELETE FROM document_tags WHERE document_id = ?`, d.ID); err != nil {
		return fmt.Errorf("clear document tags: %w", err)
	}
	for _, tagID := range d.TagIDs {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO document_tags (document_id, tag_id) VALUES (?, ?)`, d.ID, tagID); err != nil {
			return fmt.Errorf("insert document tag: %w", err)
		}
	}
	return nil
}

// GetDocument returns a cached document by id, or nil if absent or soft-deleted.
func (db *DB) GetDocument(id int64) (*Document, error) {
	row := db.QueryRow(`SELECT `+documentColumns+` FROM documents d WHERE d.id = ? AND d.is_deleted = 0`, id)
	d, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := db.loadDocumentTags(d); err != nil {
		return nil, err
	}
	return d, nil
}

// ListDocuments returns active cached documents matching the filter.
func (db *DB) ListDocuments(f *DocumentFilter) ([]Document, error) {
	if f == nil {
		f = &DocumentFilter{}
	}
	where, args := f.predicate()
	q := `SELECT ` + documentColumns + ` FROM documents d WHERE ` + where + ` ` + f.orderBy()
	if f.Limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range docs {
		if err := db.loadDocumentTags(&docs[i]); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

// CountDocuments counts active cached documents matching the filter.
// It shares the filter's predicate with ListDocuments.
func (db *DB) CountDocuments(f *DocumentFilter) (int64, error) {
	if f == nil {
		f = &DocumentFilter{}
	}
	where, args := f.predicate()
	var n int64
	err := db.QueryRow(`SELECT COUNT(*) FROM documents d WHERE `+where, args...).Scan(&n)
	return n, err
}

// SoftDeleteDocument marks a document deleted without removing the row.
// The row survives until a reconciliation confirms the delete server-side.
func (db *DB) SoftDeleteDocument(id int64) error {
	_, err := db.Exec(`UPDATE documents SET is_deleted = 1, synced_at = ? WHERE id = ?`, nowMillis(), id)
	if err != nil {
		return err
	}
	db.emit(KindDocumentDeleted, id)
	return nil
}

// HardDeleteDocument removes a document row and its tag joins.
func (db *DB) HardDeleteDocument(id int64) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM document_tags WHERE document_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM documents WHERE id = ?`, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	db.emit(KindDocumentDeleted, id)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var d Document
	var asn, corr, dtype, spath sql.NullInt64
	var fields string
	err := row.Scan(&d.ID, &d.Title, &d.Content, &d.OriginalFileName,
		&asn, &corr, &dtype, &spath,
		&fields, &d.Created, &d.Added, &d.Modified, &d.IsDeleted, &d.SyncedAt)
	if err != nil {
		return nil, err
	}
	if asn.Valid {
		d.ArchiveSerialNumber = &asn.Int64
	}
	if corr.Valid {
		d.CorrespondentID = &corr.Int64
	}
	if dtype.Valid {
		d.DocumentTypeID = &dtype.Int64
	}
	if spath.Valid {
		d.StoragePathID = &spath.Int64
	}
	if fields != "" {
		if err := json.Unmarshal([]byte(fields), &d.CustomFields); err != nil {
			return nil, fmt.Errorf("unmarshal custom fields for %d: %w", d.ID, err)
		}
	}
	return &d, nil
}

func (db *DB) loadDocumentTags(d *Document) error {
	rows, err := db.Query(`SELECT tag_id FROM document_tags WHERE document_id = ? ORDER BY tag_id`, d.ID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	d.TagIDs = nil
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return err
		}
		d.TagIDs = append(d.TagIDs, id)
	}
	return rows.Err()
}

// marshalIDs serializes an id list for a JSON text column.
func marshalIDs(ids []int64) string {
	if len(ids) == 0 {
		return "[]"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func unmarshalIDs(s string) []int64 {
	if s == "" || s == "[]" {
		return nil
	}
	var ids []int64
	if err := json.Unmarshal([]byte(s), &ids); err != nil {
		return nil
	}
	return ids
}
