package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

const uploadColumns = `id, uri, title, tag_ids, correspondent_id, document_type_id,
	storage_path_id, is_multi_page, additional_uris, custom_fields, status,
	attempt_count, last_error, created_at, updated_at`

// QueueUpload adds a single-page document to the durable upload queue.
func (db *DB) QueueUpload(u *PendingUpload) (int64, error) {
	if u.URI == "" {
		return 0, ErrNoPages
	}
	u.IsMultiPage = false
	u.AdditionalURIs = nil
	return db.insertUpload(u)
}

// QueueMultiPageUpload adds a multi-page document to the queue. The URI list
// is the ordered page set; an empty list is rejected.
func (db *DB) QueueMultiPageUpload(u *PendingUpload) (int64, error) {
	if u.URI == "" {
		return 0, ErrNoPages
	}
	u.IsMultiPage = true
	return db.insertUpload(u)
}

func (db *DB) insertUpload(u *PendingUpload) (int64, error) {
	fields, err := json.Marshal(u.CustomFields)
	if err != nil {
		return 0, fmt.Errorf("marshal custom fields: %w", err)
	}
	uris, err := json.Marshal(u.AdditionalURIs)
	if err != nil {
		return 0, fmt.Errorf("marshal page uris: %w", err)
	}
	now := nowMillis()
	res, err := db.Exec(`
		INSERT INTO pending_uploads (uri, title, tag_ids, correspondent_id, document_type_id,
			storage_path_id, is_multi_page, additional_uris, custom_fields, status,
			attempt_count, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'PENDING', 0, '', ?, ?)`,
		u.URI, u.Title, marshalIDs(u.TagIDs), u.CorrespondentID, u.DocumentTypeID,
		u.StoragePathID, u.IsMultiPage, string(uris), string(fields), now, now)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	u.ID = id
	u.Status = UploadPending
	u.CreatedAt = now
	u.UpdatedAt = now
	db.emit(KindUploadQueued, id)
	return id, nil
}

// NextPendingUpload returns the earliest queue item eligible for dispatch:
// PENDING, or FAILED with attempt_count under maxRetries. Returns nil when
// the queue has nothing to do.
func (db *DB) NextPendingUpload(maxRetries int) (*PendingUpload, error) {
	row := db.QueryRow(`
		SELECT `+uploadColumns+` FROM pending_uploads
		WHERE status = 'PENDING' OR (status = 'FAILED' AND attempt_count < ?)
		ORDER BY created_at ASC, id ASC LIMIT 1`, maxRetries)
	u, err := scanUpload(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// GetUpload returns a queue item by id, or nil if absent.
func (db *DB) GetUpload(id int64) (*PendingUpload, error) {
	row := db.QueryRow(`SELECT `+uploadColumns+` FROM pending_uploads WHERE id = ?`, id)
	u, err := scanUpload(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// ListUploads returns all queue items in creation order.
func (db *DB) ListUploads() ([]PendingUpload, error) {
	rows, err := db.Query(`SELECT ` + uploadColumns + ` FROM pending_uploads ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var uploads []PendingUpload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, *u)
	}
	return uploads, rows.Err()
}

// MarkUploadUploading transitions an item to UPLOADING. Only PENDING and
// FAILED items may start uploading.
func (db *DB) MarkUploadUploading(id int64) error {
	res, err := db.Exec(`
		UPDATE pending_uploads SET status = 'UPLOADING', updated_at = ?
		WHERE id = ? AND status IN ('PENDING', 'FAILED')`, nowMillis(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("upload %d: %w", id, ErrInvalidTransition)
	}
	db.emit(KindUploadStarted, id)
	return nil
}

// MarkUploadCompleted removes a finished item from the queue.
func (db *DB) MarkUploadCompleted(id int64) error {
	_, err := db.Exec(`DELETE FROM pending_uploads WHERE id = ?`, id)
	if err != nil {
		return err
	}
	db.emit(KindUploadCompleted, id)
	return nil
}

// MarkUploadFailed transitions an UPLOADING item to FAILED, bumping its
// attempt count and recording the error message.
func (db *DB) MarkUploadFailed(id int64, message string) error {
	res, err := db.Exec(`
		UPDATE pending_uploads SET status = 'FAILED', attempt_count = attempt_count + 1,
			last_error = ?, updated_at = ?
		WHERE id = ? AND status = 'UPLOADING'`, message, nowMillis(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("upload %d: %w", id, ErrInvalidTransition)
	}
	db.emit(KindUploadFailed, id)
	return nil
}

// RetryFailedUploads resets FAILED items back to PENDING, skipping items at
// or over the retry cap. Returns the number of items reset.
func (db *DB) RetryFailedUploads(maxRetries int) (int64, error) {
	res, err := db.Exec(`
		UPDATE pending_uploads SET status = 'PENDING', last_error = '', updated_at = ?
		WHERE status = 'FAILED' AND attempt_count < ?`, nowMillis(), maxRetries)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		db.emit(KindUploadQueued, n)
	}
	return n, nil
}

// ClearCompletedUploads removes any lingering COMPLETED rows. Completed items
// are normally deleted on the spot, so this is usually a no-op.
func (db *DB) ClearCompletedUploads() error {
	_, err := db.Exec(`DELETE FROM pending_uploads WHERE status = 'COMPLETED'`)
	return err
}

// ClearAllUploads empties the upload queue.
func (db *DB) ClearAllUploads() error {
	_, err := db.Exec(`DELETE FROM pending_uploads`)
	if err != nil {
		return err
	}
	db.emit(KindUploadCompleted, int64(0))
	return nil
}

// DeleteUpload removes a single queue item regardless of status.
func (db *DB) DeleteUpload(id int64) error {
	_, err := db.Exec(`DELETE FROM pending_uploads WHERE id = ?`, id)
	if err != nil {
		return err
	}
	db.emit(KindUploadCompleted, id)
	return nil
}

// PendingUploadCount returns the number of items still in the queue.
func (db *DB) PendingUploadCount() (int64, error) {
	var n int64
	err := db.QueryRow(`SELECT COUNT(*) FROM pending_uploads WHERE status != 'COMPLETED'`).Scan(&n)
	return n, err
}

func scanUpload(row rowScanner) (*PendingUpload, error) {
	var u PendingUpload
	var corr, dtype, spath sql.NullInt64
	var tagIDs, uris, fields string
	err := row.Scan(&u.ID, &u.URI, &u.Title, &tagIDs, &corr, &dtype, &spath,
		&u.IsMultiPage, &uris, &fields, &u.Status, &u.AttemptCount, &u.LastError,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if corr.Valid {
		u.CorrespondentID = &corr.Int64
	}
	if dtype.Valid {
		u.DocumentTypeID = &dtype.Int64
	}
	if spath.Valid {
		u.StoragePathID = &spath.Int64
	}
	u.TagIDs = unmarshalIDs(tagIDs)
	if uris != "" && uris != "null" {
		if err := json.Unmarshal([]byte(uris), &u.AdditionalURIs); err != nil {
			return nil, fmt.Errorf("unmarshal page uris for %d: %w", u.ID, err)
		}
	}
	if fields != "" && fields != "null" {
		if err := json.Unmarshal([]byte(fields), &u.CustomFields); err != nil {
			return nil, fmt.Errorf("unmarshal custom fields for %d: %w", u.ID, err)
		}
	}
	return &u, nil
}
