package api

import (
	"encoding/json"
	"time"
)

// Paginated is the server's result envelope for list endpoints.
type Paginated[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// Document is the wire representation of /api/documents/ resources.
type Document struct {
	ID                  int64              `json:"id"`
	Title               string             `json:"title"`
	Content             string             `json:"content,omitempty"`
	OriginalFileName    string             `json:"original_file_name,omitempty"`
	ArchiveSerialNumber *int64             `json:"archive_serial_number"`
	Correspondent       *int64             `json:"correspondent"`
	DocumentType        *int64             `json:"document_type"`
	StoragePath         *int64             `json:"storage_path"`
	Tags                []int64            `json:"tags"`
	CustomFields        []CustomFieldValue `json:"custom_fields,omitempty"`
	Created             time.Time          `json:"created"`
	Added               time.Time          `json:"added"`
	Modified            time.Time          `json:"modified"`
}

// DocumentUpdate carries the mutable fields of a document for PATCH requests.
// Nil means "leave the field alone" and stays out of the body. For Tags and
// CustomFields a non-nil empty slice means "clear" and is sent as [], which
// an omitempty tag cannot express.
type DocumentUpdate struct {
	Title               *string            `json:"title"`
	ArchiveSerialNumber *int64             `json:"archive_serial_number"`
	Correspondent       *int64             `json:"correspondent"`
	DocumentType        *int64             `json:"document_type"`
	StoragePath         *int64             `json:"storage_path"`
	Tags                []int64            `json:"tags"`
	CustomFields        []CustomFieldValue `json:"custom_fields"`
	Created             *time.Time         `json:"created"`
}

// MarshalJSON emits only the fields being updated.
func (u *DocumentUpdate) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, 8)
	if u.Title != nil {
		m["title"] = *u.Title
	}
	if u.ArchiveSerialNumber != nil {
		m["archive_serial_number"] = *u.ArchiveSerialNumber
	}
	if u.Correspondent != nil {
		m["correspondent"] = *u.Correspondent
	}
	if u.DocumentType != nil {
		m["document_type"] = *u.DocumentType
	}
	if u.StoragePath != nil {
		m["storage_path"] = *u.StoragePath
	}
	if u.Tags != nil {
		m["tags"] = u.Tags
	}
	if u.CustomFields != nil {
		m["custom_fields"] = u.CustomFields
	}
	if u.Created != nil {
		m["created"] = u.Created
	}
	return json.Marshal(m)
}

// CustomFieldValue is a field/value pair on a document.
type CustomFieldValue struct {
	Field int64 `json:"field"`
	Value any   `json:"value"`
}

// Tag is the wire representation of /api/tags/ resources.
type Tag struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Color         string `json:"color,omitempty"`
	IsInboxTag    bool   `json:"is_inbox_tag"`
	DocumentCount int64  `json:"document_count"`
}

// NamedResource covers correspondents and document types, which share a shape.
type NamedResource struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	DocumentCount int64  `json:"document_count"`
}

// StoragePath is the wire representation of /api/storage_paths/ resources.
type StoragePath struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// CustomField is the wire representation of /api/custom_fields/ resources.
type CustomField struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	DataType string `json:"data_type"`
}

// Task is the wire representation of /api/tasks/ resources.
type Task struct {
	ID              int64     `json:"id"`
	TaskID          string    `json:"task_id"`
	Status          string    `json:"status"`
	Acknowledged    bool      `json:"acknowledged"`
	RelatedDocument *int64    `json:"related_document,omitempty"`
	Result          string    `json:"result,omitempty"`
	DateCreated     time.Time `json:"date_created"`
}

// UploadMeta is the metadata attached to a document upload.
type UploadMeta struct {
	Title          string
	FileName       string
	Tags           []int64
	Correspondent  *int64
	DocumentType   *int64
	StoragePath    *int64
	ArchiveSerial  *int64
	CustomFieldIDs []int64
}

// ProgressFunc receives upload progress: bytes sent so far and the total.
type ProgressFunc func(sent, total int64)
