package store

import "errors"

// Document is the cached snapshot of a remote document.
type Document struct {
	ID                  int64
	Title               string
	Content             string
	OriginalFileName    string
	ArchiveSerialNumber *int64
	CorrespondentID     *int64
	DocumentTypeID      *int64
	StoragePathID       *int64
	TagIDs              []int64
	CustomFields        []CustomFieldValue
	Created             int64 // unix millis
	Added               int64
	Modified            int64
	IsDeleted           bool
	SyncedAt            int64
}

// CustomFieldValue is a field/value pair attached to a document.
type CustomFieldValue struct {
	Field int64 `json:"field"`
	Value any   `json:"value"`
}

// Tag is the cached snapshot of a remote tag.
type Tag struct {
	ID            int64
	Name          string
	Color         string
	IsInboxTag    bool
	DocumentCount int64
	IsDeleted     bool
	SyncedAt      int64
}

// NamedEntity is the shared shape of correspondents and document types.
type NamedEntity struct {
	ID            int64
	Name          string
	DocumentCount int64
	IsDeleted     bool
	SyncedAt      int64
}

// StoragePath is the cached snapshot of a remote storage path.
type StoragePath struct {
	ID        int64
	Name      string
	Path      string
	IsDeleted bool
	SyncedAt  int64
}

// CustomField is a cached custom field definition.
type CustomField struct {
	ID       int64
	Name     string
	DataType string
	SyncedAt int64
}

// Task is the cached snapshot of a server-side processing task.
type Task struct {
	UUID            string
	Status          string
	Acknowledged    bool
	RelatedDocument *int64
	Result          string
	Created         int64
	SyncedAt        int64
}

// EntityType identifies the kind of cached entity a pending change targets.
type EntityType string

const (
	EntityDocument      EntityType = "document"
	EntityTag           EntityType = "tag"
	EntityCorrespondent EntityType = "correspondent"
	EntityDocumentType  EntityType = "document_type"
)

// ChangeType is the kind of mutation recorded in the pending change log.
type ChangeType string

const (
	ChangeCreate ChangeType = "create"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// PendingChange is a mutation made while offline, awaiting replay.
// At most one row exists per (EntityType, EntityID); later changes
// supersede earlier ones.
type PendingChange struct {
	ID         int64
	EntityType EntityType
	EntityID   int64
	ChangeType ChangeType
	ChangeData string // serialized field map
	CreatedAt  int64
}

// Upload queue statuses.
const (
	UploadPending   = "PENDING"
	UploadUploading = "UPLOADING"
	UploadFailed    = "FAILED"
	UploadCompleted = "COMPLETED"
)

// PendingUpload is a not-yet-uploaded document in the durable upload queue.
type PendingUpload struct {
	ID              int64
	URI             string
	Title           string
	TagIDs          []int64
	CorrespondentID *int64
	DocumentTypeID  *int64
	StoragePathID   *int64
	IsMultiPage     bool
	AdditionalURIs  []string
	CustomFields    []CustomFieldValue
	Status          string
	AttemptCount    int
	LastError       string
	CreatedAt       int64
	UpdatedAt       int64
}

// SyncHistoryEntry is one row in the append-only sync history log.
type SyncHistoryEntry struct {
	ID             int64
	ActionType     string // upload, update, delete, replay
	Title          string
	Details        string
	DocumentIDs    []int64
	Success        bool
	UserMessage    string
	TechnicalError string
	CreatedAt      int64
}

// ErrNoPages is returned when a multi-page upload is queued with no URIs.
var ErrNoPages = errors.New("multi-page upload requires at least one page URI")

// ErrInvalidTransition is returned when an upload status update targets a row
// that is not in a state the transition is allowed from.
var ErrInvalidTransition = errors.New("invalid upload status transition")
