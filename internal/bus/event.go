package bus

import "time"

// Event kinds published by the sync core. Subscribers filter by prefix,
// so "document." matches every document event.
const (
	KindDocumentUpserted = "document.upserted"
	KindDocumentDeleted  = "document.deleted"
	KindTagUpserted      = "tag.upserted"
	KindTagDeleted       = "tag.deleted"
	KindMetadataUpserted = "metadata.upserted"
	KindTaskUpserted     = "task.upserted"

	KindPendingQueued   = "pending.queued"
	KindPendingReplayed = "pending.replayed"

	KindUploadQueued    = "upload.queued"
	KindUploadStarted   = "upload.started"
	KindUploadProgress  = "upload.progress"
	KindUploadCompleted = "upload.completed"
	KindUploadFailed    = "upload.failed"

	KindNetworkOnline  = "network.online"
	KindNetworkOffline = "network.offline"

	KindHistoryRecorded = "history.recorded"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// UploadProgress is the payload for upload.progress events.
type UploadProgress struct {
	UploadID int64
	Sent     int64
	Total    int64
}
