// Package replay drains the pending change log against the server. It runs
// a pass whenever connectivity comes back and stops the pass on the first
// failure, leaving the remaining changes for the next attempt.
package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/napoleonmm83/paperless-scanner-sub004/internal/api"
	"github.com/napoleonmm83/paperless-scanner-sub004/internal/bus"
	"github.com/napoleonmm83/paperless-scanner-sub004/internal/store"
)

// Remote is the slice of the API client replay needs.
type Remote interface {
	UpdateDocument(ctx context.Context, id int64, update *api.DocumentUpdate) (*api.Document, error)
	DeleteDocument(ctx context.Context, id int64) error

	CreateTag(ctx context.Context, t *api.Tag) (*api.Tag, error)
	UpdateTag(ctx context.Context, id int64, t *api.Tag) (*api.Tag, error)
	DeleteTag(ctx context.Context, id int64) error

	CreateCorrespondent(ctx context.Context, r *api.NamedResource) (*api.NamedResource, error)
	UpdateCorrespondent(ctx context.Context, id int64, r *api.NamedResource) (*api.NamedResource, error)
	DeleteCorrespondent(ctx context.Context, id int64) error

	CreateDocumentType(ctx context.Context, r *api.NamedResource) (*api.NamedResource, error)
	UpdateDocumentType(ctx context.Context, id int64, r *api.NamedResource) (*api.NamedResource, error)
	DeleteDocumentType(ctx context.Context, id int64) error
}

var _ Remote = (*api.Client)(nil)

// Replayer applies queued offline changes in the order they were made.
type Replayer struct {
	db     *store.DB
	remote Remote
	bus    *bus.Bus
	log    *zap.Logger

	mu      sync.Mutex
	stop    chan struct{}
	stopped chan struct{}
}

// New creates a Replayer.
func New(db *store.DB, remote Remote, b *bus.Bus, log *zap.Logger) *Replayer {
	return &Replayer{db: db, remote: remote, bus: b, log: log}
}

// Start begins listening for connectivity. Every online transition triggers
// a replay pass.
func (r *Replayer) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		return
	}
	r.stop = make(chan struct{})
	r.stopped = make(chan struct{})
	go r.run(r.stop, r.stopped)
}

// Stop halts the listener. A pass already in flight finishes its current
// change.
func (r *Replayer) Stop() {
	r.mu.Lock()
	stop, stopped := r.stop, r.stopped
	r.stop, r.stopped = nil, nil
	r.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-stopped
}

func (r *Replayer) run(stop, stopped chan struct{}) {
	defer close(stopped)

	events, unsub := r.bus.Subscribe(bus.KindNetworkOnline, 4)
	defer unsub()

	for {
		select {
		case <-stop:
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			if err := r.ReplayNow(context.Background()); err != nil {
				r.log.Warn("replay pass stopped", zap.Error(err))
			}
		}
	}
}

// ReplayNow drains the pending change log FIFO. The first failure aborts the
// pass with the failing change left in place; everything replayed before it
// stays replayed. Each applied change is recorded in the sync history.
func (r *Replayer) ReplayNow(ctx context.Context) error {
	changes, err := r.db.PendingChanges()
	if err != nil {
		return fmt.Errorf("load pending changes: %w", err)
	}
	if len(changes) == 0 {
		return nil
	}
	r.log.Info("replaying pending changes", zap.Int("count", len(changes)))

	for i := range changes {
		change := &changes[i]
		if err := r.apply(ctx, change); err != nil {
			r.recordHistory(change, false, err)
			return fmt.Errorf("replay %s %s %d: %w", change.ChangeType, change.EntityType, change.EntityID, err)
		}
		if err := r.db.RemovePendingChange(change.EntityType, change.EntityID); err != nil {
			return fmt.Errorf("remove replayed change: %w", err)
		}
		r.recordHistory(change, true, nil)
		r.bus.Emit(bus.KindPendingReplayed, change.EntityID)
	}
	return nil
}

func (r *Replayer) apply(ctx context.Context, c *store.PendingChange) error {
	switch c.EntityType {
	case store.EntityDocument:
		return r.applyDocument(ctx, c)
	case store.EntityTag:
		return r.applyTag(ctx, c)
	case store.EntityCorrespondent:
		return r.applyNamed(ctx, c,
			r.remote.CreateCorrespondent, r.remote.UpdateCorrespondent, r.remote.DeleteCorrespondent,
			r.db.UpsertCorrespondent, r.db.HardDeleteCorrespondent)
	case store.EntityDocumentType:
		return r.applyNamed(ctx, c,
			r.remote.CreateDocumentType, r.remote.UpdateDocumentType, r.remote.DeleteDocumentType,
			r.db.UpsertDocumentType, r.db.HardDeleteDocumentType)
	default:
		return fmt.Errorf("unknown entity type %q", c.EntityType)
	}
}

func (r *Replayer) applyDocument(ctx context.Context, c *store.PendingChange) error {
	switch c.ChangeType {
	case store.ChangeUpdate:
		var update api.DocumentUpdate
		if err := json.Unmarshal([]byte(c.ChangeData), &update); err != nil {
			return fmt.Errorf("decode update payload: %w", err)
		}
		remote, err := r.remote.UpdateDocument(ctx, c.EntityID, &update)
		if err != nil {
			if api.IsNotFound(err) {
				// Deleted remotely while we were offline. Drop our copy.
				return r.db.HardDeleteDocument(c.EntityID)
			}
			return err
		}
		return r.reconcileDocument(remote)
	case store.ChangeDelete:
		err := r.remote.DeleteDocument(ctx, c.EntityID)
		if err != nil && !api.IsNotFound(err) {
			return err
		}
		return r.db.HardDeleteDocument(c.EntityID)
	default:
		return fmt.Errorf("unsupported document change %q", c.ChangeType)
	}
}

func (r *Replayer) applyTag(ctx context.Context, c *store.PendingChange) error {
	switch c.ChangeType {
	case store.ChangeCreate:
		var tag api.Tag
		if err := json.Unmarshal([]byte(c.ChangeData), &tag); err != nil {
			return fmt.Errorf("decode tag payload: %w", err)
		}
		remote, err := r.remote.CreateTag(ctx, &tag)
		if err != nil {
			return err
		}
		// The temporary negative id gives way to the server-assigned one.
		if err := r.db.HardDeleteTag(c.EntityID); err != nil {
			return err
		}
		return r.db.UpsertTag(&store.Tag{
			ID: remote.ID, Name: remote.Name, Color: remote.Color,
			IsInboxTag: remote.IsInboxTag, DocumentCount: remote.DocumentCount,
		})
	case store.ChangeUpdate:
		var tag api.Tag
		if err := json.Unmarshal([]byte(c.ChangeData), &tag); err != nil {
			return fmt.Errorf("decode tag payload: %w", err)
		}
		remote, err := r.remote.UpdateTag(ctx, c.EntityID, &tag)
		if err != nil {
			if api.IsNotFound(err) {
				return r.db.HardDeleteTag(c.EntityID)
			}
			return err
		}
		return r.db.UpsertTag(&store.Tag{
			ID: remote.ID, Name: remote.Name, Color: remote.Color,
			IsInboxTag: remote.IsInboxTag, DocumentCount: remote.DocumentCount,
		})
	case store.ChangeDelete:
		err := r.remote.DeleteTag(ctx, c.EntityID)
		if err != nil && !api.IsNotFound(err) {
			return err
		}
		return r.db.HardDeleteTag(c.EntityID)
	default:
		return fmt.Errorf("unsupported tag change %q", c.ChangeType)
	}
}

func (r *Replayer) applyNamed(ctx context.Context, c *store.PendingChange,
	create func(context.Context, *api.NamedResource) (*api.NamedResource, error),
	update func(context.Context, int64, *api.NamedResource) (*api.NamedResource, error),
	remove func(context.Context, int64) error,
	upsert func(*store.NamedEntity) error,
	hardDelete func(int64) error) error {

	switch c.ChangeType {
	case store.ChangeCreate:
		var res api.NamedResource
		if err := json.Unmarshal([]byte(c.ChangeData), &res); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		remote, err := create(ctx, &res)
		if err != nil {
			return err
		}
		if err := hardDelete(c.EntityID); err != nil {
			return err
		}
		return upsert(&store.NamedEntity{ID: remote.ID, Name: remote.Name, DocumentCount: remote.DocumentCount})
	case store.ChangeUpdate:
		var res api.NamedResource
		if err := json.Unmarshal([]byte(c.ChangeData), &res); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		remote, err := update(ctx, c.EntityID, &res)
		if err != nil {
			if api.IsNotFound(err) {
				return hardDelete(c.EntityID)
			}
			return err
		}
		return upsert(&store.NamedEntity{ID: remote.ID, Name: remote.Name, DocumentCount: remote.DocumentCount})
	case store.ChangeDelete:
		err := remove(ctx, c.EntityID)
		if err != nil && !api.IsNotFound(err) {
			return err
		}
		return hardDelete(c.EntityID)
	default:
		return fmt.Errorf("unsupported change %q", c.ChangeType)
	}
}

func (r *Replayer) reconcileDocument(remote *api.Document) error {
	fields := make([]store.CustomFieldValue, len(remote.CustomFields))
	for i, f := range remote.CustomFields {
		fields[i] = store.CustomFieldValue{Field: f.Field, Value: f.Value}
	}
	return r.db.UpsertDocument(&store.Document{
		ID:                  remote.ID,
		Title:               remote.Title,
		Content:             remote.Content,
		OriginalFileName:    remote.OriginalFileName,
		ArchiveSerialNumber: remote.ArchiveSerialNumber,
		CorrespondentID:     remote.Correspondent,
		DocumentTypeID:      remote.DocumentType,
		StoragePathID:       remote.StoragePath,
		TagIDs:              remote.Tags,
		CustomFields:        fields,
		Created:             remote.Created.UnixMilli(),
		Added:               remote.Added.UnixMilli(),
		Modified:            remote.Modified.UnixMilli(),
	})
}

func (r *Replayer) recordHistory(c *store.PendingChange, success bool, cause error) {
	entry := &store.SyncHistoryEntry{
		ActionType:  "replay",
		Title:       fmt.Sprintf("%s %s %d", c.ChangeType, c.EntityType, c.EntityID),
		DocumentIDs: documentIDs(c),
		Success:     success,
	}
	if cause != nil {
		entry.UserMessage = api.UserMessage(cause)
		entry.TechnicalError = api.TechnicalDetail(cause)
	}
	if _, err := r.db.RecordSyncHistory(entry); err != nil {
		r.log.Warn("record replay history failed", zap.Error(err))
	}
}

func documentIDs(c *store.PendingChange) []int64 {
	if c.EntityType == store.EntityDocument {
		return []int64{c.EntityID}
	}
	return nil
}
