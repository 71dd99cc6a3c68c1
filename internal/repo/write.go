package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/napoleonmm83/paperless-scanner-sub004/internal/api"
	"github.com/napoleonmm83/paperless-scanner-sub004/internal/store"
)

// UpdateDocument applies the update. Online, the server is authoritative and
// its response overwrites the cache. Offline, the cached copy is patched
// optimistically and a pending change records the full target state for
// later replay.
func (r *Repository) UpdateDocument(ctx context.Context, id int64, update *api.DocumentUpdate) (*store.Document, error) {
	old, err := r.db.GetDocument(id)
	if err != nil {
		return nil, err
	}

	if r.net.Online() {
		remote, err := r.remote.UpdateDocument(ctx, id, update)
		if err != nil {
			if !api.IsNetworkError(err) {
				return nil, err
			}
			// Connectivity died under us; fall through to the offline path.
			r.log.Warn("update fell back to offline path", zap.Int64("id", id), zap.Error(err))
		} else {
			doc := docToCache(remote)
			if err := r.db.UpsertDocument(doc); err != nil {
				return nil, fmt.Errorf("cache updated document %d: %w", id, err)
			}
			if old != nil {
				r.adjustTagCounts(old.TagIDs, doc.TagIDs)
			}
			return doc, nil
		}
	}

	if old == nil {
		return nil, fmt.Errorf("document %d not in cache, cannot update offline", id)
	}
	doc := applyDocumentUpdate(old, update)
	if err := r.db.UpsertDocument(doc); err != nil {
		return nil, fmt.Errorf("cache optimistic update %d: %w", id, err)
	}
	if err := r.enqueue(store.EntityDocument, id, store.ChangeUpdate, fullDocumentState(doc)); err != nil {
		return nil, err
	}
	r.adjustTagCounts(old.TagIDs, doc.TagIDs)
	return doc, nil
}

// DeleteDocument removes the document. Online it is deleted on the server
// and purged from the cache; offline it is soft-deleted and a pending delete
// is queued.
func (r *Repository) DeleteDocument(ctx context.Context, id int64) error {
	old, err := r.db.GetDocument(id)
	if err != nil {
		return err
	}

	if r.net.Online() {
		err := r.remote.DeleteDocument(ctx, id)
		switch {
		case err == nil || api.IsNotFound(err):
			if err := r.db.HardDeleteDocument(id); err != nil {
				return err
			}
			if old != nil {
				r.adjustTagCounts(old.TagIDs, nil)
			}
			return nil
		case api.IsNetworkError(err):
			r.log.Warn("delete fell back to offline path", zap.Int64("id", id), zap.Error(err))
		default:
			return err
		}
	}

	if err := r.db.SoftDeleteDocument(id); err != nil {
		return err
	}
	if err := r.enqueue(store.EntityDocument, id, store.ChangeDelete, nil); err != nil {
		return err
	}
	if old != nil {
		r.adjustTagCounts(old.TagIDs, nil)
	}
	return nil
}

// CreateTag creates a tag. Offline creations get a temporary negative id,
// replaced by the server-assigned one when the pending change replays.
func (r *Repository) CreateTag(ctx context.Context, t *api.Tag) (*store.Tag, error) {
	if r.net.Online() {
		remote, err := r.remote.CreateTag(ctx, t)
		if err == nil {
			tag := tagToCache(remote)
			return tag, r.db.UpsertTag(tag)
		}
		if !api.IsNetworkError(err) {
			return nil, err
		}
		r.log.Warn("tag create fell back to offline path", zap.String("name", t.Name), zap.Error(err))
	}

	tag := tagToCache(t)
	tag.ID = -time.Now().UnixMilli()
	if err := r.db.UpsertTag(tag); err != nil {
		return nil, err
	}
	if err := r.enqueue(store.EntityTag, tag.ID, store.ChangeCreate, t); err != nil {
		return nil, err
	}
	return tag, nil
}

// UpdateTag updates a tag online, or optimistically with a queued change.
func (r *Repository) UpdateTag(ctx context.Context, id int64, t *api.Tag) (*store.Tag, error) {
	if r.net.Online() {
		remote, err := r.remote.UpdateTag(ctx, id, t)
		if err == nil {
			tag := tagToCache(remote)
			return tag, r.db.UpsertTag(tag)
		}
		if !api.IsNetworkError(err) {
			return nil, err
		}
		r.log.Warn("tag update fell back to offline path", zap.Int64("id", id), zap.Error(err))
	}

	tag := tagToCache(t)
	tag.ID = id
	if err := r.db.UpsertTag(tag); err != nil {
		return nil, err
	}
	if err := r.enqueue(store.EntityTag, id, store.ChangeUpdate, t); err != nil {
		return nil, err
	}
	return tag, nil
}

// DeleteTag deletes a tag online, or soft-deletes with a queued change.
func (r *Repository) DeleteTag(ctx context.Context, id int64) error {
	if r.net.Online() {
		err := r.remote.DeleteTag(ctx, id)
		if err == nil || api.IsNotFound(err) {
			return r.db.HardDeleteTag(id)
		}
		if !api.IsNetworkError(err) {
			return err
		}
		r.log.Warn("tag delete fell back to offline path", zap.Int64("id", id), zap.Error(err))
	}
	if err := r.db.SoftDeleteTag(id); err != nil {
		return err
	}
	return r.enqueue(store.EntityTag, id, store.ChangeDelete, nil)
}

// CreateCorrespondent mirrors CreateTag for correspondents.
func (r *Repository) CreateCorrespondent(ctx context.Context, e *api.NamedResource) (*store.NamedEntity, error) {
	return r.createNamed(ctx, store.EntityCorrespondent, e, r.remote.CreateCorrespondent, r.db.UpsertCorrespondent)
}

// UpdateCorrespondent mirrors UpdateTag for correspondents.
func (r *Repository) UpdateCorrespondent(ctx context.Context, id int64, e *api.NamedResource) (*store.NamedEntity, error) {
	return r.updateNamed(ctx, store.EntityCorrespondent, id, e, r.remote.UpdateCorrespondent, r.db.UpsertCorrespondent)
}

// DeleteCorrespondent mirrors DeleteTag for correspondents.
func (r *Repository) DeleteCorrespondent(ctx context.Context, id int64) error {
	return r.deleteNamed(ctx, store.EntityCorrespondent, id,
		r.remote.DeleteCorrespondent, r.db.HardDeleteCorrespondent, r.db.SoftDeleteCorrespondent)
}

// CreateDocumentType mirrors CreateTag for document types.
func (r *Repository) CreateDocumentType(ctx context.Context, e *api.NamedResource) (*store.NamedEntity, error) {
	return r.createNamed(ctx, store.EntityDocumentType, e, r.remote.CreateDocumentType, r.db.UpsertDocumentType)
}

// UpdateDocumentType mirrors UpdateTag for document types.
func (r *Repository) UpdateDocumentType(ctx context.Context, id int64, e *api.NamedResource) (*store.NamedEntity, error) {
	return r.updateNamed(ctx, store.EntityDocumentType, id, e, r.remote.UpdateDocumentType, r.db.UpsertDocumentType)
}

// DeleteDocumentType mirrors DeleteTag for document types.
func (r *Repository) DeleteDocumentType(ctx context.Context, id int64) error {
	return r.deleteNamed(ctx, store.EntityDocumentType, id,
		r.remote.DeleteDocumentType, r.db.HardDeleteDocumentType, r.db.SoftDeleteDocumentType)
}

func (r *Repository) createNamed(ctx context.Context, entity store.EntityType, e *api.NamedResource,
	create func(context.Context, *api.NamedResource) (*api.NamedResource, error),
	upsert func(*store.NamedEntity) error) (*store.NamedEntity, error) {

	if r.net.Online() {
		remote, err := create(ctx, e)
		if err == nil {
			cached := namedToCache(remote)
			return cached, upsert(cached)
		}
		if !api.IsNetworkError(err) {
			return nil, err
		}
		r.log.Warn("create fell back to offline path",
			zap.String("entity", string(entity)), zap.String("name", e.Name), zap.Error(err))
	}

	cached := namedToCache(e)
	cached.ID = -time.Now().UnixMilli()
	if err := upsert(cached); err != nil {
		return nil, err
	}
	if err := r.enqueue(entity, cached.ID, store.ChangeCreate, e); err != nil {
		return nil, err
	}
	return cached, nil
}

func (r *Repository) updateNamed(ctx context.Context, entity store.EntityType, id int64, e *api.NamedResource,
	update func(context.Context, int64, *api.NamedResource) (*api.NamedResource, error),
	upsert func(*store.NamedEntity) error) (*store.NamedEntity, error) {

	if r.net.Online() {
		remote, err := update(ctx, id, e)
		if err == nil {
			cached := namedToCache(remote)
			return cached, upsert(cached)
		}
		if !api.IsNetworkError(err) {
			return nil, err
		}
		r.log.Warn("update fell back to offline path",
			zap.String("entity", string(entity)), zap.Int64("id", id), zap.Error(err))
	}

	cached := namedToCache(e)
	cached.ID = id
	if err := upsert(cached); err != nil {
		return nil, err
	}
	if err := r.enqueue(entity, id, store.ChangeUpdate, e); err != nil {
		return nil, err
	}
	return cached, nil
}

func (r *Repository) deleteNamed(ctx context.Context, entity store.EntityType, id int64,
	remove func(context.Context, int64) error,
	hardDelete, softDelete func(int64) error) error {

	if r.net.Online() {
		err := remove(ctx, id)
		if err == nil || api.IsNotFound(err) {
			return hardDelete(id)
		}
		if !api.IsNetworkError(err) {
			return err
		}
		r.log.Warn("delete fell back to offline path",
			zap.String("entity", string(entity)), zap.Int64("id", id), zap.Error(err))
	}
	if err := softDelete(id); err != nil {
		return err
	}
	return r.enqueue(entity, id, store.ChangeDelete, nil)
}

// enqueue records a pending change with a JSON payload.
func (r *Repository) enqueue(entity store.EntityType, id int64, change store.ChangeType, payload any) error {
	data := ""
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal pending payload: %w", err)
		}
		data = string(raw)
	}
	return r.db.EnqueueChange(&store.PendingChange{
		EntityType: entity,
		EntityID:   id,
		ChangeType: change,
		ChangeData: data,
	})
}

// applyDocumentUpdate overlays the set fields of update on a copy of old.
func applyDocumentUpdate(old *store.Document, update *api.DocumentUpdate) *store.Document {
	doc := *old
	doc.TagIDs = append([]int64(nil), old.TagIDs...)
	if update.Title != nil {
		doc.Title = *update.Title
	}
	if update.ArchiveSerialNumber != nil {
		doc.ArchiveSerialNumber = update.ArchiveSerialNumber
	}
	if update.Correspondent != nil {
		doc.CorrespondentID = update.Correspondent
	}
	if update.DocumentType != nil {
		doc.DocumentTypeID = update.DocumentType
	}
	if update.StoragePath != nil {
		doc.StoragePathID = update.StoragePath
	}
	if update.Tags != nil {
		doc.TagIDs = append([]int64(nil), update.Tags...)
	}
	if update.CustomFields != nil {
		fields := make([]store.CustomFieldValue, len(update.CustomFields))
		for i, f := range update.CustomFields {
			fields[i] = store.CustomFieldValue{Field: f.Field, Value: f.Value}
		}
		doc.CustomFields = fields
	}
	if update.Created != nil {
		doc.Created = update.Created.UnixMilli()
	}
	doc.Modified = time.Now().UnixMilli()
	return &doc
}

// fullDocumentState serializes the complete mutable state of a cached
// document as an update payload. Replaying it overwrites the server copy,
// which is the last-write-wins contract for offline edits.
func fullDocumentState(doc *store.Document) *api.DocumentUpdate {
	created := time.UnixMilli(doc.Created).UTC()
	title := doc.Title
	tags := doc.TagIDs
	if tags == nil {
		tags = []int64{}
	}
	fields := make([]api.CustomFieldValue, len(doc.CustomFields))
	for i, f := range doc.CustomFields {
		fields[i] = api.CustomFieldValue{Field: f.Field, Value: f.Value}
	}
	return &api.DocumentUpdate{
		Title:               &title,
		ArchiveSerialNumber: doc.ArchiveSerialNumber,
		Correspondent:       doc.CorrespondentID,
		DocumentType:        doc.DocumentTypeID,
		StoragePath:         doc.StoragePathID,
		Tags:                tags,
		CustomFields:        fields,
		Created:             &created,
	}
}

// adjustTagCounts applies the symmetric difference of old and new tag sets
// to the cached per-tag document counts. Failure only logs; counts are a
// display convenience, not a correctness concern.
func (r *Repository) adjustTagCounts(oldTags, newTags []int64) {
	old := make(map[int64]bool, len(oldTags))
	for _, id := range oldTags {
		old[id] = true
	}
	updated := make(map[int64]bool, len(newTags))
	for _, id := range newTags {
		updated[id] = true
	}
	for _, id := range newTags {
		if !old[id] {
			if err := r.db.AdjustTagDocumentCount(id, 1); err != nil {
				r.log.Warn("tag count adjust failed", zap.Int64("tag", id), zap.Error(err))
			}
		}
	}
	for _, id := range oldTags {
		if !updated[id] {
			if err := r.db.AdjustTagDocumentCount(id, -1); err != nil {
				r.log.Warn("tag count adjust failed", zap.Int64("tag", id), zap.Error(err))
			}
		}
	}
}
