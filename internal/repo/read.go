package repo

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/napoleonmm83/paperless-scanner-sub004/internal/api"
	"github.com/napoleonmm83/paperless-scanner-sub004/internal/store"
)

// GetDocuments lists documents from the cache. With forceRefresh set and the
// server reachable, matching pages are pulled from the server and upserted
// first, so the cache answer reflects remote state. A failed refresh is
// logged and the (possibly stale) cache still answers.
func (r *Repository) GetDocuments(ctx context.Context, f *store.DocumentFilter, forceRefresh bool) ([]store.Document, error) {
	if forceRefresh && r.net.Online() {
		if err := r.refreshDocuments(ctx, filterToQuery(f)); err != nil {
			r.log.Warn("document refresh failed, serving cache", zap.Error(err))
		}
	}
	return r.db.ListDocuments(f)
}

// CountDocuments counts cached documents matching the filter. It shares the
// filter predicate with GetDocuments.
func (r *Repository) CountDocuments(f *store.DocumentFilter) (int64, error) {
	return r.db.CountDocuments(f)
}

// GetDocument returns one document, from the cache unless forceRefresh is set
// and the server is reachable. A cache miss while online falls through to the
// server; a miss while offline returns nil without touching the network.
func (r *Repository) GetDocument(ctx context.Context, id int64, forceRefresh bool) (*store.Document, error) {
	cached, err := r.db.GetDocument(id)
	if err != nil {
		return nil, err
	}
	if cached != nil && !forceRefresh {
		return cached, nil
	}
	if !r.net.Online() {
		return cached, nil
	}

	remote, err := r.remote.GetDocument(ctx, id)
	if err != nil {
		if cached != nil {
			r.log.Warn("document refresh failed, serving cached copy",
				zap.Int64("id", id), zap.Error(err))
			return cached, nil
		}
		if api.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	doc := docToCache(remote)
	if err := r.db.UpsertDocument(doc); err != nil {
		return nil, fmt.Errorf("cache document %d: %w", id, err)
	}
	return doc, nil
}

// GetTags lists tags from the cache, refreshing from the server first when
// asked and reachable.
func (r *Repository) GetTags(ctx context.Context, forceRefresh bool) ([]store.Tag, error) {
	if forceRefresh && r.net.Online() {
		if err := r.refreshTags(ctx); err != nil {
			r.log.Warn("tag refresh failed, serving cache", zap.Error(err))
		}
	}
	return r.db.ListTags()
}

// GetCorrespondents lists correspondents, same policy as GetTags.
func (r *Repository) GetCorrespondents(ctx context.Context, forceRefresh bool) ([]store.NamedEntity, error) {
	if forceRefresh && r.net.Online() {
		if err := r.refreshCorrespondents(ctx); err != nil {
			r.log.Warn("correspondent refresh failed, serving cache", zap.Error(err))
		}
	}
	return r.db.ListCorrespondents()
}

// GetDocumentTypes lists document types, same policy as GetTags.
func (r *Repository) GetDocumentTypes(ctx context.Context, forceRefresh bool) ([]store.NamedEntity, error) {
	if forceRefresh && r.net.Online() {
		if err := r.refreshDocumentTypes(ctx); err != nil {
			r.log.Warn("document type refresh failed, serving cache", zap.Error(err))
		}
	}
	return r.db.ListDocumentTypes()
}

// GetStoragePaths lists storage paths, same policy as GetTags.
func (r *Repository) GetStoragePaths(ctx context.Context, forceRefresh bool) ([]store.StoragePath, error) {
	if forceRefresh && r.net.Online() {
		if err := r.refreshStoragePaths(ctx); err != nil {
			r.log.Warn("storage path refresh failed, serving cache", zap.Error(err))
		}
	}
	return r.db.ListStoragePaths()
}

// GetCustomFields lists custom field definitions, same policy as GetTags.
func (r *Repository) GetCustomFields(ctx context.Context, forceRefresh bool) ([]store.CustomField, error) {
	if forceRefresh && r.net.Online() {
		if err := r.refreshCustomFields(ctx); err != nil {
			r.log.Warn("custom field refresh failed, serving cache", zap.Error(err))
		}
	}
	return r.db.ListCustomFields()
}

// GetTasks lists cached tasks, refreshing from the server first when asked.
func (r *Repository) GetTasks(ctx context.Context, unackedOnly bool, forceRefresh bool) ([]store.Task, error) {
	if forceRefresh && r.net.Online() {
		if err := r.refreshTasks(ctx); err != nil {
			r.log.Warn("task refresh failed, serving cache", zap.Error(err))
		}
	}
	return r.db.ListTasks(unackedOnly, 0)
}

// AcknowledgeTask marks a task acknowledged remotely (when online) and in the
// cache.
func (r *Repository) AcknowledgeTask(ctx context.Context, uuid string) error {
	task, err := r.db.GetTask(uuid)
	if err != nil {
		return err
	}
	if task == nil {
		return fmt.Errorf("unknown task %s", uuid)
	}
	if r.net.Online() {
		remote, err := r.remote.GetTask(ctx, uuid)
		if err == nil && remote != nil {
			if err := r.remote.AcknowledgeTasks(ctx, []int64{remote.ID}); err != nil {
				return err
			}
		}
	}
	return r.db.AcknowledgeTask(uuid)
}

// Refresh pulls documents, tags, metadata and tasks from the server into the
// cache. It is the explicit "pull to refresh" entry point; nothing in the
// repository refreshes on its own.
func (r *Repository) Refresh(ctx context.Context) error {
	if !r.net.Online() {
		return &api.NetworkError{Op: "refresh", Err: fmt.Errorf("server not reachable")}
	}
	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"tags", r.refreshTags},
		{"correspondents", r.refreshCorrespondents},
		{"document types", r.refreshDocumentTypes},
		{"storage paths", r.refreshStoragePaths},
		{"custom fields", r.refreshCustomFields},
		{"documents", func(ctx context.Context) error { return r.refreshDocuments(ctx, &api.DocumentQuery{}) }},
		{"tasks", r.refreshTasks},
	}
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			return fmt.Errorf("refresh %s: %w", step.name, err)
		}
	}
	return nil
}

func (r *Repository) refreshDocuments(ctx context.Context, q *api.DocumentQuery) error {
	q.PageSize = 100
	full := unfiltered(q)
	seen := make(map[int64]bool)
	for page := 1; ; page++ {
		q.Page = page
		out, err := r.remote.ListDocuments(ctx, q)
		if err != nil {
			return err
		}
		docs := make([]store.Document, len(out.Results))
		for i := range out.Results {
			docs[i] = *docToCache(&out.Results[i])
			seen[docs[i].ID] = true
		}
		if err := r.db.UpsertDocuments(docs); err != nil {
			return err
		}
		if out.Next == nil || len(out.Results) == 0 {
			break
		}
	}
	if full {
		return r.pruneMissingDocuments(seen)
	}
	return nil
}

// unfiltered reports whether q asks for the whole document set. Only such a
// listing is complete enough to prune from.
func unfiltered(q *api.DocumentQuery) bool {
	return q.Search == "" && len(q.TagIDs) == 0 &&
		q.CorrespondentID == nil && q.DocumentTypeID == nil && q.StoragePathID == nil &&
		q.CreatedAfter == nil && q.CreatedBefore == nil &&
		q.AddedAfter == nil && q.AddedBefore == nil
}

// pruneMissingDocuments drops cached documents the server no longer lists,
// so server-side deletions do not linger as ghosts. Rows with a queued
// offline change are kept; replay reconciles those against the server.
func (r *Repository) pruneMissingDocuments(seen map[int64]bool) error {
	cached, err := r.db.ListDocuments(nil)
	if err != nil {
		return err
	}
	pending, err := r.db.PendingChanges()
	if err != nil {
		return err
	}
	hold := make(map[int64]bool, len(pending))
	for _, c := range pending {
		if c.EntityType == store.EntityDocument {
			hold[c.EntityID] = true
		}
	}
	for i := range cached {
		id := cached[i].ID
		if seen[id] || hold[id] {
			continue
		}
		if err := r.db.HardDeleteDocument(id); err != nil {
			return err
		}
		r.log.Info("pruned document no longer on server", zap.Int64("id", id))
	}
	return nil
}

func (r *Repository) refreshTags(ctx context.Context) error {
	out, err := r.remote.ListTags(ctx)
	if err != nil {
		return err
	}
	tags := make([]store.Tag, len(out.Results))
	for i := range out.Results {
		tags[i] = *tagToCache(&out.Results[i])
	}
	return r.db.UpsertTags(tags)
}

func (r *Repository) refreshCorrespondents(ctx context.Context) error {
	out, err := r.remote.ListCorrespondents(ctx)
	if err != nil {
		return err
	}
	entities := make([]store.NamedEntity, len(out.Results))
	for i := range out.Results {
		entities[i] = *namedToCache(&out.Results[i])
	}
	return r.db.UpsertCorrespondents(entities)
}

func (r *Repository) refreshDocumentTypes(ctx context.Context) error {
	out, err := r.remote.ListDocumentTypes(ctx)
	if err != nil {
		return err
	}
	entities := make([]store.NamedEntity, len(out.Results))
	for i := range out.Results {
		entities[i] = *namedToCache(&out.Results[i])
	}
	return r.db.UpsertDocumentTypes(entities)
}

func (r *Repository) refreshStoragePaths(ctx context.Context) error {
	out, err := r.remote.ListStoragePaths(ctx)
	if err != nil {
		return err
	}
	paths := make([]store.StoragePath, len(out.Results))
	for i := range out.Results {
		paths[i] = *pathToCache(&out.Results[i])
	}
	return r.db.UpsertStoragePaths(paths)
}

func (r *Repository) refreshCustomFields(ctx context.Context) error {
	out, err := r.remote.ListCustomFields(ctx)
	if err != nil {
		return err
	}
	fields := make([]store.CustomField, len(out.Results))
	for i := range out.Results {
		fields[i] = *fieldToCache(&out.Results[i])
	}
	return r.db.UpsertCustomFields(fields)
}

func (r *Repository) refreshTasks(ctx context.Context) error {
	out, err := r.remote.ListTasks(ctx)
	if err != nil {
		return err
	}
	tasks := make([]store.Task, len(out))
	for i := range out {
		tasks[i] = *taskToCache(&out[i])
	}
	return r.db.UpsertTasks(tasks)
}
