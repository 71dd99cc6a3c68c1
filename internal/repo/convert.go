package repo

import (
	"github.com/napoleonmm83/paperless-scanner-sub004/internal/api"
	"github.com/napoleonmm83/paperless-scanner-sub004/internal/store"
)

// Wire-to-cache conversions. Timestamps become unix millis; SyncedAt is left
// zero so the store stamps the write time.

func docToCache(d *api.Document) *store.Document {
	fields := make([]store.CustomFieldValue, len(d.CustomFields))
	for i, f := range d.CustomFields {
		fields[i] = store.CustomFieldValue{Field: f.Field, Value: f.Value}
	}
	return &store.Document{
		ID:                  d.ID,
		Title:               d.Title,
		Content:             d.Content,
		OriginalFileName:    d.OriginalFileName,
		ArchiveSerialNumber: d.ArchiveSerialNumber,
		CorrespondentID:     d.Correspondent,
		DocumentTypeID:      d.DocumentType,
		StoragePathID:       d.StoragePath,
		TagIDs:              d.Tags,
		CustomFields:        fields,
		Created:             d.Created.UnixMilli(),
		Added:               d.Added.UnixMilli(),
		Modified:            d.Modified.UnixMilli(),
	}
}

func tagToCache(t *api.Tag) *store.Tag {
	return &store.Tag{
		ID:            t.ID,
		Name:          t.Name,
		Color:         t.Color,
		IsInboxTag:    t.IsInboxTag,
		DocumentCount: t.DocumentCount,
	}
}

func namedToCache(r *api.NamedResource) *store.NamedEntity {
	return &store.NamedEntity{ID: r.ID, Name: r.Name, DocumentCount: r.DocumentCount}
}

func pathToCache(p *api.StoragePath) *store.StoragePath {
	return &store.StoragePath{ID: p.ID, Name: p.Name, Path: p.Path}
}

func fieldToCache(f *api.CustomField) *store.CustomField {
	return &store.CustomField{ID: f.ID, Name: f.Name, DataType: f.DataType}
}

func taskToCache(t *api.Task) *store.Task {
	return &store.Task{
		UUID:            t.TaskID,
		Status:          t.Status,
		Acknowledged:    t.Acknowledged,
		RelatedDocument: t.RelatedDocument,
		Result:          t.Result,
		Created:         t.DateCreated.UnixMilli(),
	}
}

// filterToQuery maps the cache filter onto server-side query params for a
// forced refresh. Sort and pagination stay local; the refresh pulls pages
// until the server runs out.
func filterToQuery(f *store.DocumentFilter) *api.DocumentQuery {
	if f == nil {
		return &api.DocumentQuery{}
	}
	q := &api.DocumentQuery{
		Search:          f.Search,
		TagIDs:          f.TagIDs,
		CorrespondentID: f.CorrespondentID,
		DocumentTypeID:  f.DocumentTypeID,
		StoragePathID:   f.StoragePathID,
		CreatedAfter:    f.CreatedAfter,
		CreatedBefore:   f.CreatedBefore,
		AddedAfter:      f.AddedAfter,
		AddedBefore:     f.AddedBefore,
	}
	return q
}
