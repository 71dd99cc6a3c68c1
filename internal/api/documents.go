package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DocumentQuery mirrors the server-side filters of /api/documents/.
type DocumentQuery struct {
	Search          string
	TagIDs          []int64
	CorrespondentID *int64
	DocumentTypeID  *int64
	StoragePathID   *int64
	CreatedAfter    *time.Time
	CreatedBefore   *time.Time
	AddedAfter      *time.Time
	AddedBefore     *time.Time
	Ordering        string // e.g. "-created"
	Page            int
	PageSize        int
}

func (q *DocumentQuery) values() url.Values {
	v := url.Values{}
	if q == nil {
		return v
	}
	if q.Search != "" {
		v.Set("query", q.Search)
	}
	if len(q.TagIDs) > 0 {
		ids := make([]string, len(q.TagIDs))
		for i, id := range q.TagIDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		v.Set("tags__id__in", strings.Join(ids, ","))
	}
	if q.CorrespondentID != nil {
		v.Set("correspondent__id", strconv.FormatInt(*q.CorrespondentID, 10))
	}
	if q.DocumentTypeID != nil {
		v.Set("document_type__id", strconv.FormatInt(*q.DocumentTypeID, 10))
	}
	if q.StoragePathID != nil {
		v.Set("storage_path__id", strconv.FormatInt(*q.StoragePathID, 10))
	}
	if q.CreatedAfter != nil {
		v.Set("created__date__gte", q.CreatedAfter.Format("2006-01-02"))
	}
	if q.CreatedBefore != nil {
		v.Set("created__date__lte", q.CreatedBefore.Format("2006-01-02"))
	}
	if q.AddedAfter != nil {
		v.Set("added__date__gte", q.AddedAfter.Format("2006-01-02"))
	}
	if q.AddedBefore != nil {
		v.Set("added__date__lte", q.AddedBefore.Format("2006-01-02"))
	}
	if q.Ordering != "" {
		v.Set("ordering", q.Ordering)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(q.PageSize))
	}
	return v
}

// ListDocuments fetches one page of documents matching the query.
func (c *Client) ListDocuments(ctx context.Context, q *DocumentQuery) (*Paginated[Document], error) {
	var out Paginated[Document]
	if err := c.get(ctx, "/api/documents/", q.values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetDocument fetches a single document by id.
func (c *Client) GetDocument(ctx context.Context, id int64) (*Document, error) {
	var out Document
	if err := c.get(ctx, fmt.Sprintf("/api/documents/%d/", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateDocument PATCHes the given fields and returns the authoritative
// server state of the document.
func (c *Client) UpdateDocument(ctx context.Context, id int64, update *DocumentUpdate) (*Document, error) {
	var out Document
	if err := c.send(ctx, "PATCH", fmt.Sprintf("/api/documents/%d/", id), update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteDocument removes a document server-side.
func (c *Client) DeleteDocument(ctx context.Context, id int64) error {
	return c.send(ctx, "DELETE", fmt.Sprintf("/api/documents/%d/", id), nil, nil)
}
