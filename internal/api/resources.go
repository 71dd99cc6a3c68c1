package api

import (
	"context"
	"fmt"
	"net/url"
)

// pageSizeAll asks for one oversized page so resource lists come back whole;
// tag and metadata sets are small enough that paging them buys nothing.
func pageSizeAll() url.Values {
	v := url.Values{}
	v.Set("page_size", "100000")
	return v
}

// Tags.

func (c *Client) ListTags(ctx context.Context) (*Paginated[Tag], error) {
	var out Paginated[Tag]
	if err := c.get(ctx, "/api/tags/", pageSizeAll(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateTag(ctx context.Context, t *Tag) (*Tag, error) {
	var out Tag
	if err := c.send(ctx, "POST", "/api/tags/", t, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateTag(ctx context.Context, id int64, t *Tag) (*Tag, error) {
	var out Tag
	if err := c.send(ctx, "PATCH", fmt.Sprintf("/api/tags/%d/", id), t, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTag(ctx context.Context, id int64) error {
	return c.send(ctx, "DELETE", fmt.Sprintf("/api/tags/%d/", id), nil, nil)
}

// Correspondents.

func (c *Client) ListCorrespondents(ctx context.Context) (*Paginated[NamedResource], error) {
	var out Paginated[NamedResource]
	if err := c.get(ctx, "/api/correspondents/", pageSizeAll(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateCorrespondent(ctx context.Context, r *NamedResource) (*NamedResource, error) {
	var out NamedResource
	if err := c.send(ctx, "POST", "/api/correspondents/", r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCorrespondent(ctx context.Context, id int64, r *NamedResource) (*NamedResource, error) {
	var out NamedResource
	if err := c.send(ctx, "PATCH", fmt.Sprintf("/api/correspondents/%d/", id), r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCorrespondent(ctx context.Context, id int64) error {
	return c.send(ctx, "DELETE", fmt.Sprintf("/api/correspondents/%d/", id), nil, nil)
}

// Document types.

func (c *Client) ListDocumentTypes(ctx context.Context) (*Paginated[NamedResource], error) {
	var out Paginated[NamedResource]
	if err := c.get(ctx, "/api/document_types/", pageSizeAll(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateDocumentType(ctx context.Context, r *NamedResource) (*NamedResource, error) {
	var out NamedResource
	if err := c.send(ctx, "POST", "/api/document_types/", r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateDocumentType(ctx context.Context, id int64, r *NamedResource) (*NamedResource, error) {
	var out NamedResource
	if err := c.send(ctx, "PATCH", fmt.Sprintf("/api/document_types/%d/", id), r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteDocumentType(ctx context.Context, id int64) error {
	return c.send(ctx, "DELETE", fmt.Sprintf("/api/document_types/%d/", id), nil, nil)
}

// Storage paths and custom fields (read-only for this client).

func (c *Client) ListStoragePaths(ctx context.Context) (*Paginated[StoragePath], error) {
	var out Paginated[StoragePath]
	if err := c.get(ctx, "/api/storage_paths/", pageSizeAll(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListCustomFields(ctx context.Context) (*Paginated[CustomField], error) {
	var out Paginated[CustomField]
	if err := c.get(ctx, "/api/custom_fields/", pageSizeAll(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
