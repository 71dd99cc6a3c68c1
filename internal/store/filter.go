package store

import (
	"fmt"
	"strings"
	"time"
)

// Sort keys accepted by DocumentFilter.
const (
	SortCreated       = "created"
	SortAdded         = "added"
	SortModified      = "modified"
	SortTitle         = "title"
	SortArchiveSerial = "archive_serial_number"
)

// DocumentFilter describes a cache query over active (not soft-deleted)
// documents. The zero value matches everything. List and count queries are
// built from the same predicate, so they can never disagree.
type DocumentFilter struct {
	// Search matches free text against title, content and original file
	// name (FTS), and against tag names.
	Search string
	// TagIDs is OR-combined: a document matches if it carries any of the
	// ids. Empty means no tag filter, not "match nothing".
	TagIDs []int64

	CorrespondentID *int64
	DocumentTypeID  *int64
	StoragePathID   *int64

	// HasArchiveNumber filters on archive serial number presence.
	HasArchiveNumber *bool

	// Date ranges are inclusive on both ends.
	CreatedAfter   *time.Time
	CreatedBefore  *time.Time
	AddedAfter     *time.Time
	AddedBefore    *time.Time
	ModifiedAfter  *time.Time
	ModifiedBefore *time.Time

	SortBy        string // one of the Sort* keys; default SortCreated
	SortAscending bool

	Limit  int
	Offset int
}

// predicate returns the WHERE clause (without the leading WHERE) and its
// arguments for this filter over the documents table aliased as d.
func (f *DocumentFilter) predicate() (string, []any) {
	conds := []string{"d.is_deleted = 0"}
	var args []any

	if f.Search != "" {
		conds = append(conds, `(d.id IN (SELECT rowid FROM documents_fts WHERE documents_fts MATCH ?)
			OR d.id IN (SELECT dt.document_id FROM document_tags dt
				JOIN tags t ON t.id = dt.tag_id
				WHERE t.is_deleted = 0 AND t.name LIKE ? ESCAPE '\'))`)
		args = append(args, ftsQuery(f.Search), "%"+escapeLike(f.Search)+"%")
	}

	if len(f.TagIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.TagIDs)), ",")
		conds = append(conds, fmt.Sprintf("d.id IN (SELECT document_id FROM document_tags WHERE tag_id IN (%s))", placeholders))
		for _, id := range f.TagIDs {
			args = append(args, id)
		}
	}

	if f.CorrespondentID != nil {
		conds = append(conds, "d.correspondent_id = ?")
		args = append(args, *f.CorrespondentID)
	}
	if f.DocumentTypeID != nil {
		conds = append(conds, "d.document_type_id = ?")
		args = append(args, *f.DocumentTypeID)
	}
	if f.StoragePathID != nil {
		conds = append(conds, "d.storage_path_id = ?")
		args = append(args, *f.StoragePathID)
	}

	if f.HasArchiveNumber != nil {
		if *f.HasArchiveNumber {
			conds = append(conds, "d.archive_serial_number IS NOT NULL")
		} else {
			conds = append(conds, "d.archive_serial_number IS NULL")
		}
	}

	dateConds := []struct {
		col   string
		op    string
		value *time.Time
	}{
		{"created", ">=", f.CreatedAfter},
		{"created", "<=", f.CreatedBefore},
		{"added", ">=", f.AddedAfter},
		{"added", "<=", f.AddedBefore},
		{"modified", ">=", f.ModifiedAfter},
		{"modified", "<=", f.ModifiedBefore},
	}
	for _, dc := range dateConds {
		if dc.value != nil {
			conds = append(conds, fmt.Sprintf("d.%s %s ?", dc.col, dc.op))
			args = append(args, dc.value.UnixMilli())
		}
	}

	return strings.Join(conds, " AND "), args
}

// orderBy returns a validated ORDER BY clause for this filter.
func (f *DocumentFilter) orderBy() string {
	col := f.SortBy
	switch col {
	case SortCreated, SortAdded, SortModified, SortTitle, SortArchiveSerial:
	default:
		col = SortCreated
	}
	dir := "DESC"
	if f.SortAscending {
		dir = "ASC"
	}
	return fmt.Sprintf("ORDER BY d.%s %s, d.id %s", col, dir, dir)
}

// ftsQuery turns free text into an FTS5 query by quoting each token,
// so user input can never be parsed as FTS syntax.
func ftsQuery(search string) string {
	fields := strings.Fields(search)
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		quoted = append(quoted, `"`+strings.ReplaceAll(f, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
