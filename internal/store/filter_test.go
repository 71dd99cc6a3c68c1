package store

import (
	"testing"
	"time"
)

func seedFilterDocs(t *testing.T, db *DB) {
	t.Helper()
	if err := db.UpsertTags([]Tag{
		{ID: 3, Name: "taxes"},
		{ID: 7, Name: "insurance"},
		{ID: 9, Name: "receipts"},
	}); err != nil {
		t.Fatal(err)
	}
	asn := int64(12)
	corr := int64(1)
	docs := []Document{
		{ID: 1, Title: "Tax return 2023", Content: "income statement", TagIDs: []int64{3}, Created: millis(2024, 1, 10), Added: millis(2024, 2, 1), CorrespondentID: &corr},
		{ID: 2, Title: "Car insurance policy", Content: "coverage details", TagIDs: []int64{7}, Created: millis(2024, 1, 31)},
		{ID: 3, Title: "Grocery receipt", OriginalFileName: "scan_0042.jpg", TagIDs: []int64{9}, Created: millis(2024, 2, 15), ArchiveSerialNumber: &asn},
		{ID: 4, Title: "Untagged note", Content: "misc", Created: millis(2023, 12, 24)},
	}
	if err := db.UpsertDocuments(docs); err != nil {
		t.Fatal(err)
	}
}

// listAndCount asserts the list result length and the count query agree,
// since both are built from the same predicate.
func listAndCount(t *testing.T, db *DB, f *DocumentFilter) []Document {
	t.Helper()
	docs, err := db.ListDocuments(f)
	if err != nil {
		t.Fatal(err)
	}
	n, err := db.CountDocuments(f)
	if err != nil {
		t.Fatal(err)
	}
	if int64(len(docs)) != n {
		t.Fatalf("list returned %d docs but count = %d", len(docs), n)
	}
	return docs
}

func TestFilterTagIDsAreORCombined(t *testing.T) {
	db := testDB(t)
	seedFilterDocs(t, db)

	docs := listAndCount(t, db, &DocumentFilter{TagIDs: []int64{3, 7}})
	if len(docs) != 2 {
		t.Fatalf("got %d docs for tags 3 OR 7, want 2", len(docs))
	}
	ids := map[int64]bool{docs[0].ID: true, docs[1].ID: true}
	if !ids[1] || !ids[2] {
		t.Errorf("got ids %v, want union {1, 2}", ids)
	}
}

func TestFilterEmptyTagListMeansNoFilter(t *testing.T) {
	db := testDB(t)
	seedFilterDocs(t, db)

	docs := listAndCount(t, db, &DocumentFilter{TagIDs: nil})
	if len(docs) != 4 {
		t.Errorf("got %d docs with empty tag filter, want all 4", len(docs))
	}
}

func TestFilterDateRangeInclusive(t *testing.T) {
	db := testDB(t)
	seedFilterDocs(t, db)

	after := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	before := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)
	docs := listAndCount(t, db, &DocumentFilter{CreatedAfter: &after, CreatedBefore: &before})
	if len(docs) != 2 {
		t.Fatalf("got %d docs in January range, want 2", len(docs))
	}
	// Doc 2 was created on the boundary day and must be included.
	found := false
	for _, d := range docs {
		if d.ID == 2 {
			found = true
		}
	}
	if !found {
		t.Error("boundary document (created Jan 31) missing from inclusive range")
	}
}

func TestFilterFreeTextSearch(t *testing.T) {
	db := testDB(t)
	seedFilterDocs(t, db)

	// Title match.
	docs := listAndCount(t, db, &DocumentFilter{Search: "insurance"})
	// "insurance" hits doc 2's title and doc 2's tag name.
	if len(docs) != 1 || docs[0].ID != 2 {
		t.Errorf("search insurance = %v, want doc 2", docIDs(docs))
	}

	// Content match.
	docs = listAndCount(t, db, &DocumentFilter{Search: "income"})
	if len(docs) != 1 || docs[0].ID != 1 {
		t.Errorf("search income = %v, want doc 1", docIDs(docs))
	}

	// Original file name match.
	docs = listAndCount(t, db, &DocumentFilter{Search: "scan_0042.jpg"})
	if len(docs) != 1 || docs[0].ID != 3 {
		t.Errorf("search by filename = %v, want doc 3", docIDs(docs))
	}
}

func TestFilterSearchMatchesTagNames(t *testing.T) {
	db := testDB(t)
	seedFilterDocs(t, db)

	// "taxes" appears only as a tag name on doc 1 (its title says "Tax").
	docs := listAndCount(t, db, &DocumentFilter{Search: "taxes"})
	found := false
	for _, d := range docs {
		if d.ID == 1 {
			found = true
		}
	}
	if !found {
		t.Errorf("search taxes = %v, want doc 1 via tag-name match", docIDs(docs))
	}
}

func TestFilterArchiveNumberPresence(t *testing.T) {
	db := testDB(t)
	seedFilterDocs(t, db)

	yes, no := true, false
	docs := listAndCount(t, db, &DocumentFilter{HasArchiveNumber: &yes})
	if len(docs) != 1 || docs[0].ID != 3 {
		t.Errorf("with archive number = %v, want doc 3", docIDs(docs))
	}
	docs = listAndCount(t, db, &DocumentFilter{HasArchiveNumber: &no})
	if len(docs) != 3 {
		t.Errorf("without archive number: got %d docs, want 3", len(docs))
	}
}

func TestFilterEqualityAndSort(t *testing.T) {
	db := testDB(t)
	seedFilterDocs(t, db)

	corr := int64(1)
	docs := listAndCount(t, db, &DocumentFilter{CorrespondentID: &corr})
	if len(docs) != 1 || docs[0].ID != 1 {
		t.Errorf("correspondent filter = %v, want doc 1", docIDs(docs))
	}

	docs = listAndCount(t, db, &DocumentFilter{SortBy: SortCreated, SortAscending: true})
	if docs[0].ID != 4 {
		t.Errorf("oldest-first sort: first = %d, want 4", docs[0].ID)
	}
	docs = listAndCount(t, db, &DocumentFilter{SortBy: SortCreated})
	if docs[0].ID != 3 {
		t.Errorf("newest-first sort: first = %d, want 3", docs[0].ID)
	}
}

func TestFilterSearchQuotesFTSSyntax(t *testing.T) {
	db := testDB(t)
	seedFilterDocs(t, db)

	// Must not be parsed as FTS operators; just no results, no error.
	if _, err := db.ListDocuments(&DocumentFilter{Search: `AND OR "NOT`}); err != nil {
		t.Fatalf("search with FTS metacharacters failed: %v", err)
	}
}

func docIDs(docs []Document) []int64 {
	ids := make([]int64, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids
}
