package store

import (
	"errors"
	"testing"
)

func TestQueueUploadAndNext(t *testing.T) {
	db := testDB(t)

	id, err := db.QueueUpload(&PendingUpload{URI: "/scans/a.jpg", Title: "Scan A", TagIDs: []int64{3}})
	if err != nil {
		t.Fatal(err)
	}

	next, err := db.NextPendingUpload(3)
	if err != nil {
		t.Fatal(err)
	}
	if next == nil || next.ID != id {
		t.Fatalf("next = %v, want id %d", next, id)
	}
	if next.Status != UploadPending {
		t.Errorf("status = %q, want PENDING", next.Status)
	}
	if len(next.TagIDs) != 1 || next.TagIDs[0] != 3 {
		t.Errorf("tag ids = %v, want [3]", next.TagIDs)
	}
}

func TestQueueMultiPageUploadRequiresPages(t *testing.T) {
	db := testDB(t)

	_, err := db.QueueMultiPageUpload(&PendingUpload{URI: ""})
	if !errors.Is(err, ErrNoPages) {
		t.Errorf("err = %v, want ErrNoPages", err)
	}

	id, err := db.QueueMultiPageUpload(&PendingUpload{
		URI:            "/scans/p1.jpg",
		AdditionalURIs: []string{"/scans/p2.jpg", "/scans/p3.jpg"},
	})
	if err != nil {
		t.Fatal(err)
	}
	u, err := db.GetUpload(id)
	if err != nil {
		t.Fatal(err)
	}
	if !u.IsMultiPage {
		t.Error("is_multi_page not set")
	}
	if len(u.AdditionalURIs) != 2 {
		t.Errorf("additional uris = %v, want 2 pages", u.AdditionalURIs)
	}
}

func TestUploadStatusTransitions(t *testing.T) {
	db := testDB(t)

	id, err := db.QueueUpload(&PendingUpload{URI: "/scans/a.jpg"})
	if err != nil {
		t.Fatal(err)
	}

	// FAILED before UPLOADING is rejected.
	if err := db.MarkUploadFailed(id, "boom"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("fail from PENDING: err = %v, want ErrInvalidTransition", err)
	}

	if err := db.MarkUploadUploading(id); err != nil {
		t.Fatal(err)
	}
	// UPLOADING twice is rejected.
	if err := db.MarkUploadUploading(id); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("double uploading: err = %v, want ErrInvalidTransition", err)
	}

	if err := db.MarkUploadFailed(id, "server unreachable"); err != nil {
		t.Fatal(err)
	}
	u, err := db.GetUpload(id)
	if err != nil {
		t.Fatal(err)
	}
	if u.Status != UploadFailed || u.AttemptCount != 1 || u.LastError != "server unreachable" {
		t.Errorf("after failure: %+v", u)
	}
}

func TestMarkUploadCompletedDeletesRow(t *testing.T) {
	db := testDB(t)

	id, err := db.QueueUpload(&PendingUpload{URI: "/scans/a.jpg"})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.MarkUploadUploading(id); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkUploadCompleted(id); err != nil {
		t.Fatal(err)
	}

	u, err := db.GetUpload(id)
	if err != nil {
		t.Fatal(err)
	}
	if u != nil {
		t.Errorf("completed upload still present: %+v", u)
	}
	n, err := db.PendingUploadCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("pending count = %d, want 0", n)
	}
}

func TestRetryLawNeverRedispatchesOverCap(t *testing.T) {
	db := testDB(t)
	const maxRetries = 2

	id, err := db.QueueUpload(&PendingUpload{URI: "/scans/a.jpg"})
	if err != nil {
		t.Fatal(err)
	}

	// Exhaust the retry budget.
	for i := 0; i < maxRetries; i++ {
		if err := db.MarkUploadUploading(id); err != nil {
			t.Fatal(err)
		}
		if err := db.MarkUploadFailed(id, "nope"); err != nil {
			t.Fatal(err)
		}
	}

	// The worker must not see it any more.
	next, err := db.NextPendingUpload(maxRetries)
	if err != nil {
		t.Fatal(err)
	}
	if next != nil {
		t.Errorf("exhausted item re-dispatched: %+v", next)
	}

	// And explicit retry skips it too.
	n, err := db.RetryFailedUploads(maxRetries)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("RetryFailedUploads reset %d items, want 0", n)
	}
}

func TestRetryFailedUploadsResetsUnderCap(t *testing.T) {
	db := testDB(t)

	id, err := db.QueueUpload(&PendingUpload{URI: "/scans/a.jpg"})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.MarkUploadUploading(id); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkUploadFailed(id, "once"); err != nil {
		t.Fatal(err)
	}

	n, err := db.RetryFailedUploads(3)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("reset %d items, want 1", n)
	}

	u, err := db.GetUpload(id)
	if err != nil {
		t.Fatal(err)
	}
	if u.Status != UploadPending {
		t.Errorf("status = %q, want PENDING after retry", u.Status)
	}
	if u.AttemptCount != 1 {
		t.Errorf("attempt count = %d, want 1 (retry does not reset attempts)", u.AttemptCount)
	}
}

func TestNextPendingUploadOrdering(t *testing.T) {
	db := testDB(t)

	first, err := db.QueueUpload(&PendingUpload{URI: "/scans/first.jpg"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.QueueUpload(&PendingUpload{URI: "/scans/second.jpg"}); err != nil {
		t.Fatal(err)
	}

	next, err := db.NextPendingUpload(3)
	if err != nil {
		t.Fatal(err)
	}
	if next.ID != first {
		t.Errorf("next = %d, want earliest %d", next.ID, first)
	}
}

func TestClearAllUploads(t *testing.T) {
	db := testDB(t)

	if _, err := db.QueueUpload(&PendingUpload{URI: "/a.jpg"}); err != nil {
		t.Fatal(err)
	}
	if _, err := db.QueueUpload(&PendingUpload{URI: "/b.jpg"}); err != nil {
		t.Fatal(err)
	}
	if err := db.ClearAllUploads(); err != nil {
		t.Fatal(err)
	}
	n, err := db.PendingUploadCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("count = %d after clear, want 0", n)
	}
}
