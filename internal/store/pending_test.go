package store

import (
	"testing"
)

func TestEnqueueChangeCoalescesPerEntity(t *testing.T) {
	db := testDB(t)

	if err := db.EnqueueChange(&PendingChange{EntityType: EntityDocument, EntityID: 1, ChangeType: ChangeUpdate, ChangeData: `{"title":"v1"}`, CreatedAt: 100}); err != nil {
		t.Fatal(err)
	}
	if err := db.EnqueueChange(&PendingChange{EntityType: EntityDocument, EntityID: 1, ChangeType: ChangeUpdate, ChangeData: `{"title":"v2"}`, CreatedAt: 200}); err != nil {
		t.Fatal(err)
	}

	changes, err := db.PendingChanges()
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 1 {
		t.Fatalf("got %d changes for one entity, want 1 (coalesced)", len(changes))
	}
	// Last write wins on the payload, original creation time kept for ordering.
	if changes[0].ChangeData != `{"title":"v2"}` {
		t.Errorf("change data = %q, want v2 payload", changes[0].ChangeData)
	}
	if changes[0].CreatedAt != 100 {
		t.Errorf("created_at = %d, want original 100", changes[0].CreatedAt)
	}
}

func TestEnqueueChangeDeleteSupersedesUpdate(t *testing.T) {
	db := testDB(t)

	if err := db.EnqueueChange(&PendingChange{EntityType: EntityDocument, EntityID: 1, ChangeType: ChangeUpdate, ChangeData: `{"title":"x"}`}); err != nil {
		t.Fatal(err)
	}
	if err := db.EnqueueChange(&PendingChange{EntityType: EntityDocument, EntityID: 1, ChangeType: ChangeDelete, ChangeData: `{}`}); err != nil {
		t.Fatal(err)
	}

	changes, err := db.PendingChanges()
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 1 || changes[0].ChangeType != ChangeDelete {
		t.Errorf("changes = %+v, want single delete", changes)
	}
}

func TestEnqueueChangeUpdateAfterCreateStaysCreate(t *testing.T) {
	db := testDB(t)

	if err := db.EnqueueChange(&PendingChange{EntityType: EntityTag, EntityID: -1, ChangeType: ChangeCreate, ChangeData: `{"name":"new"}`}); err != nil {
		t.Fatal(err)
	}
	if err := db.EnqueueChange(&PendingChange{EntityType: EntityTag, EntityID: -1, ChangeType: ChangeUpdate, ChangeData: `{"name":"renamed"}`}); err != nil {
		t.Fatal(err)
	}

	changes, err := db.PendingChanges()
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 1 {
		t.Fatalf("got %d changes, want 1", len(changes))
	}
	// Replay must still issue the create, with the newest payload.
	if changes[0].ChangeType != ChangeCreate {
		t.Errorf("change type = %q, want create", changes[0].ChangeType)
	}
	if changes[0].ChangeData != `{"name":"renamed"}` {
		t.Errorf("change data = %q, want renamed payload", changes[0].ChangeData)
	}
}

func TestPendingChangesFIFOOrder(t *testing.T) {
	db := testDB(t)

	if err := db.EnqueueChange(&PendingChange{EntityType: EntityDocument, EntityID: 2, ChangeType: ChangeUpdate, CreatedAt: 300}); err != nil {
		t.Fatal(err)
	}
	if err := db.EnqueueChange(&PendingChange{EntityType: EntityDocument, EntityID: 1, ChangeType: ChangeUpdate, CreatedAt: 100}); err != nil {
		t.Fatal(err)
	}
	if err := db.EnqueueChange(&PendingChange{EntityType: EntityTag, EntityID: 5, ChangeType: ChangeDelete, CreatedAt: 200}); err != nil {
		t.Fatal(err)
	}

	changes, err := db.PendingChanges()
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 3 {
		t.Fatalf("got %d changes, want 3", len(changes))
	}
	if changes[0].EntityID != 1 || changes[1].EntityID != 5 || changes[2].EntityID != 2 {
		t.Errorf("replay order = %d,%d,%d, want 1,5,2 (FIFO by creation)",
			changes[0].EntityID, changes[1].EntityID, changes[2].EntityID)
	}
}

func TestRemovePendingChange(t *testing.T) {
	db := testDB(t)

	if err := db.EnqueueChange(&PendingChange{EntityType: EntityDocument, EntityID: 1, ChangeType: ChangeUpdate}); err != nil {
		t.Fatal(err)
	}
	if err := db.RemovePendingChange(EntityDocument, 1); err != nil {
		t.Fatal(err)
	}
	// Removing again is a no-op, not an error.
	if err := db.RemovePendingChange(EntityDocument, 1); err != nil {
		t.Fatal(err)
	}

	n, err := db.PendingChangeCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("pending count = %d, want 0", n)
	}
}
