package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("document.", 10)
	defer unsub()

	b.Publish(Event{Kind: KindDocumentUpserted, Timestamp: time.Now(), Payload: int64(42)})

	select {
	case evt := <-ch:
		if evt.Kind != KindDocumentUpserted {
			t.Errorf("got kind %q, want document.upserted", evt.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("upload.", 10)
	defer unsub()

	b.Publish(Event{Kind: KindDocumentUpserted})
	b.Publish(Event{Kind: KindUploadCompleted})

	select {
	case evt := <-ch:
		if evt.Kind != KindUploadCompleted {
			t.Errorf("got kind %q, want upload.completed", evt.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	// Ensure the document event was not delivered.
	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
		// Expected: no more events.
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("network.", 10)
	unsub()

	b.Publish(Event{Kind: KindNetworkOnline})

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
		// Expected.
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("test.", 1)
	defer unsub()

	// Fill buffer.
	b.Publish(Event{Kind: "test.one"})
	// This should be dropped (non-blocking).
	b.Publish(Event{Kind: "test.two"})

	evt := <-ch
	if evt.Kind != "test.one" {
		t.Errorf("got %q, want test.one", evt.Kind)
	}
}
