package repo

import (
	"sync"

	"go.uber.org/zap"

	"github.com/napoleonmm83/paperless-scanner-sub004/internal/store"
)

// Observers re-run their query whenever a relevant event lands on the bus
// and push the fresh result. The output channel holds one element; a slow
// consumer sees the latest state, not a backlog. The returned function
// tears the observer down and closes the channel.

// ObserveDocuments watches the cached document list for the given filter.
func (r *Repository) ObserveDocuments(f *store.DocumentFilter) (<-chan []store.Document, func()) {
	return observe(r, "document.", func() ([]store.Document, error) {
		return r.db.ListDocuments(f)
	})
}

// ObserveDocument watches a single cached document. A nil element means the
// document is gone or soft-deleted.
func (r *Repository) ObserveDocument(id int64) (<-chan *store.Document, func()) {
	return observe(r, "document.", func() (*store.Document, error) {
		return r.db.GetDocument(id)
	})
}

// ObserveTags watches the cached tag list.
func (r *Repository) ObserveTags() (<-chan []store.Tag, func()) {
	return observe(r, "tag.", func() ([]store.Tag, error) {
		return r.db.ListTags()
	})
}

// ObservePendingUploadCount watches the number of queued uploads.
func (r *Repository) ObservePendingUploadCount() (<-chan int64, func()) {
	return observe(r, "upload.", func() (int64, error) {
		return r.db.PendingUploadCount()
	})
}

// ObservePendingChangeCount watches the number of queued offline changes.
func (r *Repository) ObservePendingChangeCount() (<-chan int64, func()) {
	return observe(r, "pending.", func() (int64, error) {
		return r.db.PendingChangeCount()
	})
}

// ObserveSyncHistory watches the most recent sync history entries.
func (r *Repository) ObserveSyncHistory(limit int) (<-chan []store.SyncHistoryEntry, func()) {
	return observe(r, "history.", func() ([]store.SyncHistoryEntry, error) {
		return r.db.RecentSyncHistory(nil, limit)
	})
}

func observe[T any](r *Repository, namespace string, query func() (T, error)) (<-chan T, func()) {
	events, unsub := r.bus.Subscribe(namespace, 16)
	out := make(chan T, 1)
	done := make(chan struct{})

	push := func() {
		result, err := query()
		if err != nil {
			r.log.Warn("observer query failed", zap.String("namespace", namespace), zap.Error(err))
			return
		}
		// Replace the pending element so the consumer always gets the
		// latest state.
		for {
			select {
			case out <- result:
				return
			default:
				select {
				case <-out:
				default:
				}
			}
		}
	}

	go func() {
		defer close(out)
		push()
		for {
			select {
			case <-done:
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				push()
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			unsub()
			close(done)
		})
	}
	return out, stop
}
