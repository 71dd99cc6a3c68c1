// Package history manages the retention of the sync history log. Entries
// are append-only; the only things that remove them are the retention
// window and explicit clears.
package history

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/napoleonmm83/paperless-scanner-sub004/internal/store"
)

// Service prunes old sync history entries on a schedule and exposes the
// explicit clear operations.
type Service struct {
	db        *store.DB
	retention time.Duration
	log       *zap.Logger

	mu      sync.Mutex
	stop    chan struct{}
	stopped chan struct{}
}

// New creates a Service with the given retention window.
func New(db *store.DB, retention time.Duration, log *zap.Logger) *Service {
	return &Service{db: db, retention: retention, log: log}
}

// Start prunes immediately and then once a day.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.stopped = make(chan struct{})
	go s.run(s.stop, s.stopped)
}

// Stop halts the prune schedule.
func (s *Service) Stop() {
	s.mu.Lock()
	stop, stopped := s.stop, s.stopped
	s.stop, s.stopped = nil, nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-stopped
}

func (s *Service) run(stop, stopped chan struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	s.Prune()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Prune()
		}
	}
}

// Prune removes entries older than the retention window and returns how
// many were dropped.
func (s *Service) Prune() int64 {
	cutoff := time.Now().Add(-s.retention)
	n, err := s.db.PruneSyncHistory(cutoff)
	if err != nil {
		s.log.Warn("history prune failed", zap.Error(err))
		return 0
	}
	if n > 0 {
		s.log.Info("pruned sync history", zap.Int64("entries", n), zap.Time("cutoff", cutoff))
	}
	return n
}

// Recent returns the newest entries, optionally filtered by outcome.
func (s *Service) Recent(success *bool, limit int) ([]store.SyncHistoryEntry, error) {
	return s.db.RecentSyncHistory(success, limit)
}

// FailedCount returns the number of failed entries still in the log.
func (s *Service) FailedCount() (int64, error) {
	return s.db.FailedSyncHistoryCount()
}

// ClearFailed removes all failed entries.
func (s *Service) ClearFailed() error {
	return s.db.ClearFailedSyncHistory()
}

// ClearAll removes every entry.
func (s *Service) ClearAll() error {
	return s.db.ClearSyncHistory()
}

// Delete removes a single entry by id.
func (s *Service) Delete(id int64) error {
	return s.db.DeleteSyncHistoryEntry(id)
}
