// Package uploader drains the durable upload queue against the server. One
// worker owns the queue; items are dispatched strictly one at a time, oldest
// first, and survive restarts because the queue lives in SQLite.
package uploader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/napoleonmm83/paperless-scanner-sub004/internal/api"
	"github.com/napoleonmm83/paperless-scanner-sub004/internal/artifact"
	"github.com/napoleonmm83/paperless-scanner-sub004/internal/bus"
	"github.com/napoleonmm83/paperless-scanner-sub004/internal/store"
)

// Remote is the slice of the API client the worker needs.
type Remote interface {
	UploadDocument(ctx context.Context, data []byte, meta api.UploadMeta, progress api.ProgressFunc) (string, error)
}

var _ Remote = (*api.Client)(nil)

// Builder synthesizes the PDF artifact for multi-page items.
type Builder interface {
	BuildPDF(paths []string) ([]byte, error)
}

var _ Builder = (*artifact.Builder)(nil)

// Connectivity gates dispatch on server reachability.
type Connectivity interface {
	Online() bool
}

// Worker is the single consumer of the upload queue.
type Worker struct {
	db         *store.DB
	remote     Remote
	builder    Builder
	net        Connectivity
	bus        *bus.Bus
	log        *zap.Logger
	interval   time.Duration
	maxRetries int

	mu      sync.Mutex
	stop    chan struct{}
	stopped chan struct{}
}

// New creates a Worker. maxRetries caps how often a failed item is
// re-dispatched; at or over the cap it stays FAILED until an explicit retry.
func New(db *store.DB, remote Remote, builder Builder, net Connectivity,
	b *bus.Bus, log *zap.Logger, interval time.Duration, maxRetries int) *Worker {
	return &Worker{
		db: db, remote: remote, builder: builder, net: net,
		bus: b, log: log, interval: interval, maxRetries: maxRetries,
	}
}

// Start launches the dispatch loop.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stop != nil {
		return
	}
	w.stop = make(chan struct{})
	w.stopped = make(chan struct{})
	go w.run(w.stop, w.stopped)
}

// Stop halts the loop. An upload already in flight finishes first.
func (w *Worker) Stop() {
	w.mu.Lock()
	stop, stopped := w.stop, w.stopped
	w.stop, w.stopped = nil, nil
	w.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-stopped
}

func (w *Worker) run(stop, stopped chan struct{}) {
	defer close(stopped)

	// Queued and connectivity events wake the loop early; the ticker is the
	// fallback for anything missed.
	events, unsub := w.bus.Subscribe(bus.KindUploadQueued, 8)
	defer unsub()
	online, unsubOnline := w.bus.Subscribe(bus.KindNetworkOnline, 4)
	defer unsubOnline()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.drain(stop)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			w.drain(stop)
		case _, ok := <-events:
			if !ok {
				return
			}
			w.drain(stop)
		case _, ok := <-online:
			if !ok {
				return
			}
			w.drain(stop)
		}
	}
}

// drain dispatches queued items until the queue is empty, the server drops
// away, or the worker is stopped.
func (w *Worker) drain(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		if !w.net.Online() {
			return
		}
		item, err := w.db.NextPendingUpload(w.maxRetries)
		if err != nil {
			w.log.Error("load next upload failed", zap.Error(err))
			return
		}
		if item == nil {
			return
		}
		w.dispatch(context.Background(), item)
	}
}

// DrainOnce runs one drain pass synchronously. Retry buttons and tests use
// it; the background loop covers everything else.
func (w *Worker) DrainOnce(ctx context.Context) {
	for w.net.Online() {
		item, err := w.db.NextPendingUpload(w.maxRetries)
		if err != nil {
			w.log.Error("load next upload failed", zap.Error(err))
			return
		}
		if item == nil {
			return
		}
		w.dispatch(ctx, item)
	}
}

// RetryFailed moves FAILED items still under the retry cap back to PENDING.
func (w *Worker) RetryFailed() (int64, error) {
	return w.db.RetryFailedUploads(w.maxRetries)
}

func (w *Worker) dispatch(ctx context.Context, item *store.PendingUpload) {
	if err := w.db.MarkUploadUploading(item.ID); err != nil {
		w.log.Warn("mark uploading failed", zap.Int64("id", item.ID), zap.Error(err))
		return
	}
	data, fileName, err := w.prepare(item)
	if err == nil {
		meta := api.UploadMeta{
			Title:         item.Title,
			FileName:      fileName,
			Tags:          item.TagIDs,
			Correspondent: item.CorrespondentID,
			DocumentType:  item.DocumentTypeID,
			StoragePath:   item.StoragePathID,
		}
		progress := func(sent, total int64) {
			w.bus.Emit(bus.KindUploadProgress, bus.UploadProgress{UploadID: item.ID, Sent: sent, Total: total})
		}
		var taskID string
		taskID, err = w.remote.UploadDocument(ctx, data, meta, progress)
		if err == nil {
			w.complete(item, taskID)
			return
		}
	}

	w.fail(item, err)
}

// prepare produces the upload body: a synthesized PDF for multi-page items,
// raw bytes for a single file.
func (w *Worker) prepare(item *store.PendingUpload) ([]byte, string, error) {
	if item.IsMultiPage {
		paths := append([]string{item.URI}, item.AdditionalURIs...)
		data, err := w.builder.BuildPDF(paths)
		if err != nil {
			return nil, "", err
		}
		return data, uuid.NewString() + ".pdf", nil
	}

	data, err := os.ReadFile(item.URI)
	if err != nil {
		return nil, "", &api.ContentError{Message: "read upload file", Err: err}
	}
	name := filepath.Base(item.URI)
	if name == "." || name == "/" {
		name = uuid.NewString() + filepath.Ext(item.URI)
	}
	return data, name, nil
}

func (w *Worker) complete(item *store.PendingUpload, taskID string) {
	if err := w.db.MarkUploadCompleted(item.ID); err != nil {
		w.log.Warn("mark completed failed", zap.Int64("id", item.ID), zap.Error(err))
	}
	// Track the server-side consume task so its outcome can be polled.
	if taskID != "" {
		if err := w.db.UpsertTask(&store.Task{UUID: taskID, Status: "PENDING", Created: time.Now().UnixMilli()}); err != nil {
			w.log.Warn("cache upload task failed", zap.String("task", taskID), zap.Error(err))
		}
	}
	if _, err := w.db.RecordSyncHistory(&store.SyncHistoryEntry{
		ActionType: "upload",
		Title:      item.Title,
		Details:    fmt.Sprintf("task %s", taskID),
		Success:    true,
	}); err != nil {
		w.log.Warn("record upload history failed", zap.Error(err))
	}
	w.log.Info("upload completed", zap.Int64("id", item.ID), zap.String("task", taskID))
}

func (w *Worker) fail(item *store.PendingUpload, cause error) {
	if err := w.db.MarkUploadFailed(item.ID, api.TechnicalDetail(cause)); err != nil {
		w.log.Warn("mark failed failed", zap.Int64("id", item.ID), zap.Error(err))
	}
	if _, err := w.db.RecordSyncHistory(&store.SyncHistoryEntry{
		ActionType:     "upload",
		Title:          item.Title,
		Success:        false,
		UserMessage:    api.UserMessage(cause),
		TechnicalError: api.TechnicalDetail(cause),
	}); err != nil {
		w.log.Warn("record upload history failed", zap.Error(err))
	}
	w.log.Warn("upload failed",
		zap.Int64("id", item.ID),
		zap.Int("attempt", item.AttemptCount+1),
		zap.Error(cause))
}
