// Package repo is the orchestrator between the local cache and the remote
// server. Reads are served from the cache; the network is touched only when
// the caller asks for fresh data and the server is reachable. Writes go to
// the server when online and into the pending change log when not.
package repo

import (
	"context"

	"go.uber.org/zap"

	"github.com/napoleonmm83/paperless-scanner-sub004/internal/api"
	"github.com/napoleonmm83/paperless-scanner-sub004/internal/bus"
	"github.com/napoleonmm83/paperless-scanner-sub004/internal/store"
)

// Remote is the slice of the API client the repository needs. *api.Client
// satisfies it; tests substitute a fake.
type Remote interface {
	ListDocuments(ctx context.Context, q *api.DocumentQuery) (*api.Paginated[api.Document], error)
	GetDocument(ctx context.Context, id int64) (*api.Document, error)
	UpdateDocument(ctx context.Context, id int64, update *api.DocumentUpdate) (*api.Document, error)
	DeleteDocument(ctx context.Context, id int64) error

	ListTags(ctx context.Context) (*api.Paginated[api.Tag], error)
	CreateTag(ctx context.Context, t *api.Tag) (*api.Tag, error)
	UpdateTag(ctx context.Context, id int64, t *api.Tag) (*api.Tag, error)
	DeleteTag(ctx context.Context, id int64) error

	ListCorrespondents(ctx context.Context) (*api.Paginated[api.NamedResource], error)
	CreateCorrespondent(ctx context.Context, r *api.NamedResource) (*api.NamedResource, error)
	UpdateCorrespondent(ctx context.Context, id int64, r *api.NamedResource) (*api.NamedResource, error)
	DeleteCorrespondent(ctx context.Context, id int64) error

	ListDocumentTypes(ctx context.Context) (*api.Paginated[api.NamedResource], error)
	CreateDocumentType(ctx context.Context, r *api.NamedResource) (*api.NamedResource, error)
	UpdateDocumentType(ctx context.Context, id int64, r *api.NamedResource) (*api.NamedResource, error)
	DeleteDocumentType(ctx context.Context, id int64) error

	ListStoragePaths(ctx context.Context) (*api.Paginated[api.StoragePath], error)
	ListCustomFields(ctx context.Context) (*api.Paginated[api.CustomField], error)

	ListTasks(ctx context.Context) ([]api.Task, error)
	GetTask(ctx context.Context, taskID string) (*api.Task, error)
	AcknowledgeTasks(ctx context.Context, ids []int64) error
}

var _ Remote = (*api.Client)(nil)

// Connectivity reports the last known server reachability; it never blocks.
type Connectivity interface {
	Online() bool
}

// Repository coordinates cache, server and pending changes.
type Repository struct {
	db     *store.DB
	remote Remote
	net    Connectivity
	bus    *bus.Bus
	log    *zap.Logger
}

// New creates a Repository.
func New(db *store.DB, remote Remote, net Connectivity, b *bus.Bus, log *zap.Logger) *Repository {
	return &Repository{db: db, remote: remote, net: net, bus: b, log: log}
}

// Store exposes the underlying cache for components that operate on it
// directly, such as the upload worker.
func (r *Repository) Store() *store.DB { return r.db }
