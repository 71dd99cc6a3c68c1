package daemon

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/napoleonmm83/paperless-scanner-sub004/internal/api"
	"github.com/napoleonmm83/paperless-scanner-sub004/internal/artifact"
	"github.com/napoleonmm83/paperless-scanner-sub004/internal/bus"
	"github.com/napoleonmm83/paperless-scanner-sub004/internal/config"
	"github.com/napoleonmm83/paperless-scanner-sub004/internal/history"
	"github.com/napoleonmm83/paperless-scanner-sub004/internal/lock"
	"github.com/napoleonmm83/paperless-scanner-sub004/internal/logging"
	"github.com/napoleonmm83/paperless-scanner-sub004/internal/netmon"
	"github.com/napoleonmm83/paperless-scanner-sub004/internal/paths"
	"github.com/napoleonmm83/paperless-scanner-sub004/internal/replay"
	"github.com/napoleonmm83/paperless-scanner-sub004/internal/repo"
	"github.com/napoleonmm83/paperless-scanner-sub004/internal/store"
	"github.com/napoleonmm83/paperless-scanner-sub004/internal/uploader"
)

// Params holds the resolved startup configuration passed to the fx module.
type Params struct {
	Config  *config.Config
	DataDir string
}

// Module returns the fx module for the daemon, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideLock,
			provideStore,
			provideClient,
			provideMonitor,
			provideRepository,
			provideReplayer,
			provideBuilder,
			provideWorker,
			provideHistory,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(paths.LogPath(p.DataDir), p.DataDir)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := paths.EnsureDirs(p.DataDir); err != nil {
		return nil, err
	}
	logger.Info("acquiring data dir lock", zap.String("data_dir", p.DataDir))
	l, err := lock.Acquire(p.DataDir)
	if err != nil {
		return nil, err
	}
	logger.Info("data dir lock acquired")
	return l, nil
}

func provideStore(p Params, _ *lock.Lock, b *bus.Bus, logger *zap.Logger) (*store.DB, error) {
	dbPath := paths.DBPath(p.DataDir)
	db, err := store.Open(dbPath, b)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideClient(p Params) *api.Client {
	return api.New(p.Config.ServerURL, p.Config.Token, api.Options{
		Timeout:            p.Config.RequestTimeout(),
		InsecureSkipVerify: p.Config.InsecureSkipVerify,
	})
}

func provideMonitor(p Params, b *bus.Bus, logger *zap.Logger) *netmon.Monitor {
	return netmon.New(p.Config.ServerURL, p.Config.ProbeInterval(), b, logger)
}

func provideRepository(db *store.DB, client *api.Client, mon *netmon.Monitor, b *bus.Bus, logger *zap.Logger) *repo.Repository {
	return repo.New(db, client, mon, b, logger)
}

func provideReplayer(db *store.DB, client *api.Client, b *bus.Bus, logger *zap.Logger) *replay.Replayer {
	return replay.New(db, client, b, logger)
}

func provideBuilder(logger *zap.Logger) *artifact.Builder {
	return artifact.NewBuilder(logger)
}

func provideWorker(p Params, db *store.DB, client *api.Client, builder *artifact.Builder, mon *netmon.Monitor, b *bus.Bus, logger *zap.Logger) *uploader.Worker {
	return uploader.New(db, client, builder, mon, b, logger, p.Config.UploadInterval(), p.Config.MaxRetries)
}

func provideHistory(p Params, db *store.DB, logger *zap.Logger) *history.Service {
	return history.New(db, p.Config.Retention(), logger)
}

func registerLifecycle(lc fx.Lifecycle, lk *lock.Lock, db *store.DB, mon *netmon.Monitor,
	replayer *replay.Replayer, worker *uploader.Worker, hist *history.Service, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Replayer first so it catches the very first online event.
			replayer.Start()
			worker.Start()
			mon.Start()
			hist.Start()
			logger.Info("daemon started")
			return nil
		},
		OnStop: func(_ context.Context) error {
			hist.Stop()
			mon.Stop()
			worker.Stop()
			replayer.Stop()
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
