// Package daemon composes the messaging core into a running process
// using fx providers and lifecycle hooks.
package daemon

import (
	"context"

	"github.com/ripplechat/ripple/internal/activity"
	"github.com/ripplechat/ripple/internal/broker"
	"github.com/ripplechat/ripple/internal/bus"
	"github.com/ripplechat/ripple/internal/config"
	"github.com/ripplechat/ripple/internal/gateway"
	"github.com/ripplechat/ripple/internal/lock"
	"github.com/ripplechat/ripple/internal/logging"
	"github.com/ripplechat/ripple/internal/registry"
	"github.com/ripplechat/ripple/internal/session"
	"github.com/ripplechat/ripple/internal/store"
	"github.com/ripplechat/ripple/internal/unread"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved daemon configuration passed to the fx module.
type Params struct {
	Config *config.Config
}

// Module returns the fx module for the daemon, composing all providers
// and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideLock,
			provideStore,
			provideRegistry,
			provideVerifier,
			provideBroker,
			provideTracker,
			provideMonitor,
			provideGateway,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) *config.Config {
	return p.Config
}

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.LogPath())
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(cfg *config.Config, logger *zap.Logger) (*lock.Lock, error) {
	logger.Info("acquiring data dir lock", zap.String("dir", cfg.DataDir))
	l, err := lock.Acquire(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	logger.Info("data dir lock acquired")
	return l, nil
}

// The lock parameter orders store construction after the data dir lock
// is held: a second daemon is rejected before it touches the SQLite file.
func provideStore(cfg *config.Config, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	db, err := store.Open(cfg.DBPath())
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
	logger.Info("store initialized", zap.String("path", cfg.DBPath()))
	return db, nil
}

func provideRegistry(logger *zap.Logger) *registry.Registry {
	return registry.New(logger)
}

func provideVerifier(cfg *config.Config) *session.Verifier {
	return session.NewVerifier(cfg.SessionSecret)
}

func provideBroker(db *store.DB, r *registry.Registry, b *bus.Bus, logger *zap.Logger) *broker.Broker {
	return broker.New(db, r, b, logger)
}

func provideTracker(db *store.DB, b *bus.Bus, logger *zap.Logger) *unread.Tracker {
	return unread.New(db, b, logger)
}

func provideMonitor(b *bus.Bus, logger *zap.Logger) *activity.Monitor {
	return activity.NewMonitor(b, logger)
}

func provideGateway(
	cfg *config.Config,
	r *registry.Registry,
	brk *broker.Broker,
	tracker *unread.Tracker,
	verifier *session.Verifier,
	b *bus.Bus,
	logger *zap.Logger,
) *gateway.Gateway {
	return gateway.New(cfg, r, brk, tracker, verifier, b, logger)
}

func registerLifecycle(
	lc fx.Lifecycle,
	cfg *config.Config,
	g *gateway.Gateway,
	mon *activity.Monitor,
	lk *lock.Lock,
	db *store.DB,
	logger *zap.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Start the activity monitor (subscribes to bus events).
			mon.Start(context.Background())

			go func() {
				logger.Info("gateway listening", zap.String("addr", cfg.ListenAddr))
				if err := g.Listen(cfg.ListenAddr); err != nil {
					logger.Error("gateway server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(_ context.Context) error {
			mon.Stop()
			if err := g.Shutdown(); err != nil {
				logger.Warn("gateway shutdown error", zap.Error(err))
			}
			if err := db.Close(); err != nil {
				logger.Warn("store close error", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
