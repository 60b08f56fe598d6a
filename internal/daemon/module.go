package daemon

import (
	"context"
	"time"

	"github.com/matheus3301/huddle/internal/api"
	"github.com/matheus3301/huddle/internal/bus"
	"github.com/matheus3301/huddle/internal/gateway"
	"github.com/matheus3301/huddle/internal/lock"
	"github.com/matheus3301/huddle/internal/logging"
	"github.com/matheus3301/huddle/internal/realtime"
	"github.com/matheus3301/huddle/internal/session"
	"github.com/matheus3301/huddle/internal/store"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	SocketPath  string // optional override for testing; empty = use default
	LogLevel    string
	Stderr      bool // also log to stderr
	WatchAddr   string // WebSocket feed address; empty = disabled
}

// shutdownGrace bounds how long open Watch streams may delay shutdown.
const shutdownGrace = 2 * time.Second

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideLock,
			provideStore,
			provideRealtime,
			provideServices,
			NewServer,
		),
		fx.Invoke(registerLifecycle, registerGateway),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(logging.Options{
		Path:   session.LogPath(p.SessionName, "huddled"),
		Stderr: p.Stderr,
		Level:  p.LogLevel,
		Fields: []zap.Field{zap.String("session", p.SessionName), zap.String("component", "huddled")},
	})
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.Dir(p.SessionName), "huddled")
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

// provideStore takes the lock so the database is only opened by its holder.
func provideStore(p Params, logger *zap.Logger, _ *lock.Lock) (*store.DB, error) {
	dbPath := session.AppDBPath(p.SessionName)
	db, err := store.Open(dbPath)
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

func provideRealtime(db *store.DB, b *bus.Bus, logger *zap.Logger) *realtime.Service {
	return realtime.NewService(db, b, logger.Named("realtime"))
}

func provideServices(p Params, svc *realtime.Service, db *store.DB, b *bus.Bus, logger *zap.Logger) api.Services {
	return api.Services{
		Session:  api.NewSessionService(p.SessionName, b, db),
		Chat:     api.NewChatService(svc),
		Message:  api.NewMessageService(svc),
		Profile:  api.NewProfileService(svc),
		Activity: api.NewActivityService(svc),
		Feed:     api.NewFeedService(svc, p.SessionName, logger.Named("feed")),
	}
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, lk *lock.Lock, db *store.DB, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Start gRPC server in background.
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, shutdownGrace)
			defer cancel()
			srv.Stop(stopCtx)

			err := multierr.Combine(db.Close(), lk.Release())
			if err != nil {
				logger.Warn("error during shutdown", zap.Error(err))
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return err
		},
	})
}

// registerGateway starts the WebSocket feed when an address is configured.
func registerGateway(lc fx.Lifecycle, p Params, svc *realtime.Service, logger *zap.Logger) {
	if p.WatchAddr == "" {
		return
	}
	var srv *gateway.Server
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			log := logger.Named("gateway")
			var err error
			srv, err = gateway.Listen(p.WatchAddr, gateway.New(svc, p.SessionName, log), log)
			if err != nil {
				return err
			}
			go func() {
				if err := srv.Serve(); err != nil {
					log.Error("websocket gateway error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, shutdownGrace)
			defer cancel()
			return srv.Shutdown(stopCtx)
		},
	})
}
