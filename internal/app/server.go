package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/leovewc/DS.Chat/api/telemetry"
	"github.com/leovewc/DS.Chat/internal/config"
	"github.com/leovewc/DS.Chat/internal/persist"
	"github.com/leovewc/DS.Chat/internal/port"
	"github.com/leovewc/DS.Chat/internal/registry"
	"github.com/leovewc/DS.Chat/internal/replication"
	"github.com/leovewc/DS.Chat/internal/session"
	"github.com/leovewc/DS.Chat/internal/stats"
	"github.com/leovewc/DS.Chat/internal/store"
	"github.com/leovewc/DS.Chat/pkg/logger"
	"github.com/leovewc/DS.Chat/service"
)

// App owns every server component and their lifecycle: the client listener,
// the optional replication listener, the telemetry HTTP server and the
// periodic backup scheduler.
type App struct {
	cfg   config.Config
	log   logger.Logger
	clock clockwork.Clock

	store       *store.HistoryStore
	registry    *registry.Registry
	plog        *persist.Log
	pusher      *replication.Pusher
	repListener *replication.Listener
	relay       port.RelayService
	stats       *stats.Stats

	ln         net.Listener
	httpServer *http.Server

	rootCtx context.Context
	cancel  context.CancelFunc
}

// Option tweaks App construction. Tests use WithClock to drive the backup
// scheduler with a fake clock.
type Option func(*App)

func WithClock(clock clockwork.Clock) Option {
	return func(a *App) { a.clock = clock }
}

// NewApp wires all components and replays the durable history into memory.
func NewApp(cfg config.Config, opts ...Option) (*App, error) {
	baseLogger := logger.NewLogger(cfg.LogLevel, cfg.LogFile)
	rootCtx := logger.NewContext(context.Background(), baseLogger)
	rootCtx, cancel := context.WithCancel(rootCtx)

	log := baseLogger.WithModule("app")

	sts := stats.New()
	st := store.NewHistoryStore()
	plog := persist.New(cfg.DataDir, baseLogger)

	if err := plog.LoadOnStartup(st); err != nil {
		log.Errorf("history load error: %v", err)
	} else {
		sts.AddLog("Chat history loaded.")
	}

	reg := registry.New(sts, baseLogger)
	pusher := replication.NewPusher(cfg.Replicas, sts, baseLogger)

	a := &App{
		cfg:      cfg,
		log:      log,
		clock:    clockwork.NewRealClock(),
		store:    st,
		registry: reg,
		plog:     plog,
		pusher:   pusher,
		stats:    sts,
		rootCtx:  rootCtx,
		cancel:   cancel,
	}
	a.relay = service.NewRelayService(st, reg, plog, pusher, sts, baseLogger)

	if cfg.ReplicationPort > 0 {
		a.repListener = replication.NewListener(st, baseLogger)
	}
	if cfg.TelemetryPort > 0 {
		a.httpServer = &http.Server{
			Addr: fmt.Sprintf(":%d", cfg.TelemetryPort),
			Handler: telemetry.SetupRoutes(telemetry.APIConfig{
				Stats:  sts,
				Backup: func() (string, error) { return plog.SnapshotBackup(st) },
				Logger: baseLogger,
			}),
		}
	}

	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Start binds the listening sockets and launches the accept loop, the
// replication listener, the telemetry server and the backup scheduler.
// Failure to bind the client port is fatal to the caller.
func (a *App) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.Port))
	if err != nil {
		return fmt.Errorf("bind client port %d: %w", a.cfg.Port, err)
	}
	a.ln = ln
	a.stats.AddLog(fmt.Sprintf("ChatServer started on %s", ln.Addr()))
	a.log.Infof("listening for clients on %s", ln.Addr())

	if a.repListener != nil {
		if err := a.repListener.Start(a.cfg.ReplicationPort); err != nil {
			ln.Close()
			return err
		}
	}

	if a.httpServer != nil {
		go func() {
			if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				a.log.Errorf("telemetry server failed: %v", err)
			}
		}()
	}

	go a.backupLoop()
	go a.acceptLoop()
	return nil
}

// Run starts the app and blocks until SIGINT/SIGTERM, then shuts down.
func (a *App) Run() error {
	if err := a.Start(); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	a.log.Warnf("received signal %s, shutting down", sig)

	return a.Stop()
}

// Stop stops accepting, cancels the backup scheduler and closes the
// listeners. In-flight sessions are not forcibly terminated.
func (a *App) Stop() error {
	a.cancel()

	if a.ln != nil {
		a.ln.Close()
	}
	if a.repListener != nil {
		a.repListener.Close()
	}
	if a.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.httpServer.Shutdown(ctx); err != nil {
			a.log.Errorf("telemetry server shutdown error: %v", err)
		}
	}

	a.log.Infof("shutdown complete")
	return nil
}

// Addr returns the client listener address. Valid only after Start; tests
// configure port 0 and read the assigned port from here.
func (a *App) Addr() net.Addr {
	return a.ln.Addr()
}

// ReplicationAddr returns the replication listener address, or nil when the
// follower listener is disabled.
func (a *App) ReplicationAddr() net.Addr {
	if a.repListener == nil {
		return nil
	}
	return a.repListener.Addr()
}

// Stats exposes the telemetry aggregate for external consumers.
func (a *App) Stats() *stats.Stats {
	return a.stats
}

// Store exposes the history store. Follower tests inspect applied entries
// through it.
func (a *App) Store() *store.HistoryStore {
	return a.store
}

// Backup triggers one manual snapshot backup.
func (a *App) Backup() (string, error) {
	return a.plog.SnapshotBackup(a.store)
}

func (a *App) acceptLoop() {
	for {
		conn, err := a.ln.Accept()
		if err != nil {
			select {
			case <-a.rootCtx.Done():
			default:
				a.log.Errorf("accept error: %v", err)
			}
			return
		}
		a.log.Infof("new client connected: %s", conn.RemoteAddr())
		sess := session.New(conn, a.relay, a.stats, logger.FromContext(a.rootCtx))
		go sess.Run()
	}
}

func (a *App) backupLoop() {
	interval := time.Duration(a.cfg.BackupEverySec) * time.Second
	ticker := a.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.rootCtx.Done():
			return
		case <-ticker.Chan():
			if _, err := a.plog.SnapshotBackup(a.store); err != nil {
				a.log.Errorf("backup error: %v", err)
				a.stats.AddLog(fmt.Sprintf("Backup error: %v", err))
			} else {
				a.stats.AddLog("History backup completed.")
			}
			a.stats.SetActiveRooms(a.registry.RoomNames())
		}
	}
}
