package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"tellmewhen/internal/config"
	"tellmewhen/internal/event"
	"tellmewhen/internal/listener"
	"tellmewhen/internal/runtime/supervisor"
	"tellmewhen/internal/scheduler"
	"tellmewhen/internal/spawn"
	logx "tellmewhen/pkg/logx"
)

const (
	defaultQueueSize   = 64
	defaultStopTimeout = 5 * time.Second
)

type Config struct {
	Options config.Options
	Events  []event.Definition

	// Files are the event files Events were loaded from; used by the watcher.
	Files []string
	Watch bool

	// ListenAddr overrides Options.Addr() (tests bind to port 0).
	ListenAddr string
	QueueSize  int

	// CommandRate caps accepted commands per second across all clients;
	// 0 keeps the listener default and a negative value disables the cap.
	CommandRate int

	// Spawner overrides the os/exec spawner (tests).
	Spawner scheduler.Spawner
}

type App struct {
	cfg Config
	log logx.Logger

	catalog *event.Catalog
	queue   chan string
	lis     *listener.Server
	watch   *config.Watcher

	ready chan struct{}
}

func New(cfg Config, log logx.Logger) (*App, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	if err := cfg.Options.Validate(); err != nil {
		return nil, err
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	addr := cfg.ListenAddr
	if addr == "" {
		addr = cfg.Options.Addr()
	}

	a := &App{
		cfg:     cfg,
		log:     log,
		catalog: event.NewCatalog(cfg.Events),
		queue:   make(chan string, cfg.QueueSize),
		ready:   make(chan struct{}),
	}
	var lisOpts []listener.Option
	if cfg.CommandRate != 0 {
		lisOpts = append(lisOpts, listener.WithRate(cfg.CommandRate, cfg.CommandRate))
	}
	a.lis = listener.New(addr, a.queue, log.With(logx.String("comp", "listener")), lisOpts...)
	if cfg.Watch && len(cfg.Files) > 0 {
		running := make([]event.Definition, 0, a.catalog.Len())
		for _, ev := range a.catalog.Events() {
			running = append(running, ev.Definition())
		}
		a.watch = config.NewWatcher(cfg.Files, running, log.With(logx.String("comp", "config")))
	}
	return a, nil
}

// Ready is closed once the command listener is bound.
func (a *App) Ready() <-chan struct{} { return a.ready }

// Addr returns the listener address once Ready is closed.
func (a *App) Addr() net.Addr { return a.lis.Addr() }

// Run serves until a "quit" command, ctx cancellation or a fatal component
// error, then stops everything and reports why.
func (a *App) Run(ctx context.Context) (StopReason, error) {
	sup := supervisor.NewSupervisor(ctx,
		supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))),
		supervisor.WithCancelOnError(true),
	)

	spawner := a.cfg.Spawner
	if spawner == nil {
		spawner = spawn.New(a.log.With(logx.String("comp", "spawn")), spawn.WithGoer(spawn.GoerFunc(sup.GoDetached)))
	}
	sched := scheduler.New(a.cfg.Options, a.catalog, spawner, a.log.With(logx.String("comp", "scheduler")))

	if err := a.lis.Listen(); err != nil {
		sup.Cancel()
		return StopFatalError, err
	}
	close(a.ready)

	sup.Go("listener", a.lis.Serve)
	if a.watch != nil {
		sup.Go0("config.watch", a.watch.Watch)
	}
	quit := make(chan struct{})
	sup.Go("scheduler", func(ctx context.Context) error {
		err := sched.Run(ctx, a.queue)
		if err == nil {
			close(quit)
			sup.Cancel()
		}
		return err
	})

	a.log.Info("server started",
		logx.String("addr", a.lis.Addr().String()),
		logx.Strs("events", a.catalog.Names()),
		logx.Bool("watch", a.watch != nil),
		logx.Duration("start_delay", a.cfg.Options.StartDelay),
		logx.Duration("min_cmd_separation", a.cfg.Options.MinCmdSeparation),
	)
	sdNotify(a.log, fmt.Sprintf("READY=1\nSTATUS=listening on %s", a.lis.Addr()))

	<-sup.Context().Done()
	sdNotify(a.log, "STOPPING=1")

	stopCtx, cancel := context.WithTimeout(context.Background(), defaultStopTimeout)
	defer cancel()
	start := time.Now()
	waitErr := sup.Stop(stopCtx)
	counters := sup.Counters()

	reason := StopUnknown
	select {
	case <-quit:
		reason = StopQuit
	default:
		if ctx.Err() != nil {
			reason = StopSignal
		}
	}
	if err := sup.Err(); err != nil {
		a.log.Error("server stopped", logx.String("reason", string(StopFatalError)), logx.Err(err))
		return StopFatalError, err
	}
	if errors.Is(waitErr, context.DeadlineExceeded) {
		a.log.Warn("shutdown timed out", logx.Duration("timeout", defaultStopTimeout), logx.Int("active", int(counters.Active)))
	}
	a.log.Info("server stopped",
		logx.String("reason", string(reason)),
		logx.Duration("took", time.Since(start)),
		logx.Int("goroutines", int(counters.Started)),
	)
	return reason, nil
}
