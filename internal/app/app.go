package app

import (
	"context"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"tickd/internal/cmdjob"
	"tickd/internal/config"
	"tickd/internal/eventbus"
	"tickd/internal/recorder"
	"tickd/internal/sched"
	"tickd/internal/storage"
	logx "tickd/pkg/logx"
)

// App owns the process-wide singletons: one config manager, one log
// service, one event bus, one scheduler engine, one recorder.
type App struct {
	cfgm *config.Manager

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	store  storage.Store
	engine *sched.Engine
	rec    *recorder.Recorder

	cancelBG context.CancelFunc
	bgWG     sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	logSvc, log := logx.New(loggingConfig(cfg))
	log = log.With(logx.String("comp", "app"))

	cfgm.SetLogger(log.With(logx.String("comp", "config")))
	cfgm.SetValidator(func(_ context.Context, c *config.Config) error {
		return config.Validate(c)
	})

	bus := eventbus.New()

	store, err := storage.Open(storageConfig(cfg), log.With(logx.String("comp", "storage")))
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}

	engine := sched.New(schedConfig(cfg), nil, log.With(logx.String("comp", "sched")), bus)
	rec := recorder.New(log.With(logx.String("comp", "recorder")), bus, store)

	return &App{
		cfgm:   cfgm,
		log:    log,
		logs:   logSvc,
		bus:    bus,
		store:  store,
		engine: engine,
		rec:    rec,
	}, nil
}

// Engine exposes the scheduler for host-registered jobs and diagnostics.
func (a *App) Engine() *sched.Engine { return a.engine }

// Bus exposes the event stream for additional subscribers.
func (a *App) Bus() eventbus.Bus { return a.bus }

func (a *App) Start(ctx context.Context) error {
	_ = ctx // lifetime is managed internally so Stop can drain cleanly

	bgCtx, cancel := context.WithCancel(context.Background())
	a.cancelBG = cancel

	a.rec.Start(bgCtx)

	cfg := a.cfgm.Get()
	if err := cmdjob.Register(a.engine, cfg.Jobs, a.log.With(logx.String("comp", "cmdjob"))); err != nil {
		cancel()
		a.rec.Stop()
		return err
	}
	if n := len(cfg.Jobs); n > 0 {
		a.log.Info("command jobs registered", logx.Int("jobs", n))
	}

	if cfg.Scheduler.Enabled {
		a.engine.Start()
	} else {
		a.log.Warn("scheduler disabled by config; jobs will not run")
	}

	// Config hot-reload: watch the file and apply updates.
	updates := a.cfgm.Subscribe(4)
	a.bgWG.Add(2)
	go func() {
		defer a.bgWG.Done()
		_ = a.cfgm.Watch(bgCtx)
	}()
	go func() {
		defer a.bgWG.Done()
		for {
			select {
			case <-bgCtx.Done():
				return
			case next, ok := <-updates:
				if !ok {
					return
				}
				a.applyConfig(next)
			}
		}
	}()

	// Best-effort: no-op outside systemd units.
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	a.log.Info("started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	_ = ctx
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	start := time.Now()
	a.engine.Stop()

	if a.cancelBG != nil {
		a.cancelBG()
	}
	a.bgWG.Wait()
	a.rec.Stop()

	if a.store != nil {
		_ = a.store.Close()
	}
	a.log.Info("stopped", logx.Duration("took", time.Since(start)))
	_ = a.logs.Close()
	return nil
}

// applyConfig applies a validated config file change. Logging and the tick
// period take effect immediately; job definitions are startup-only.
func (a *App) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	a.logs.Apply(loggingConfig(cfg))
	a.engine.Apply(schedConfig(cfg))

	if cfg.Scheduler.Enabled && !a.engine.IsRunning() {
		a.engine.Start()
	} else if !cfg.Scheduler.Enabled && a.engine.IsRunning() {
		a.engine.Pause()
	}

	a.log.Info("config applied", logx.Bool("scheduler_enabled", cfg.Scheduler.Enabled))
	a.log.Debug("job definition changes require a restart")
}

func loggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func schedConfig(cfg *config.Config) sched.Config {
	// Validated upstream; a parse failure here falls back to the default.
	period, _ := config.ParseDurationOrDefault("scheduler.tick_period", cfg.Scheduler.TickPeriod, 0)
	return sched.Config{
		Enabled:    cfg.Scheduler.Enabled,
		TickPeriod: period,
	}
}

func storageConfig(cfg *config.Config) storage.Config {
	if cfg.Storage == nil {
		return storage.Config{}
	}
	busy, _ := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	return storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
		KeepRuns:    cfg.Storage.KeepRuns,
	}
}
