// Package app wires the daemon together: config, logging, storage, the run
// pipeline, the scheduler and the notifier, plus config hot reload.
package app

import (
	"context"
	"fmt"
	"time"

	"shiftd/internal/budget"
	"shiftd/internal/config"
	"shiftd/internal/core"
	"shiftd/internal/eventbus"
	"shiftd/internal/notify"
	"shiftd/internal/runtime/supervisor"
	"shiftd/internal/schedule"
	"shiftd/internal/shift"
	"shiftd/internal/store"
	logx "shiftd/pkg/logx"
)

type App struct {
	cfgPath string
	cfgm    *config.Manager
	sup     *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus
	st   store.Store

	core  *core.Service
	sched *schedule.Service
	notif *notify.Service
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLoggingConfig(cfg))
	log = log.With(logx.String("comp", "app"))
	bus := eventbus.New()

	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(sc, log.With(logx.String("comp", "store")))
	if err != nil {
		return nil, err
	}
	log.Info("storage opened", logx.String("driver", sc.Driver))

	ncfg, err := mapNotifyConfig(cfg)
	if err != nil {
		return nil, err
	}
	var sender notify.Sender
	if ncfg.Enabled {
		sender = notify.NewWebhookSender(ncfg.WebhookURL, nil)
	}
	notifSvc := notify.New(ncfg, sender, log.With(logx.String("comp", "notify")), bus)

	// The stub executor models step execution until a real backend lands.
	pipe := shift.NewPipeline(shift.StubExecutor{}, log.With(logx.String("comp", "shift")), bus)

	maxPerOwner := cfg.Quota.MaxPerOwner
	switch {
	case maxPerOwner == 0:
		maxPerOwner = 20
	case maxPerOwner < 0:
		maxPerOwner = 0 // quota disabled
	}
	coreSvc := core.New(core.Config{
		MaxPerOwner: maxPerOwner,
		Budget:      budget.Config{USDPerThousandTokens: cfg.Budget.USDPerThousandTokens},
	}, st, pipe, log.With(logx.String("comp", "core")), bus)
	coreSvc.SetNotifier(notifSvc)

	tick, err := config.ParseDurationOrDefault("scheduler.tick", cfg.Scheduler.Tick, time.Minute)
	if err != nil {
		return nil, err
	}
	schedSvc := schedule.New(schedule.Config{Tick: tick}, st, coreSvc, schedule.RealClock(),
		log.With(logx.String("comp", "schedule")), bus)
	coreSvc.SetScheduler(schedSvc)

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		st:      st,
		core:    coreSvc,
		sched:   schedSvc,
		notif:   notifSvc,
	}, nil
}

func (a *App) Core() *core.Service { return a.core }

// Done is closed on fatal error or Stop.
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return validateConfig(cfg)
	})

	if a.notif.Enabled() {
		a.notif.Start(a.sup.Context())
	}
	if a.cfgm.Get().Scheduler.Enabled {
		if err := a.sched.Start(a.sup.Context()); err != nil {
			return err
		}
	}

	a.sup.GoRestart("config.watch", func(ctx context.Context) error {
		return a.cfgm.Watch(ctx)
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(ctx context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				a.applyConfig(cfg)
			}
		}
	})

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(ctx context.Context) {
		defer unsub()
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	a.log.Info("daemon started", logx.String("config", a.cfgPath))
	return nil
}

// applyConfig hot-applies the sections that support it. Storage, quota and
// scheduler tick changes need a restart; they are logged, not applied.
func (a *App) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	a.logs.Apply(mapLoggingConfig(cfg))

	if ncfg, err := mapNotifyConfig(cfg); err == nil {
		a.notif.Apply(ncfg)
	}

	a.log.Warn("storage, quota and scheduler changes take effect after restart")
}

func (a *App) Stop(ctx context.Context) error {
	a.log.Info("daemon stopping")
	if a.sched != nil {
		a.sched.Stop(ctx)
	}
	if a.notif != nil {
		a.notif.Stop(ctx)
	}
	if a.sup != nil {
		a.sup.Cancel()
		_ = a.sup.Wait(ctx)
	}
	if a.st != nil {
		_ = a.st.Close()
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}

func validateConfig(cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Budget.USDPerThousandTokens < 0 {
		return fmt.Errorf("budget.usd_per_thousand_tokens must be >= 0")
	}
	if _, err := config.ParseDurationField("scheduler.tick", cfg.Scheduler.Tick); err != nil {
		return err
	}
	if _, err := mapStorageConfig(cfg); err != nil {
		return err
	}
	_, err := mapNotifyConfig(cfg)
	return err
}

func mapLoggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (store.Config, error) {
	if cfg.Storage == nil {
		return store.Config{Driver: "memory"}, nil
	}
	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return store.Config{}, err
	}
	return store.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, nil
}

func mapNotifyConfig(cfg *config.Config) (notify.Config, error) {
	if cfg.Notify == nil {
		return notify.Config{}, nil
	}
	n := cfg.Notify
	retryBase, err := config.ParseDurationField("notify.retry_base", n.RetryBase)
	if err != nil {
		return notify.Config{}, err
	}
	retryMax, err := config.ParseDurationField("notify.retry_max_delay", n.RetryMaxDelay)
	if err != nil {
		return notify.Config{}, err
	}
	sendTimeout, err := config.ParseDurationField("notify.send_timeout", n.SendTimeout)
	if err != nil {
		return notify.Config{}, err
	}
	if n.Enabled && n.WebhookURL == "" {
		return notify.Config{}, fmt.Errorf("notify.webhook_url is required when notify is enabled")
	}
	return notify.Config{
		Enabled:       n.Enabled,
		Workers:       n.Workers,
		QueueSize:     n.QueueSize,
		RatePerSec:    n.RatePerSec,
		RetryMax:      n.RetryMax,
		RetryBase:     retryBase,
		RetryMaxDelay: retryMax,
		WebhookURL:    n.WebhookURL,
		SendTimeout:   sendTimeout,
	}, nil
}
