package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/coreos/go-systemd/v22/daemon"

	"hwbot/internal/config"
	"hwbot/internal/eventbus"
	"hwbot/internal/homework"
	"hwbot/internal/notifier"
	"hwbot/internal/poller"
	"hwbot/internal/practicum"
	kit "hwbot/internal/transport"
	telegram "hwbot/internal/transport/telegram/adapter"
	logx "hwbot/pkg/logx"
)

type App struct {
	cfgm *config.Manager

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	notif  *notifier.Service
	poller *poller.Poller

	// applied is the config the running components were built from (plus
	// live logging changes). Only applyConfig touches it after build, and
	// the config manager never runs two reload callbacks at once.
	applied *config.Config
}

// Option customizes wiring; used by tests to swap external endpoints.
type Option func(*deps)

type deps struct {
	sender  kit.Sender
	fetchOp []practicum.Option
	pollOp  []poller.Option
}

// WithSender replaces the Telegram adapter.
func WithSender(s kit.Sender) Option { return func(d *deps) { d.sender = s } }

func WithPracticumOptions(opts ...practicum.Option) Option {
	return func(d *deps) { d.fetchOp = append(d.fetchOp, opts...) }
}

func WithPollerOptions(opts ...poller.Option) Option {
	return func(d *deps) { d.pollOp = append(d.pollOp, opts...) }
}

// NewApp loads configuration from cfgPath (empty: defaults + environment)
// and wires every component.
func NewApp(cfgPath string, opts ...Option) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	return build(cfgm, cfg, opts...)
}

func build(cfgm *config.Manager, cfg *config.Config, opts ...Option) (*App, error) {
	var d deps
	for _, o := range opts {
		if o != nil {
			o(&d)
		}
	}

	logSvc, log := logx.New(mapLogConfig(cfg))
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))
	fail := func(err error) (*App, error) {
		_ = logSvc.Close()
		return nil, err
	}

	bus := eventbus.New()
	catalog := homework.DefaultCatalog()

	pcfg, err := mapPracticumConfig(cfg)
	if err != nil {
		return fail(err)
	}
	client, err := practicum.New(pcfg, log.With(logx.String("comp", "practicum")), d.fetchOp...)
	if err != nil {
		return fail(err)
	}

	sender := d.sender
	if sender == nil && !cfg.Telegram.DryRun {
		tcfg, err := mapTelegramConfig(cfg)
		if err != nil {
			return fail(err)
		}
		ad, err := telegram.New(tcfg, log.With(logx.String("comp", "telegram")))
		if err != nil {
			return fail(fmt.Errorf("telegram: %w", err))
		}
		sender = ad
	}

	ncfg, err := mapNotifierConfig(cfg)
	if err != nil {
		return fail(err)
	}
	notif := notifier.New(ncfg, sender, log.With(logx.String("comp", "notifier")), bus)

	polCfg, err := mapPollerConfig(cfg, catalog)
	if err != nil {
		return fail(err)
	}
	a := &App{cfgm: cfgm, log: log, logs: logSvc, bus: bus, notif: notif, applied: cfg}

	popts := append([]poller.Option{
		poller.WithBus(bus),
		poller.WithCycleHook(a.onCycle),
	}, d.pollOp...)
	p, err := poller.New(polCfg, client, notif, log.With(logx.String("comp", "poller")), popts...)
	if err != nil {
		return fail(err)
	}
	a.poller = p
	return a, nil
}

func (a *App) Bus() eventbus.Bus { return a.bus }
func (a *App) Notifier() *notifier.Service { return a.notif }

// Run polls until ctx is done. The config watcher runs alongside; the poll
// loop itself stays on the calling goroutine.
func (a *App) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	wctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.cfgm.Watch(wctx, a.applyConfig); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn("config watcher stopped", logx.Err(err))
		}
	}()

	notifySystemd(a.log, daemon.SdNotifyReady)
	err := a.poller.Run(ctx)
	notifySystemd(a.log, daemon.SdNotifyStopping)

	cancel()
	wg.Wait()
	return err
}

func (a *App) Close() error {
	if a.logs != nil {
		return a.logs.Close()
	}
	return nil
}

func (a *App) onCycle(ev poller.CycleEvent) {
	fields := []logx.Field{
		logx.Int64("cycle", int64(ev.Cycle)),
		logx.String("outcome", string(ev.Outcome)),
		logx.Int64("cursor", ev.Cursor),
		logx.Duration("took", ev.Took),
	}
	if ev.Homework != "" {
		fields = append(fields, logx.String("homework", ev.Homework), logx.String("status", ev.Status))
	}
	switch ev.Outcome {
	case poller.OutcomeFailed:
		a.log.Warn("cycle finished", append(fields, logx.String("kind", ev.Kind), logx.Bool("failure_notice_delivered", ev.Delivered))...)
	case poller.OutcomeNotified:
		a.log.Info("cycle finished", append(fields, logx.Bool("delivered", ev.Delivered))...)
	default:
		a.log.Debug("cycle finished", fields...)
	}
	notifySystemd(a.log, daemon.SdNotifyWatchdog)
	notifySystemd(a.log, "STATUS=last cycle: "+string(ev.Outcome))
}

// applyConfig handles a hot reload. Only logging changes take effect live.
func (a *App) applyConfig(newCfg *config.Config) {
	sections, attrs := config.SummarizeConfigChange(a.applied, newCfg)
	a.logs.Apply(mapLogConfig(newCfg))

	next := *a.applied
	next.Logging = newCfg.Logging
	a.applied = &next

	if len(sections) > 0 {
		a.log.Info("config reloaded", append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)...)
	}
	if config.RestartRequired(sections) {
		a.log.Warn("config change needs a restart to take effect", logx.String("changed", strings.Join(sections, ",")))
	}
	eventbus.Publish(a.bus, eventbus.ConfigReloaded, sections)
}
