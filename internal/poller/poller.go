package poller

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"hwbot/internal/eventbus"
	"hwbot/internal/homework"
	"hwbot/internal/notifier"
	logx "hwbot/pkg/logx"
)

// Poller runs the fetch → validate → format → notify cycle forever, with a
// fixed delay between cycles. No cycle failure ends the loop; only ctx does.
type Poller struct {
	cfg    Config
	fetch  Fetcher
	notify Notifier
	log    logx.Logger
	bus    eventbus.Bus

	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
	onCycle func(CycleEvent)

	cursor atomic.Int64
	seq    uint64
}

type Option func(*Poller)

func WithBus(bus eventbus.Bus) Option { return func(p *Poller) { p.bus = bus } }

func WithClock(now func() time.Time) Option {
	return func(p *Poller) {
		if now != nil {
			p.now = now
		}
	}
}

// WithSleeper replaces the inter-cycle sleep. fn must return ctx.Err() when ctx ends.
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Poller) {
		if fn != nil {
			p.sleep = fn
		}
	}
}

// WithCycleHook registers fn to run after every cycle, before sleeping.
func WithCycleHook(fn func(CycleEvent)) Option { return func(p *Poller) { p.onCycle = fn } }

func New(cfg Config, fetch Fetcher, notify Notifier, log logx.Logger, opts ...Option) (*Poller, error) {
	if fetch == nil {
		return nil, errors.New("poller: fetcher is nil")
	}
	if notify == nil {
		return nil, errors.New("poller: notifier is nil")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if strings.TrimSpace(cfg.FailureMessage) == "" {
		cfg.FailureMessage = DefaultFailureMessage
	}
	if cfg.Catalog == nil {
		cfg.Catalog = homework.DefaultCatalog()
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	p := &Poller{
		cfg:    cfg,
		fetch:  fetch,
		notify: notify,
		log:    log,
		now:    time.Now,
		sleep:  sleepCtx,
	}
	for _, o := range opts {
		if o != nil {
			o(p)
		}
	}
	start := cfg.StartCursor
	if start <= 0 {
		start = p.now().Unix()
	}
	p.cursor.Store(start)
	return p, nil
}

// Cursor returns the current from_date value.
func (p *Poller) Cursor() int64 { return p.cursor.Load() }

// Run loops until ctx is done. It always returns nil on shutdown.
func (p *Poller) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	p.log.Info("poller started",
		logx.Int64("cursor", p.Cursor()),
		logx.Duration("interval", p.cfg.Interval),
		logx.Bool("advance_cursor", p.cfg.AdvanceCursor),
	)
	for {
		ev := p.RunOnce(ctx)
		if ctx.Err() != nil {
			break
		}

		wait := p.cfg.Interval
		p.phase(ev.Cycle, PhaseSleeping)
		p.log.Debug("sleeping", logx.Duration("wait", wait), logx.String("outcome", string(ev.Outcome)))
		if err := p.sleep(ctx, wait); err != nil {
			break
		}
	}
	p.log.Info("poller stopped", logx.Int64("cursor", p.Cursor()))
	return nil
}

// RunOnce executes a single cycle and reports its outcome. It never panics.
func (p *Poller) RunOnce(ctx context.Context) (ev CycleEvent) {
	if ctx == nil {
		ctx = context.Background()
	}
	p.seq++
	ev.Cycle = p.seq
	started := p.now()
	ev.Cursor = p.Cursor()

	defer func() {
		ev.Took = p.now().Sub(started)
		if ev.Err != nil {
			ev.Error = ev.Err.Error()
		}
		eventbus.Publish(p.bus, eventbus.PollCycle, ev)
		if p.onCycle != nil {
			p.onCycle(ev)
		}
	}()

	text, resp, found, err := p.collect(ctx, &ev)
	if err != nil {
		if ctx.Err() != nil {
			ev.Outcome = OutcomeAborted
			ev.Err = err
			p.log.Debug("cycle aborted", logx.Err(err))
			return ev
		}
		p.fail(ctx, &ev, err)
		return ev
	}

	if found {
		p.phase(ev.Cycle, PhaseNotifying)
		d := p.safeNotify(ctx, text)
		ev.Outcome = OutcomeNotified
		ev.Notified = true
		ev.Delivered = d.Sent
	} else {
		ev.Outcome = OutcomeNoUpdate
		p.log.Debug("no homework updates", logx.Int64("cursor", ev.Cursor))
	}

	if p.cfg.AdvanceCursor {
		next := resp.CurrentDate
		if next <= 0 {
			next = started.Unix()
		}
		if next > ev.Cursor {
			p.cursor.Store(next)
		}
	}
	return ev
}

// collect runs the fetch, validate and format steps. A panic in any of them
// is returned as an error.
func (p *Poller) collect(ctx context.Context, ev *CycleEvent) (text string, resp homework.Response, found bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in poll cycle: %v", r)
			p.log.Error("poll cycle panicked", logx.Any("panic", r), logx.Stack(string(debug.Stack())))
		}
	}()

	p.phase(ev.Cycle, PhaseFetching)
	resp, err = p.fetch.Fetch(ctx, ev.Cursor)
	if err != nil {
		return "", resp, false, err
	}

	p.phase(ev.Cycle, PhaseValidating)
	res, err := homework.Validate(resp, p.cfg.Catalog)
	if err != nil {
		return "", resp, false, err
	}
	if !res.Found {
		return "", resp, false, nil
	}
	ev.Homework = res.Record.HomeworkName
	ev.Status = string(res.Record.Status)

	p.phase(ev.Cycle, PhaseFormatting)
	text, err = homework.Format(res.Record, p.cfg.Catalog)
	if err != nil {
		return "", resp, false, err
	}
	return text, resp, true, nil
}

func (p *Poller) fail(ctx context.Context, ev *CycleEvent, err error) {
	p.phase(ev.Cycle, PhaseFailure)
	kind := homework.KindOf(err)
	ev.Outcome = OutcomeFailed
	ev.Err = err
	ev.Kind = kind.String()
	p.log.Error("poll cycle failed",
		logx.Err(err),
		logx.String("kind", kind.String()),
		logx.Int64("cursor", ev.Cursor),
		logx.Int64("cycle", int64(ev.Cycle)),
	)

	d := p.safeNotify(ctx, p.cfg.FailureMessage)
	ev.Notified = true
	ev.Delivered = d.Sent
}

// safeNotify shields the loop from notifiers that break their own contract.
func (p *Poller) safeNotify(ctx context.Context, text string) (d notifier.Delivery) {
	defer func() {
		if r := recover(); r != nil {
			d = notifier.Delivery{Err: fmt.Errorf("%w: panic: %v", homework.ErrDelivery, r)}
			p.log.Error("notifier panicked", logx.Any("panic", r))
		}
	}()
	return p.notify.Notify(ctx, text)
}

func (p *Poller) phase(cycle uint64, ph Phase) {
	p.log.Trace("phase", logx.String("phase", string(ph)), logx.Int64("cycle", int64(cycle)))
	eventbus.Publish(p.bus, eventbus.PollPhase, PhaseEvent{Cycle: cycle, Phase: ph})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
