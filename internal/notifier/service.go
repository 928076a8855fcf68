package notifier

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"hwbot/internal/eventbus"
	"hwbot/internal/homework"
	kit "hwbot/internal/transport"
	logx "hwbot/pkg/logx"
)

const (
	defaultSendTimeout = 10 * time.Second
	defaultHistorySize = 50
)

// Service delivers text messages to one fixed chat.
//
// Delivery is synchronous and best-effort: a failing sink is logged and
// reported in the returned Delivery, never propagated as an error or panic.
type Service struct {
	cfg    Config
	sender kit.Sender
	log    logx.Logger
	bus    eventbus.Bus

	hmu     sync.Mutex
	history []HistoryItem
}

func New(cfg Config, sender kit.Sender, log logx.Logger, bus eventbus.Bus) *Service {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = defaultHistorySize
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, sender: sender, log: log, bus: bus}
}

func (s *Service) Enabled() bool { return s.cfg.Enabled }

// Notify sends text to the configured recipient.
func (s *Service) Notify(ctx context.Context, text string) (d Delivery) {
	if ctx == nil {
		ctx = context.Background()
	}
	d.At = time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.Sent = false
			d.Err = homework.NewError(homework.KindDelivery, "notify", fmt.Errorf("%w: panic: %v", homework.ErrDelivery, r))
			s.log.Error("notification sender panicked", logx.Any("panic", r), logx.Stack(string(debug.Stack())))
			s.record(text, d)
		}
	}()

	if !s.cfg.Enabled {
		d.DryRun = true
		s.log.Info("notification (dry run)", logx.String("text", text))
		s.record(text, d)
		return d
	}
	if s.sender == nil {
		d.Err = homework.NewError(homework.KindDelivery, "notify", fmt.Errorf("%w: no sender configured", homework.ErrDelivery))
		s.log.Error("notification not delivered", logx.Err(d.Err))
		s.record(text, d)
		return d
	}

	sctx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()
	ref, err := s.sender.SendText(sctx, s.cfg.Target, text, &kit.SendOptions{DisablePreview: s.cfg.DisablePreview})
	d.Took = time.Since(d.At)
	if err != nil {
		d.Err = homework.NewError(homework.KindDelivery, "notify", fmt.Errorf("%w: %w", homework.ErrDelivery, err))
		s.log.Error("notification not delivered",
			logx.Err(err),
			logx.Int64("chat_id", s.cfg.Target.ChatID),
			logx.Duration("took", d.Took),
		)
		s.record(text, d)
		return d
	}

	d.Sent = true
	d.Ref = ref
	s.log.Info("notification delivered",
		logx.Int64("chat_id", s.cfg.Target.ChatID),
		logx.Int("message_id", ref.MessageID),
		logx.Duration("took", d.Took),
	)
	s.record(text, d)
	return d
}

// Snapshot returns recent deliveries, oldest first.
func (s *Service) Snapshot() []HistoryItem {
	s.hmu.Lock()
	out := append([]HistoryItem(nil), s.history...)
	s.hmu.Unlock()
	return out
}

func (s *Service) record(text string, d Delivery) {
	it := HistoryItem{At: d.At, Text: text, Sent: d.Sent}
	if d.Err != nil {
		it.Err = d.Err.Error()
	}
	s.hmu.Lock()
	s.history = append(s.history, it)
	if len(s.history) > s.cfg.HistorySize {
		s.history = s.history[len(s.history)-s.cfg.HistorySize:]
	}
	s.hmu.Unlock()

	if d.DryRun {
		return
	}
	typ := eventbus.NotifySent
	if d.Err != nil {
		typ = eventbus.NotifyFailed
	}
	eventbus.Publish(s.bus, typ, NotificationEvent{ChatID: s.cfg.Target.ChatID, ThreadID: s.cfg.Target.ThreadID, At: d.At, Error: it.Err})
}
