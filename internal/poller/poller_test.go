package poller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hwbot/internal/eventbus"
	"hwbot/internal/homework"
	"hwbot/internal/notifier"
	"hwbot/internal/practicum"
	kit "hwbot/internal/transport"
	logx "hwbot/pkg/logx"
)

type recordingSender struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (r *recordingSender) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	if r.err != nil {
		return kit.MessageRef{}, r.err
	}
	return kit.MessageRef{ChatID: to.ChatID, MessageID: len(r.texts)}, nil
}

func (r *recordingSender) sent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts...)
}

type stubFetcher struct {
	calls   []int64
	resp    homework.Response
	err     error
	explode bool
}

func (s *stubFetcher) Fetch(ctx context.Context, from int64) (homework.Response, error) {
	s.calls = append(s.calls, from)
	if s.explode {
		panic("decoder blew up")
	}
	return s.resp, s.err
}

type panickyNotifier struct{}

func (panickyNotifier) Notify(ctx context.Context, text string) notifier.Delivery { panic("nope") }

// harness wires a real practicum client against an httptest server.
type harness struct {
	poller *Poller
	sender *recordingSender
	hits   atomic.Int32
}

func newHarness(t *testing.T, status int, body string, sendErr error) *harness {
	t.Helper()
	h := &harness{sender: &recordingSender{err: sendErr}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.hits.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	client, err := practicum.New(practicum.Config{Endpoint: srv.URL, Token: "tok", Timeout: time.Second}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	notif := notifier.New(notifier.Config{Enabled: true, Target: kit.ChatTarget{ChatID: 7}}, h.sender, logx.Nop(), nil)
	p, err := New(Config{StartCursor: 1000}, client, notif, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	h.poller = p
	return h
}

func TestScenarioApprovedNotifies(t *testing.T) {
	t.Parallel()
	h := newHarness(t, http.StatusOK, `{"homeworks": [{"homework_name": "proj1", "status": "approved"}]}`, nil)
	ev := h.poller.RunOnce(context.Background())
	if ev.Outcome != OutcomeNotified || !ev.Delivered {
		t.Fatalf("event = %+v", ev)
	}
	sent := h.sender.sent()
	if len(sent) != 1 {
		t.Fatalf("sent = %q", sent)
	}
	if !strings.Contains(sent[0], "proj1") || !strings.Contains(sent[0], "ревьюеру всё понравилось") {
		t.Fatalf("message = %q", sent[0])
	}
}

func TestScenarioEmptySendsNothing(t *testing.T) {
	t.Parallel()
	h := newHarness(t, http.StatusOK, `{"homeworks": []}`, nil)
	ev := h.poller.RunOnce(context.Background())
	if ev.Outcome != OutcomeNoUpdate || ev.Err != nil || ev.Notified {
		t.Fatalf("event = %+v", ev)
	}
	if sent := h.sender.sent(); len(sent) != 0 {
		t.Fatalf("sent = %q", sent)
	}
}

func TestScenarioUnknownStatusReportsFailure(t *testing.T) {
	t.Parallel()
	h := newHarness(t, http.StatusOK, `{"homeworks": [{"homework_name": "proj2", "status": "unknown_code"}]}`, nil)
	ev := h.poller.RunOnce(context.Background())
	if ev.Outcome != OutcomeFailed || !errors.Is(ev.Err, homework.ErrInvalidStatus) {
		t.Fatalf("event = %+v", ev)
	}
	if ev.Kind != homework.KindInvalidStatus.String() {
		t.Fatalf("kind = %q", ev.Kind)
	}
	sent := h.sender.sent()
	if len(sent) != 1 || sent[0] != DefaultFailureMessage {
		t.Fatalf("sent = %q", sent)
	}
}

func TestScenarioServerErrorReportsFailureAndContinues(t *testing.T) {
	t.Parallel()
	h := newHarness(t, http.StatusInternalServerError, `oops`, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var waits []time.Duration
	h.poller.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		if len(waits) == 2 {
			cancel()
			return ctx.Err()
		}
		return nil
	}

	if err := h.poller.Run(ctx); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if n := h.hits.Load(); n != 2 {
		t.Fatalf("server hits = %d, want 2", n)
	}
	sent := h.sender.sent()
	if len(sent) != 2 || sent[0] != DefaultFailureMessage || sent[1] != DefaultFailureMessage {
		t.Fatalf("sent = %q", sent)
	}
	for _, w := range waits {
		if w != DefaultInterval {
			t.Fatalf("wait = %v, want %v", w, DefaultInterval)
		}
	}
}

func TestDeliveryFaultDuringFailureStillSleeps(t *testing.T) {
	t.Parallel()
	h := newHarness(t, http.StatusBadGateway, ``, errors.New("Forbidden: bot was blocked by the user"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	slept := 0
	h.poller.sleep = func(ctx context.Context, d time.Duration) error {
		slept++
		cancel()
		return ctx.Err()
	}
	if err := h.poller.Run(ctx); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if slept != 1 {
		t.Fatalf("slept = %d, want 1", slept)
	}
	if len(h.sender.sent()) != 1 {
		t.Fatalf("failure notice not attempted")
	}
}

func TestMissingNameIsMalformed(t *testing.T) {
	t.Parallel()
	f := &stubFetcher{resp: homework.Response{Homeworks: []homework.Record{{Status: homework.StatusApproved}}}}
	s := &recordingSender{}
	p, err := New(Config{StartCursor: 1}, f, notifier.New(notifier.Config{Enabled: true, Target: kit.ChatTarget{ChatID: 1}}, s, logx.Nop(), nil), logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	ev := p.RunOnce(context.Background())
	if ev.Outcome != OutcomeFailed || !errors.Is(ev.Err, homework.ErrMissingName) {
		t.Fatalf("event = %+v", ev)
	}
	if ev.Kind != homework.KindMalformedRecord.String() {
		t.Fatalf("kind = %q", ev.Kind)
	}
}

func TestPanicsBecomeFailedCycles(t *testing.T) {
	t.Parallel()
	f := &stubFetcher{explode: true}
	s := &recordingSender{}
	p, err := New(Config{StartCursor: 1, FailureMessage: "broken"}, f, notifier.New(notifier.Config{Enabled: true, Target: kit.ChatTarget{ChatID: 1}}, s, logx.Nop(), nil), logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	ev := p.RunOnce(context.Background())
	if ev.Outcome != OutcomeFailed || ev.Err == nil {
		t.Fatalf("event = %+v", ev)
	}
	if sent := s.sent(); len(sent) != 1 || sent[0] != "broken" {
		t.Fatalf("sent = %q", sent)
	}

	f.explode = false
	f.err = homework.NewError(homework.KindTransport, "fetch", nil)
	p2, err := New(Config{StartCursor: 1}, f, panickyNotifier{}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	ev = p2.RunOnce(context.Background())
	if ev.Outcome != OutcomeFailed || ev.Delivered {
		t.Fatalf("event = %+v", ev)
	}
}

func TestStaticCursorByDefault(t *testing.T) {
	t.Parallel()
	f := &stubFetcher{resp: homework.Response{CurrentDate: 5000}}
	p, err := New(Config{StartCursor: 1000}, f, panickyNotifier{}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	p.RunOnce(context.Background())
	p.RunOnce(context.Background())
	if len(f.calls) != 2 || f.calls[0] != 1000 || f.calls[1] != 1000 {
		t.Fatalf("calls = %v", f.calls)
	}
	if p.Cursor() != 1000 {
		t.Fatalf("cursor = %d", p.Cursor())
	}
}

func TestAdvanceCursor(t *testing.T) {
	t.Parallel()
	now := time.Unix(9000, 0)
	f := &stubFetcher{resp: homework.Response{CurrentDate: 5000}}
	p, err := New(Config{StartCursor: 1000, AdvanceCursor: true}, f, panickyNotifier{}, logx.Nop(), WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatal(err)
	}
	p.RunOnce(context.Background())
	if p.Cursor() != 5000 {
		t.Fatalf("cursor = %d, want current_date", p.Cursor())
	}

	f.resp = homework.Response{}
	p.RunOnce(context.Background())
	if p.Cursor() != 9000 {
		t.Fatalf("cursor = %d, want cycle start", p.Cursor())
	}

	f.err = homework.NewError(homework.KindUnexpectedResponse, "fetch", nil)
	now = time.Unix(12000, 0)
	p.RunOnce(context.Background())
	if p.Cursor() != 9000 {
		t.Fatalf("cursor moved on failure: %d", p.Cursor())
	}
	if got := f.calls; len(got) != 3 || got[0] != 1000 || got[1] != 5000 || got[2] != 9000 {
		t.Fatalf("calls = %v", got)
	}
}

func TestStartCursorDefaultsToNow(t *testing.T) {
	t.Parallel()
	p, err := New(Config{}, &stubFetcher{}, panickyNotifier{}, logx.Nop(), WithClock(func() time.Time { return time.Unix(4242, 0) }))
	if err != nil {
		t.Fatal(err)
	}
	if p.Cursor() != 4242 {
		t.Fatalf("cursor = %d", p.Cursor())
	}
}

func TestCanceledCycleIsNotReported(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &stubFetcher{err: homework.NewError(homework.KindTransport, "fetch", context.Canceled)}
	s := &recordingSender{}
	p, err := New(Config{StartCursor: 1}, f, notifier.New(notifier.Config{Enabled: true, Target: kit.ChatTarget{ChatID: 1}}, s, logx.Nop(), nil), logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(s.sent()) != 0 {
		t.Fatalf("failure notice sent during shutdown: %q", s.sent())
	}
}

func TestPhasesArePublished(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	events, unsub := bus.Subscribe(32)
	defer unsub()

	f := &stubFetcher{resp: homework.Response{Homeworks: []homework.Record{{HomeworkName: "p", Status: homework.StatusRejected}}}}
	s := &recordingSender{}
	var hooked []CycleEvent
	p, err := New(Config{StartCursor: 1}, f,
		notifier.New(notifier.Config{Enabled: true, Target: kit.ChatTarget{ChatID: 1}}, s, logx.Nop(), nil),
		logx.Nop(), WithBus(bus), WithCycleHook(func(ev CycleEvent) { hooked = append(hooked, ev) }))
	if err != nil {
		t.Fatal(err)
	}
	p.RunOnce(context.Background())

	var phases []Phase
	var cycle *CycleEvent
	for len(events) > 0 {
		e := <-events
		switch d := e.Data.(type) {
		case PhaseEvent:
			phases = append(phases, d.Phase)
		case CycleEvent:
			c := d
			cycle = &c
		}
	}
	want := []Phase{PhaseFetching, PhaseValidating, PhaseFormatting, PhaseNotifying}
	if len(phases) != len(want) {
		t.Fatalf("phases = %v, want %v", phases, want)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Fatalf("phases = %v, want %v", phases, want)
		}
	}
	if cycle == nil || cycle.Outcome != OutcomeNotified || cycle.Status != "rejected" {
		t.Fatalf("cycle = %+v", cycle)
	}
	if len(hooked) != 1 || hooked[0].Cycle != 1 {
		t.Fatalf("hook calls = %+v", hooked)
	}
}

func TestNewValidatesDependencies(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{}, nil, panickyNotifier{}, logx.Nop()); err == nil {
		t.Fatal("expected error for nil fetcher")
	}
	if _, err := New(Config{}, &stubFetcher{}, nil, logx.Nop()); err == nil {
		t.Fatal("expected error for nil notifier")
	}
}

func TestSleepIsExactIntervalOffTheSecond(t *testing.T) {
	t.Parallel()
	for _, interval := range []time.Duration{time.Second, 90 * time.Second, DefaultInterval} {
		f := &stubFetcher{resp: homework.Response{}}
		clock := time.Date(2024, 1, 1, 10, 0, 0, 700_000_000, time.UTC)
		p, err := New(Config{Interval: interval, StartCursor: 1}, f,
			notifier.New(notifier.Config{Enabled: true, Target: kit.ChatTarget{ChatID: 1}}, &recordingSender{}, logx.Nop(), nil),
			logx.Nop(), WithClock(func() time.Time { return clock }))
		if err != nil {
			t.Fatal(err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		var waits []time.Duration
		p.sleep = func(ctx context.Context, d time.Duration) error {
			waits = append(waits, d)
			clock = clock.Add(d + 300*time.Millisecond)
			if len(waits) == 3 {
				cancel()
				return ctx.Err()
			}
			return nil
		}
		if err := p.Run(ctx); err != nil {
			t.Fatalf("Run error: %v", err)
		}
		cancel()
		for _, w := range waits {
			if w != interval {
				t.Fatalf("interval %v: wait = %v", interval, w)
			}
		}
	}
}
