package poller

import (
	"context"
	"time"

	"hwbot/internal/homework"
	"hwbot/internal/notifier"
)

// Phase is a state of the poll loop.
type Phase string

const (
	PhaseFetching   Phase = "fetching"
	PhaseValidating Phase = "validating"
	PhaseFormatting Phase = "formatting"
	PhaseNotifying  Phase = "notifying"
	PhaseFailure    Phase = "failure"
	PhaseSleeping   Phase = "sleeping"
)

// Outcome summarizes one cycle.
type Outcome string

const (
	// OutcomeNotified: a status message was handed to the notifier.
	OutcomeNotified Outcome = "notified"
	// OutcomeNoUpdate: the API reported no homework since the cursor.
	OutcomeNoUpdate Outcome = "no_update"
	// OutcomeFailed: fetch, validate or format failed; a failure notice was attempted.
	OutcomeFailed Outcome = "failed"
	// OutcomeAborted: the context ended mid-cycle (shutdown). Nothing is reported.
	OutcomeAborted Outcome = "aborted"
)

// Fetcher is implemented by *practicum.Client.
type Fetcher interface {
	Fetch(ctx context.Context, from int64) (homework.Response, error)
}

// Notifier is implemented by *notifier.Service.
type Notifier interface {
	Notify(ctx context.Context, text string) notifier.Delivery
}

// DefaultFailureMessage is sent when a cycle fails.
const DefaultFailureMessage = "Что-то пошло не так."

// DefaultInterval is the fixed delay between cycles.
const DefaultInterval = 300 * time.Second

type Config struct {
	// Interval is the fixed delay after each cycle. Zero means DefaultInterval.
	Interval time.Duration
	// AdvanceCursor moves the from_date cursor forward after each successful
	// cycle. Off by default: every cycle asks for the same origin timestamp.
	AdvanceCursor bool
	// StartCursor overrides the initial cursor (unix seconds). Zero means "now".
	StartCursor    int64
	FailureMessage string
	Catalog        homework.Catalog
}

// PhaseEvent is published on every state transition.
type PhaseEvent struct {
	Cycle uint64 `json:"cycle"`
	Phase Phase  `json:"phase"`
}

// CycleEvent is published once per finished cycle.
type CycleEvent struct {
	Cycle     uint64        `json:"cycle"`
	Outcome   Outcome       `json:"outcome"`
	Kind      string        `json:"kind,omitempty"`
	Error     string        `json:"error,omitempty"`
	Homework  string        `json:"homework,omitempty"`
	Status    string        `json:"status,omitempty"`
	Cursor    int64         `json:"cursor"`
	Notified  bool          `json:"notified"`
	Delivered bool          `json:"delivered"`
	Took      time.Duration `json:"took"`
	Err       error         `json:"-"`
}
