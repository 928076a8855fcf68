package notifier

import (
	"time"

	kit "hwbot/internal/transport"
)

// Config controls delivery to the single notification recipient.
type Config struct {
	// Enabled=false turns Notify into a dry run that only logs the text.
	Enabled bool
	Target  kit.ChatTarget
	// SendTimeout bounds one delivery. Zero means 10s.
	SendTimeout    time.Duration
	DisablePreview bool
	// HistorySize caps the in-memory delivery history. Zero means 50.
	HistorySize int
}

// Delivery is the outcome of a Notify call. Callers may ignore it.
type Delivery struct {
	Sent   bool
	DryRun bool
	Ref    kit.MessageRef
	Err    error
	At     time.Time
	Took   time.Duration
}

// OK reports whether the message reached the sink (or was a dry run).
func (d Delivery) OK() bool { return d.Err == nil }

type HistoryItem struct {
	At   time.Time
	Text string
	Sent bool
	Err  string
}

// NotificationEvent is emitted on the event bus after each delivery attempt.
type NotificationEvent struct {
	ChatID   int64     `json:"chat_id"`
	ThreadID int       `json:"thread_id,omitempty"`
	At       time.Time `json:"at"`
	Error    string    `json:"error,omitempty"`
}
