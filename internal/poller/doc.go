// Package poller is the poll loop: it asks the homework API for updates,
// validates and formats the most recent one, hands it to the notifier and
// sleeps for a fixed interval.
//
// States, in order: fetching, validating, formatting, notifying, sleeping.
// Any fetch, validation or formatting fault (or a panic) diverts the cycle to
// the failure state, which logs the fault and sends a generic failure notice
// before sleeping. Retries are flat: the same interval every time, no
// backoff, no cap.
//
// The from_date cursor is fixed at start unless Config.AdvanceCursor is set.
package poller
