// Package notifier delivers status and failure messages to the configured
// Telegram chat.
//
// # Contract
//
// Notify never fails its caller. A delivery fault (network error, unknown
// chat, Bot API rejection, even a panicking sender) is logged, kept in the
// in-memory history and returned as a Delivery value. The poll loop relies on
// this when it reports its own failures: a broken sink must not stop it from
// reaching the sleep step.
//
// # History
//
// The service keeps a small in-memory history of recent deliveries for
// debugging and tests.
package notifier
