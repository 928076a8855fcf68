// Package homework holds the review-status domain: the status catalog, the
// wire shape of the homework_statuses response, validation of the most recent
// submission and formatting of the notification text.
//
// Everything here is pure. Network access lives in package practicum and
// delivery in package notifier.
package homework
