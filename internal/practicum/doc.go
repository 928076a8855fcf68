// Package practicum is the HTTP client for the homework_statuses API.
package practicum
