// Package notifications sends operator alerts to ntfy.
//
// The service degrades to a no-op when no topic is configured, so callers
// never branch on whether alerting is enabled.
package notifications
