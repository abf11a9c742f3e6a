// Package metrics defines the Prometheus collectors for adapter runs, the
// outbox relay and the consumer, and serves them over HTTP.
package metrics
