// Package daemonrun wires a mec role into a running process: logging,
// preflight, the outbox store, the dispatcher or the consumer, the relay and
// the metrics endpoint.
package daemonrun
