// Package daemon supervises one long-running mec role (scraper or handler).
//
// A role holds a flock-based lock so only one instance runs per state
// directory, writes a pid file for operators, and starts its services in
// order. Services stop in reverse order on shutdown. Probe lets the CLI
// inspect a role without touching the running process.
package daemon
