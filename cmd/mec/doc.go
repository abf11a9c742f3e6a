// Package main hosts the mec CLI entrypoint and command graph.
//
// The Cobra command tree runs the scraper and handler daemons, triggers
// one-off adapter runs, inspects schedules and the outbox, and validates or
// serializes event files. Commands share one lazily loaded configuration.
//
// Keep this package lean: behavior belongs in the internal packages and is
// surfaced here through commands and flags.
package main
