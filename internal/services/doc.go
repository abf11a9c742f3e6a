// Package services defines shared utilities consumed by the source adapters,
// the dispatcher, and the queue handler.
//
// Key responsibilities:
//   - Context helpers that stamp adapter names, run identifiers, source URLs,
//     and event identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures can be
//     classified (retry vs reject) without string matching.
//
// Use these helpers when wiring new adapters so operational behaviour stays
// uniform across the pipeline.
package services
