// Package preflight provides readiness checks for the filesystem paths and
// external services mec depends on.
//
// These checks run in two contexts:
//   - The daemons call RunAll at startup and refuse to start when a required
//     check fails, rather than failing every adapter run later.
//   - The CLI "mec doctor" command renders every check as a table.
//
// Each check is gated by its config toggle; disabled adapters are skipped.
package preflight
