// Package schedule holds the per-adapter scheduling state machine.
//
// A State is Idle or Running. The dispatcher starts a run only when the state
// is not busy and its NextRun is due; Finish always clears the busy flag and
// recomputes NextRun from the Cadence, so a failed run never wedges an
// adapter.
package schedule
