// Package dispatcher polls the registered source adapters and starts every
// eligible one.
//
// Each adapter owns a schedule.State. A poll takes the dispatcher lock, moves
// every eligible state to Running before releasing it, and only then launches
// the runs on their own goroutines, so one adapter never has two runs in
// flight while different adapters run concurrently. A run drains the
// adapter's candidate sequence: extraction errors are logged and skipped,
// events are normalized and appended to the outbox under the adapter's name,
// a DeferError pushes the next run out, and any other error fails the run.
// The schedule always advances and is persisted after every transition.
package dispatcher
