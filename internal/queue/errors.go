package queue

import "mec/internal/services"

// MaxPublishAttempts bounds how often the relay retries one envelope.
const MaxPublishAttempts = 5

// FailureStatus maps a publish error to the status the relay persists.
// Permanent errors (validation, configuration, not found) fail the row at
// once; anything else returns it to pending until attempts run out.
func FailureStatus(err error, attempts int) Status {
	if !services.Retryable(err) || attempts >= MaxPublishAttempts {
		return StatusFailed
	}
	return StatusPending
}
