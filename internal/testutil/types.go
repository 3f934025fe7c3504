package testutil

import "time"

// ExecutionRecord holds the start and end times for a single job's execution
// as seen by a fake executor.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}
