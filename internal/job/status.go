package job

import "fmt"

// Status is the scheduling state of a job.
type Status int

const (
	// Pending indicates the job is waiting for its dependencies to complete.
	Pending Status = iota
	// Running indicates the job has been handed to an executor.
	Running
	// Completed indicates the job finished successfully.
	Completed
	// Failed indicates the script or its executor reported an error.
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	return s == Completed || s == Failed
}

// MarshalText lets statuses appear by name in JSON snapshots and reports.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (s *Status) UnmarshalText(text []byte) error {
	for _, candidate := range []Status{Pending, Running, Completed, Failed} {
		if string(text) == candidate.String() {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown job status %q", text)
}
