package job

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateJob is returned when two jobs share a name.
	ErrDuplicateJob = errors.New("duplicate job name")
	// ErrUnnamedJob is returned for a job with an empty name.
	ErrUnnamedJob = errors.New("job has no name")
)

// Set is the full collection of jobs for one run, kept in declaration order.
// A Set is not safe for concurrent mutation; the scheduler is its only
// writer.
type Set struct {
	jobs   []*Job
	byName map[string]*Job
}

// NewSet builds a Set, rejecting empty and duplicate names.
func NewSet(jobs ...*Job) (*Set, error) {
	s := &Set{
		jobs:   make([]*Job, 0, len(jobs)),
		byName: make(map[string]*Job, len(jobs)),
	}
	for i, j := range jobs {
		if j == nil || j.Name == "" {
			return nil, fmt.Errorf("%w (position %d)", ErrUnnamedJob, i)
		}
		if _, exists := s.byName[j.Name]; exists {
			return nil, fmt.Errorf("%w: '%s'", ErrDuplicateJob, j.Name)
		}
		s.jobs = append(s.jobs, j)
		s.byName[j.Name] = j
	}
	return s, nil
}

// Jobs returns the jobs in declaration order. The slice is a copy; the jobs
// are not.
func (s *Set) Jobs() []*Job {
	out := make([]*Job, len(s.jobs))
	copy(out, s.jobs)
	return out
}

// Len returns the number of jobs.
func (s *Set) Len() int { return len(s.jobs) }

// Get looks a job up by name.
func (s *Set) Get(name string) (*Job, bool) {
	j, ok := s.byName[name]
	return j, ok
}

// Admissible reports whether j may start now: it is Pending and every job it
// needs exists and is exactly Completed. A Failed or unknown need blocks it.
func (s *Set) Admissible(j *Job) bool {
	if j.status != Pending {
		return false
	}
	for _, name := range j.Needs {
		dep, ok := s.byName[name]
		if !ok || dep.status != Completed {
			return false
		}
	}
	return true
}

// Count returns how many jobs are currently in each status.
func (s *Set) Count() map[Status]int {
	counts := make(map[Status]int, 4)
	for _, j := range s.jobs {
		counts[j.status]++
	}
	return counts
}
