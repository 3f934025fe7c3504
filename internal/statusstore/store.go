// Package statusstore provides an ephemeral, thread-safe, in-memory view of
// job progress for readers outside the scheduler loop, such as the /status
// endpoint.
//
// # Concurrency Model
//
// The store is written by the events stream (one writer, the scheduler loop)
// and read by HTTP handlers on other goroutines. Entries live in a sync.Map
// keyed by job name: the key space is fixed up front by Seed and only the
// values change, which is the pattern sync.Map is built for.
package statusstore

import (
	"context"
	"sync"
	"time"

	"github.com/specialistvlad/jobgrid/internal/events"
	"github.com/specialistvlad/jobgrid/internal/job"
)

// Entry is the last known state of one job.
type Entry struct {
	Name      string     `json:"name"`
	Status    job.Status `json:"status"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Lines     int        `json:"output_lines"`
	Error     string     `json:"error,omitempty"`
}

// Store records job progress from events.
type Store struct {
	entries sync.Map // Key: job name, Value: Entry

	mu       sync.RWMutex
	order    []string
	finished bool
	runErr   string
}

// New creates a new, empty store.
func New() *Store {
	return &Store{}
}

// Seed registers every job as Pending, fixing the order Snapshot reports in.
func (s *Store) Seed(set *job.Set) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = s.order[:0]
	for _, j := range set.Jobs() {
		s.order = append(s.order, j.Name)
		s.entries.Store(j.Name, Entry{Name: j.Name, Status: job.Pending})
	}
}

// Observe implements events.Observer.
func (s *Store) Observe(_ context.Context, e events.Event) {
	if e.Kind == events.KindRunFinished {
		s.mu.Lock()
		s.finished = true
		if e.Err != nil {
			s.runErr = e.Err.Error()
		}
		s.mu.Unlock()
		return
	}

	entry := s.Get(e.Job)
	entry.Name = e.Job
	entry.Status = e.Status
	at := e.At
	switch e.Kind {
	case events.KindStarted:
		entry.StartTime = &at
	case events.KindCompleted, events.KindFailed:
		entry.EndTime = &at
		entry.Lines = len(e.Output)
		if e.Err != nil {
			entry.Error = e.Err.Error()
		}
	}
	s.entries.Store(e.Job, entry)
}

// Get returns the entry for name. Unknown names read as Pending.
func (s *Store) Get(name string) Entry {
	v, ok := s.entries.Load(name)
	if !ok {
		return Entry{Name: name, Status: job.Pending}
	}
	return v.(Entry)
}

// Snapshot is the store's state at one instant, in seed order.
type Snapshot struct {
	Finished bool    `json:"finished"`
	Error    string  `json:"error,omitempty"`
	Jobs     []Entry `json:"jobs"`
}

// Snapshot copies the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{Finished: s.finished, Error: s.runErr, Jobs: make([]Entry, 0, len(s.order))}
	for _, name := range s.order {
		snap.Jobs = append(snap.Jobs, s.Get(name))
	}
	return snap
}
