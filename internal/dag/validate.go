package dag

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/jobgrid/internal/job"
)

var (
	// ErrUnknownDependency is a configuration error: a job needs a name that
	// is not declared.
	ErrUnknownDependency = errors.New("unknown dependency")
	// ErrSelfDependency is a configuration error: a job needs itself.
	ErrSelfDependency = errors.New("job depends on itself")
)

// FromSet builds a Graph with one node per job and an edge for every need
// that names a declared job. Unknown names are skipped.
func FromSet(set *job.Set) *Graph {
	g := New()
	for _, j := range set.Jobs() {
		g.AddNode(j.Name)
	}
	for _, j := range set.Jobs() {
		for _, need := range j.Needs {
			if _, ok := set.Get(need); !ok {
				continue
			}
			// AddEdge only fails on self-loops, which Validate reports itself.
			_ = g.AddEdge(need, j.Name)
		}
	}
	return g
}

// Validate reports every unknown or self-referencing need in the set. With
// strict it also rejects cycles. Without strict a cycle is allowed through:
// the jobs on it simply never become admissible.
func Validate(set *job.Set, strict bool) error {
	var errs []error
	for _, j := range set.Jobs() {
		for _, need := range j.Needs {
			if need == j.Name {
				errs = append(errs, fmt.Errorf("%w: '%s'", ErrSelfDependency, j.Name))
				continue
			}
			if _, ok := set.Get(need); !ok {
				errs = append(errs, fmt.Errorf("%w: job '%s' needs '%s'", ErrUnknownDependency, j.Name, need))
			}
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if strict {
		return FromSet(set).DetectCycles()
	}
	return nil
}
