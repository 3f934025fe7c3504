package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/jobgrid/internal/job"
)

// ErrInvalidJob is wrapped by every job-level configuration problem.
var ErrInvalidJob = errors.New("invalid job definition")

// Loader is the interface for a format-specific job file loader.
type Loader interface {
	// Load reads every file of its format under paths and translates them
	// into the format-agnostic model. Files are read in lexical path order.
	Load(ctx context.Context, paths ...string) (*Model, error)
}

// Model is the unified representation of every job declared across all
// loaded files, in declaration order.
type Model struct {
	Jobs []*Job
}

// Job is the format-agnostic representation of one declared job.
type Job struct {
	Name    string
	Script  string
	Needs   []string
	Env     map[string]string
	Shell   string
	WorkDir string
	// Source is where the job was declared, for error messages.
	Source string
}

// Validate checks a single job in isolation.
func (j *Job) Validate() error {
	if j.Name == "" {
		return fmt.Errorf("%w: job in %s has no name", ErrInvalidJob, j.Source)
	}
	if j.Script == "" {
		return fmt.Errorf("%w: job '%s' (%s) has an empty script", ErrInvalidJob, j.Name, j.Source)
	}
	return nil
}

// Merge appends the jobs of other models, in order.
func (m *Model) Merge(others ...*Model) *Model {
	for _, o := range others {
		if o != nil {
			m.Jobs = append(m.Jobs, o.Jobs...)
		}
	}
	return m
}

// JobSet validates every job and builds the scheduler's job set.
func (m *Model) JobSet() (*job.Set, error) {
	jobs := make([]*job.Job, 0, len(m.Jobs))
	var errs []error
	for _, j := range m.Jobs {
		if err := j.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		jobs = append(jobs, &job.Job{
			Name:    j.Name,
			Script:  j.Script,
			Needs:   append([]string(nil), j.Needs...),
			Env:     j.Env,
			Shell:   j.Shell,
			WorkDir: j.WorkDir,
		})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return job.NewSet(jobs...)
}

// Combine returns a Loader that runs every loader over the same paths and
// merges their models in the order the loaders are given.
func Combine(loaders ...Loader) Loader {
	return combined(loaders)
}

type combined []Loader

func (c combined) Load(ctx context.Context, paths ...string) (*Model, error) {
	model := &Model{}
	for _, l := range c {
		m, err := l.Load(ctx, paths...)
		if err != nil {
			return nil, err
		}
		model.Merge(m)
	}
	return model, nil
}
