package dag

import "github.com/specialistvlad/jobgrid/internal/job"

// Order returns every job exactly once with each job placed after the jobs it
// needs. Roots are walked first in declaration order, then every remaining job
// in declaration order, each time emitting needs before the job itself. Ties
// follow declaration order.
//
// On a cycle the job that closes the loop is emitted without waiting for
// itself, so Order always terminates. Unknown need names are ignored.
func Order(set *job.Set) []*job.Job {
	jobs := set.Jobs()
	out := make([]*job.Job, 0, len(jobs))
	emitted := make(map[string]bool, len(jobs))
	inProgress := make(map[string]bool)

	var visit func(j *job.Job)
	visit = func(j *job.Job) {
		if emitted[j.Name] || inProgress[j.Name] {
			return
		}
		inProgress[j.Name] = true
		for _, name := range j.Needs {
			if dep, ok := set.Get(name); ok {
				visit(dep)
			}
		}
		delete(inProgress, j.Name)
		emitted[j.Name] = true
		out = append(out, j)
	}

	for _, j := range jobs {
		if len(j.Needs) == 0 {
			visit(j)
		}
	}
	for _, j := range jobs {
		visit(j)
	}
	return out
}

// Names is a convenience that returns the names of jobs in order.
func Names(jobs []*job.Job) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.Name
	}
	return out
}
