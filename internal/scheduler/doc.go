// Package scheduler drives a job set from Pending to a terminal state.
//
// # How It Works
//
// A single goroutine owns the job set and repeats one cycle until nothing is
// left to do:
//  1. Completion sweep: every Running job's handle is polled in declaration
//     order. A success completes the job. A failure fails it and aborts the
//     run on the spot.
//  2. Admission sweep: every Pending job whose needs are all Completed is
//     handed to the executor in the same sweep. There is no concurrency limit.
//  3. If nothing is Running the run is over. Otherwise the loop sleeps until a
//     handle signals Done, the poll interval elapses, or ctx is cancelled.
//
// # Failure Semantics
//
// The first failure ends the run with ErrRunFailed. Jobs still Running at that
// point are abandoned: their handles are neither awaited nor cancelled, and
// their records stay Running. Jobs downstream of a failure are never started
// and stay Pending; JobError.Blocked names them.
//
// # Thread-Safety
//
// The job set is only written by Run. Other goroutines follow progress through
// an events.Observer, which is called on the scheduler goroutine.
package scheduler
