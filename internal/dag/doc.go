// Package dag answers structural questions about a job set: in which order
// jobs should be shown, and whether the declared needs are well formed.
//
// Nothing here decides when a job runs. The scheduler admits jobs purely on
// the status of their needs; Order exists for reports, and Validate exists to
// reject malformed input before any job starts.
package dag
