package storage

// Package storage persists the scheduler's run history (one record per
// JobEnd/JobFailed event).
//
// It never persists the job table itself: jobs are in-memory only and are
// lost on restart by design.
