package sched

import (
	"time"
)

const defaultTickPeriod = 30 * time.Second

// Config controls the scheduler engine.
type Config struct {
	Enabled bool

	// TickPeriod is the fixed delay between due-job scans.
	// Zero means the default (30s).
	TickPeriod time.Duration
}

// Job is a scheduled unit of work.
//
// Name is the table key; at most one job with a given name exists at a time.
// Work is invoked with no arguments on the tick goroutine; a non-nil error
// or a panic counts as failure and evicts the job regardless of Repeat.
type Job struct {
	Name   string
	Work   func() error
	Repeat bool

	// StartTime is the UTC instant before which the job is never eligible.
	StartTime time.Time

	// Interval is the minimum spacing, in whole minutes, between successive
	// runs of a repeating job. Zero means "every tick once StartTime passed".
	Interval int

	// LastRun is the UTC creation time, or the time of the most recent
	// successful run. It only moves forward.
	LastRun time.Time
}

// due reports whether the job should execute at now (UTC).
//
// Elapsed time since LastRun is truncated to whole minutes before the
// comparison, so sub-minute precision is deliberately unattainable.
func (j *Job) due(now time.Time) bool {
	if now.Before(j.StartTime) {
		return false
	}
	elapsed := int(now.Sub(j.LastRun) / time.Minute)
	return elapsed >= j.Interval
}

// JobInfo is the diagnostic view of a table entry.
type JobInfo struct {
	Name      string
	Repeat    bool
	Interval  int
	StartTime time.Time
	LastRun   time.Time
}

// Snapshot is a lightweight view for diagnostics.
type Snapshot struct {
	Running    bool
	TickPeriod time.Duration
	Jobs       []JobInfo
}
