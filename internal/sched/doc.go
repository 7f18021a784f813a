// Package sched implements the in-process job scheduler engine.
//
// The engine owns a table of named jobs and a single-shot timer that it
// re-arms on every tick. Each tick scans the table, runs the jobs that are
// due, and updates or evicts them. Execution is synchronous on the tick
// goroutine; a job that needs concurrency should dispatch from its Work
// func and return quickly.
package sched
