package sched

import (
	"fmt"
	"runtime/debug"
	"time"

	"tickd/internal/eventbus"
	logx "tickd/pkg/logx"
)

// tick is the timer callback: one due-job scan over the table.
//
// The whole pass runs as a single critical section so host-side Add/Remove/
// Clear calls never observe the table mid-scan. The timer is re-armed before
// any job runs, so a slow or failing job cannot delay the next pass and the
// engine keeps itself alive without external re-invocation.
//
// A job's Work must not call back into this engine from the tick goroutine;
// that would self-deadlock on e.mu.
func (e *Engine) tick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		// Pause won the race with an in-flight fire: no scan, no re-arm.
		return
	}

	e.publish(eventbus.JobQueueStart, "", time.Now().UTC(), nil)
	e.timer.Arm(e.period, e.tick)

	for i := 0; i < len(e.jobs); i++ {
		j := &e.jobs[i]
		now := time.Now().UTC()
		if !j.due(now) {
			continue
		}

		e.publish(eventbus.JobStart, j.Name, now, nil)
		e.log.Debug("job started", logx.String("job", j.Name))

		start := now
		err := e.runJob(j)
		done := time.Now().UTC()

		if err != nil {
			// Any failure evicts, even for repeating jobs. No retry.
			name := j.Name
			e.publish(eventbus.JobFailed, name, done, err)
			e.log.Warn("job failed",
				logx.String("job", name),
				logx.Err(err),
				logx.Duration("dur", done.Sub(start)),
			)
			e.jobs = append(e.jobs[:i], e.jobs[i+1:]...)
			i--
			continue
		}

		e.publish(eventbus.JobEnd, j.Name, done, nil)
		e.log.Debug("job completed",
			logx.String("job", j.Name),
			logx.Duration("dur", done.Sub(start)),
		)

		if !j.Repeat {
			// One-shot: run once, then evict.
			e.jobs = append(e.jobs[:i], e.jobs[i+1:]...)
			i--
			continue
		}
		j.LastRun = done
	}

	e.publish(eventbus.JobQueueEnd, "", time.Now().UTC(), nil)
}

// runJob invokes Work, converting panics into errors so one bad job can
// neither crash the process nor skip the rest of the pass.
func (e *Engine) runJob(j *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			e.log.Error("job panic",
				logx.String("job", j.Name),
				logx.Any("panic", r),
				logx.Stack(string(debug.Stack())),
			)
		}
	}()
	return j.Work()
}
