package sched

import (
	"errors"
	"strings"
	"sync"
	"time"

	"tickd/internal/eventbus"
	logx "tickd/pkg/logx"
)

var (
	ErrNameRequired = errors.New("sched: job name required")
	ErrWorkRequired = errors.New("sched: job work required")
	ErrBadInterval  = errors.New("sched: interval must be >= 0")
)

// Engine is the scheduler. Construct exactly one per process (internal/app
// owns it); all methods are safe for concurrent use.
type Engine struct {
	mu      sync.Mutex
	jobs    []Job
	running bool
	period  time.Duration

	timer TimerSource
	bus   eventbus.Bus
	log   logx.Logger
}

func New(cfg Config, timer TimerSource, log logx.Logger, bus eventbus.Bus) *Engine {
	if timer == nil {
		timer = NewTimer()
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	period := cfg.TickPeriod
	if period <= 0 {
		period = defaultTickPeriod
	}
	return &Engine{
		timer:  timer,
		bus:    bus,
		log:    log,
		period: period,
	}
}

// Apply updates runtime-tunable settings. A changed tick period takes
// effect at the next re-arm.
func (e *Engine) Apply(cfg Config) {
	period := cfg.TickPeriod
	if period <= 0 {
		period = defaultTickPeriod
	}
	e.mu.Lock()
	old := e.period
	e.period = period
	e.mu.Unlock()
	if old != period {
		e.log.Info("tick period updated", logx.Duration("old", old), logx.Duration("new", period))
	}
}

// Start flips the engine to running and arms the timer for the next tick.
// Calling Start while already running re-emits the Started event but leaves
// the pending timer alone.
func (e *Engine) Start() {
	now := time.Now().UTC()
	e.mu.Lock()
	e.running = true
	period := e.period
	e.timer.Arm(period, e.tick)
	e.mu.Unlock()

	e.publish(eventbus.EngineStarted, "", now, nil)
	e.log.Info("engine started", logx.Duration("tick_period", period))
}

// Pause disarms the timer and stops future ticks. The job table is kept.
// A tick already in progress finishes its pass.
func (e *Engine) Pause() {
	now := time.Now().UTC()
	e.mu.Lock()
	e.running = false
	e.timer.Disarm()
	e.mu.Unlock()

	e.publish(eventbus.EnginePaused, "", now, nil)
	e.log.Info("engine paused")
}

// Stop is Pause followed by clearing the job table.
func (e *Engine) Stop() {
	e.Pause()
	e.ClearJobQueue()
	e.publish(eventbus.EngineStopped, "", time.Now().UTC(), nil)
	e.log.Info("engine stopped")
}

// IsRunning reports whether a tick callback is currently pending.
func (e *Engine) IsRunning() bool {
	return e.timer.IsArmed()
}

// AddJob registers work to first run delayMinutes from now. Adding a name
// that is already in the table is a silent no-op.
func (e *Engine) AddJob(name string, work func() error, repeat bool, delayMinutes int, interval int) error {
	if delayMinutes < 0 {
		delayMinutes = 0
	}
	startAt := time.Now().UTC().Add(time.Duration(delayMinutes) * time.Minute)
	return e.AddJobAt(name, work, repeat, startAt, interval)
}

// AddJobAt registers work with an absolute UTC start time.
func (e *Engine) AddJobAt(name string, work func() error, repeat bool, startAt time.Time, interval int) error {
	if strings.TrimSpace(name) == "" {
		return ErrNameRequired
	}
	if work == nil {
		return ErrWorkRequired
	}
	if interval < 0 {
		return ErrBadInterval
	}

	now := time.Now().UTC()
	e.mu.Lock()
	if e.indexLocked(name) >= 0 {
		// Idempotent re-registration: keep the existing entry, no event.
		e.mu.Unlock()
		return nil
	}
	e.jobs = append(e.jobs, Job{
		Name:      name,
		Work:      work,
		Repeat:    repeat,
		StartTime: startAt.UTC(),
		Interval:  interval,
		LastRun:   now,
	})
	e.mu.Unlock()

	e.publish(eventbus.JobAdded, name, now, nil)
	e.log.Debug("job added",
		logx.String("job", name),
		logx.Bool("repeat", repeat),
		logx.Int("interval_min", interval),
		logx.Time("start", startAt.UTC()),
	)
	return nil
}

// RemoveJob deletes the named job. Removing an absent name is a silent no-op.
func (e *Engine) RemoveJob(name string) {
	e.mu.Lock()
	i := e.indexLocked(name)
	if i < 0 {
		e.mu.Unlock()
		return
	}
	e.jobs = append(e.jobs[:i], e.jobs[i+1:]...)
	e.mu.Unlock()

	e.publish(eventbus.JobRemoved, name, time.Now().UTC(), nil)
	e.log.Debug("job removed", logx.String("job", name))
}

// ClearJobQueue empties the job table. Run state is unaffected.
func (e *Engine) ClearJobQueue() {
	e.mu.Lock()
	n := len(e.jobs)
	e.jobs = nil
	e.mu.Unlock()

	e.publish(eventbus.JobQueueCleared, "", time.Now().UTC(), nil)
	if n > 0 {
		e.log.Debug("job queue cleared", logx.Int("jobs", n))
	}
}

// Jobs returns an independent copy of the job table in insertion order.
func (e *Engine) Jobs() []Job {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make([]Job, len(e.jobs))
	copy(cp, e.jobs)
	return cp
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	period := e.period
	items := make([]JobInfo, 0, len(e.jobs))
	for i := range e.jobs {
		j := &e.jobs[i]
		items = append(items, JobInfo{
			Name:      j.Name,
			Repeat:    j.Repeat,
			Interval:  j.Interval,
			StartTime: j.StartTime,
			LastRun:   j.LastRun,
		})
	}
	e.mu.Unlock()

	return Snapshot{
		Running:    e.IsRunning(),
		TickPeriod: period,
		Jobs:       items,
	}
}

// indexLocked returns the table index of name, or -1. Call with e.mu held.
func (e *Engine) indexLocked(name string) int {
	for i := range e.jobs {
		if e.jobs[i].Name == name {
			return i
		}
	}
	return -1
}

func (e *Engine) publish(t eventbus.Type, job string, at time.Time, err error) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(eventbus.Event{Type: t, Time: at, Job: job, Err: err})
}
