package recorder

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"tickd/internal/eventbus"
	"tickd/internal/storage"
	logx "tickd/pkg/logx"
)

const maxFailLimiters = 256

// Recorder is the host-side consumer of the engine's event stream: it turns
// events into log lines and persists one run record per finished execution.
//
// The engine itself stays presentation-free; everything an operator sees
// comes through here.
type Recorder struct {
	log   logx.Logger
	bus   eventbus.Bus
	store storage.Store // nil when persistence is disabled

	mu     sync.Mutex
	starts map[string]time.Time

	// failLim throttles repeated JobFailed warnings per job so a job that
	// fails every tick does not flood the log.
	failLim map[string]*rate.Limiter

	wg    sync.WaitGroup
	unsub func()
}

func New(log logx.Logger, bus eventbus.Bus, store storage.Store) *Recorder {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Recorder{
		log:     log,
		bus:     bus,
		store:   store,
		starts:  map[string]time.Time{},
		failLim: map[string]*rate.Limiter{},
	}
}

// Start subscribes to the bus and drains events until ctx is done.
func (r *Recorder) Start(ctx context.Context) {
	ch, unsub := r.bus.Subscribe(256)
	r.unsub = unsub

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-ch:
				if !ok {
					return
				}
				r.handle(ctx, e)
			}
		}
	}()
}

// Stop unsubscribes and waits for the drain goroutine.
func (r *Recorder) Stop() {
	if r.unsub != nil {
		r.unsub()
	}
	r.wg.Wait()
}

func (r *Recorder) handle(ctx context.Context, e eventbus.Event) {
	switch e.Type {
	case eventbus.EngineStarted:
		r.log.Info("scheduler started", logx.Time("at", e.Time))
	case eventbus.EngineStopped:
		r.log.Info("scheduler stopped", logx.Time("at", e.Time))
	case eventbus.EnginePaused:
		r.log.Info("scheduler paused", logx.Time("at", e.Time))

	case eventbus.JobAdded:
		r.log.Debug("job registered", logx.String("job", e.Job))
	case eventbus.JobRemoved:
		r.log.Debug("job unregistered", logx.String("job", e.Job))
	case eventbus.JobQueueCleared:
		r.log.Debug("job queue cleared")

	case eventbus.JobQueueStart:
		r.log.Trace("tick pass started", logx.Time("at", e.Time))
	case eventbus.JobQueueEnd:
		r.log.Trace("tick pass finished", logx.Time("at", e.Time))

	case eventbus.JobStart:
		r.mu.Lock()
		r.starts[e.Job] = e.Time
		r.mu.Unlock()

	case eventbus.JobEnd:
		took := r.takeStart(e.Job, e.Time)
		r.appendRun(ctx, storage.RunRecord{
			At:      e.Time,
			Job:     e.Job,
			Outcome: storage.OutcomeOK,
			TookMS:  took.Milliseconds(),
		})

	case eventbus.JobFailed:
		took := r.takeStart(e.Job, e.Time)
		errStr := ""
		if e.Err != nil {
			errStr = e.Err.Error()
		}
		if r.allowFailWarn(e.Job) {
			r.log.Warn("job failed and was evicted",
				logx.String("job", e.Job),
				logx.Err(e.Err),
				logx.Duration("took", took),
			)
		}
		r.appendRun(ctx, storage.RunRecord{
			At:      e.Time,
			Job:     e.Job,
			Outcome: storage.OutcomeFailed,
			Error:   errStr,
			TookMS:  took.Milliseconds(),
		})
	}
}

// takeStart returns the duration since the matching JobStart, consuming it.
func (r *Recorder) takeStart(job string, end time.Time) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	start, ok := r.starts[job]
	if !ok {
		return 0
	}
	delete(r.starts, job)
	d := end.Sub(start)
	if d < 0 {
		d = 0
	}
	return d
}

// allowFailWarn rate-limits failure warnings to one per job per 30s.
func (r *Recorder) allowFailWarn(job string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	lim, ok := r.failLim[job]
	if !ok {
		if len(r.failLim) >= maxFailLimiters {
			// Unbounded job-name churn: reset rather than grow forever.
			r.failLim = map[string]*rate.Limiter{}
		}
		lim = rate.NewLimiter(rate.Every(30*time.Second), 1)
		r.failLim[job] = lim
	}
	return lim.Allow()
}

func (r *Recorder) appendRun(ctx context.Context, rec storage.RunRecord) {
	if r.store == nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := r.store.AppendRun(wctx, rec); err != nil {
		r.log.Debug("run record write failed", logx.String("job", rec.Job), logx.Any("err", err))
	}
}
