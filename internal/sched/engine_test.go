package sched

import (
	"sync"
	"testing"
	"time"

	"tickd/internal/eventbus"
	logx "tickd/pkg/logx"
)

// fakeTimer is a TimerSource fired by hand from tests.
type fakeTimer struct {
	mu    sync.Mutex
	armed bool
	delay time.Duration
	fn    func()
	arms  int
}

func (t *fakeTimer) Arm(d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.armed {
		return
	}
	t.armed = true
	t.delay = d
	t.fn = fn
	t.arms++
}

func (t *fakeTimer) Disarm() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.armed = false
	t.fn = nil
}

func (t *fakeTimer) IsArmed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed
}

// fire simulates the pending callback elapsing.
func (t *fakeTimer) fire(tb testing.TB) {
	tb.Helper()
	t.mu.Lock()
	fn := t.fn
	t.armed = false
	t.fn = nil
	t.mu.Unlock()
	if fn == nil {
		tb.Fatal("fire: timer not armed")
	}
	fn()
}

// armCount reports how many times Arm registered a callback.
func (t *fakeTimer) armCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.arms
}

func newTestEngine() (*Engine, *fakeTimer, eventbus.Bus) {
	ft := &fakeTimer{}
	bus := eventbus.New()
	eng := New(Config{TickPeriod: time.Second}, ft, logx.Nop(), bus)
	return eng, ft, bus
}

func drainEvents(ch <-chan eventbus.Event) []eventbus.Event {
	var out []eventbus.Event
	for {
		select {
		case e := <-ch:
			out = append(out, e)
		default:
			return out
		}
	}
}

func noop() error { return nil }

func TestAddJobDuplicateNameIsNoop(t *testing.T) {
	t.Parallel()
	eng, _, bus := newTestEngine()
	ch, unsub := bus.Subscribe(16)
	defer unsub()

	if err := eng.AddJob("backup", noop, true, 0, 5); err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	if err := eng.AddJob("backup", noop, false, 0, 0); err != nil {
		t.Fatalf("duplicate AddJob should be a silent no-op, got %v", err)
	}

	jobs := eng.Jobs()
	if len(jobs) != 1 {
		t.Fatalf("table has %d jobs, want 1", len(jobs))
	}
	if !jobs[0].Repeat || jobs[0].Interval != 5 {
		t.Fatalf("duplicate add mutated the existing entry: %+v", jobs[0])
	}

	added := 0
	for _, e := range drainEvents(ch) {
		if e.Type == eventbus.JobAdded {
			added++
		}
	}
	if added != 1 {
		t.Fatalf("JobAdded emitted %d times, want 1", added)
	}
}

func TestAddJobValidation(t *testing.T) {
	t.Parallel()
	eng, _, _ := newTestEngine()

	tests := []struct {
		name     string
		jobName  string
		work     func() error
		interval int
		wantErr  error
	}{
		{name: "empty name", jobName: "", work: noop, wantErr: ErrNameRequired},
		{name: "blank name", jobName: "   ", work: noop, wantErr: ErrNameRequired},
		{name: "nil work", jobName: "a", work: nil, wantErr: ErrWorkRequired},
		{name: "negative interval", jobName: "a", work: noop, interval: -1, wantErr: ErrBadInterval},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := eng.AddJob(tt.jobName, tt.work, false, 0, tt.interval)
			if err != tt.wantErr {
				t.Fatalf("AddJob error = %v, want %v", err, tt.wantErr)
			}
		})
	}
	if n := len(eng.Jobs()); n != 0 {
		t.Fatalf("invalid adds left %d jobs in the table", n)
	}
}

func TestRemoveJob(t *testing.T) {
	t.Parallel()
	eng, _, bus := newTestEngine()
	ch, unsub := bus.Subscribe(16)
	defer unsub()

	if err := eng.AddJob("a", noop, true, 0, 0); err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	if err := eng.AddJob("b", noop, true, 0, 0); err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	_ = drainEvents(ch)

	eng.RemoveJob("a")
	jobs := eng.Jobs()
	if len(jobs) != 1 || jobs[0].Name != "b" {
		t.Fatalf("unexpected table after remove: %+v", jobs)
	}
	evs := drainEvents(ch)
	if len(evs) != 1 || evs[0].Type != eventbus.JobRemoved || evs[0].Job != "a" {
		t.Fatalf("unexpected events after remove: %+v", evs)
	}

	// Absent name: silent no-op, no event.
	eng.RemoveJob("missing")
	if evs := drainEvents(ch); len(evs) != 0 {
		t.Fatalf("removing an absent job emitted events: %+v", evs)
	}
	if len(eng.Jobs()) != 1 {
		t.Fatal("removing an absent job changed the table")
	}
}

func TestStartArmsTimer(t *testing.T) {
	t.Parallel()
	eng, ft, bus := newTestEngine()
	ch, unsub := bus.Subscribe(16)
	defer unsub()

	if eng.IsRunning() {
		t.Fatal("engine reports running before Start")
	}
	eng.Start()
	if !eng.IsRunning() {
		t.Fatal("engine not running after Start")
	}
	if ft.armCount() != 1 {
		t.Fatalf("Arm called %d times, want 1", ft.armCount())
	}

	// Start again: no second arm while one callback is pending.
	eng.Start()
	if ft.armCount() != 1 {
		t.Fatalf("Start re-armed a pending timer (arms=%d)", ft.armCount())
	}

	started := 0
	for _, e := range drainEvents(ch) {
		if e.Type == eventbus.EngineStarted {
			started++
		}
	}
	if started != 2 {
		t.Fatalf("Started emitted %d times, want 2", started)
	}
}

func TestPausePreservesQueue(t *testing.T) {
	t.Parallel()
	eng, _, bus := newTestEngine()
	ch, unsub := bus.Subscribe(32)
	defer unsub()

	for _, name := range []string{"a", "b", "c"} {
		if err := eng.AddJob(name, noop, true, 10, 1); err != nil {
			t.Fatalf("AddJob(%s): %v", name, err)
		}
	}
	eng.Start()
	_ = drainEvents(ch)

	eng.Pause()
	eng.Pause() // idempotent, but emits again

	if eng.IsRunning() {
		t.Fatal("engine still running after Pause")
	}
	if n := len(eng.Jobs()); n != 3 {
		t.Fatalf("Pause changed the table: %d jobs, want 3", n)
	}
	paused := 0
	for _, e := range drainEvents(ch) {
		if e.Type == eventbus.EnginePaused {
			paused++
		}
	}
	if paused != 2 {
		t.Fatalf("Paused emitted %d times, want 2", paused)
	}
}

func TestStopClearsQueue(t *testing.T) {
	t.Parallel()
	eng, _, bus := newTestEngine()
	ch, unsub := bus.Subscribe(32)
	defer unsub()

	for _, name := range []string{"a", "b"} {
		if err := eng.AddJob(name, noop, true, 10, 1); err != nil {
			t.Fatalf("AddJob(%s): %v", name, err)
		}
	}
	eng.Start()
	_ = drainEvents(ch)

	eng.Stop()

	if eng.IsRunning() {
		t.Fatal("engine running after Stop")
	}
	if n := len(eng.Jobs()); n != 0 {
		t.Fatalf("Stop left %d jobs in the table", n)
	}

	var order []eventbus.Type
	for _, e := range drainEvents(ch) {
		order = append(order, e.Type)
	}
	want := []eventbus.Type{eventbus.EnginePaused, eventbus.JobQueueCleared, eventbus.EngineStopped}
	if len(order) != len(want) {
		t.Fatalf("events after Stop = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("events after Stop = %v, want %v", order, want)
		}
	}
}

func TestJobsSnapshotIsIndependent(t *testing.T) {
	t.Parallel()
	eng, _, _ := newTestEngine()
	if err := eng.AddJob("a", noop, true, 0, 3); err != nil {
		t.Fatalf("AddJob: %v", err)
	}

	snap := eng.Jobs()
	snap[0].Name = "tampered"
	snap[0].Interval = 99

	live := eng.Jobs()
	if live[0].Name != "a" || live[0].Interval != 3 {
		t.Fatalf("snapshot mutation leaked into the live table: %+v", live[0])
	}
}

func TestSnapshotView(t *testing.T) {
	t.Parallel()
	eng, _, _ := newTestEngine()
	if err := eng.AddJob("a", noop, true, 1, 2); err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	eng.Start()

	s := eng.Snapshot()
	if !s.Running {
		t.Fatal("snapshot not running after Start")
	}
	if s.TickPeriod != time.Second {
		t.Fatalf("TickPeriod = %v, want 1s", s.TickPeriod)
	}
	if len(s.Jobs) != 1 || s.Jobs[0].Name != "a" || s.Jobs[0].Interval != 2 {
		t.Fatalf("unexpected snapshot jobs: %+v", s.Jobs)
	}
}
