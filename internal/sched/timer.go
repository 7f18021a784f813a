package sched

import (
	"sync"
	"time"
)

// TimerSource is the single-shot delayed-callback facility the engine
// re-arms on every tick.
//
// Arm schedules fn to run exactly once after d, unless Disarm is called
// first. There is no repeating primitive; the engine calls Arm again from
// inside the callback. Any implementation with these guarantees is
// substitutable (tests use a manually fired fake).
type TimerSource interface {
	Arm(d time.Duration, fn func())
	Disarm()
	IsArmed() bool
}

// NewTimer returns the default TimerSource backed by time.AfterFunc.
func NewTimer() TimerSource {
	return &afterFuncTimer{}
}

type afterFuncTimer struct {
	mu    sync.Mutex
	timer *time.Timer
	armed bool

	// ver invalidates callbacks from timers that were disarmed after the
	// underlying AfterFunc already fired but before its callback ran.
	ver uint64
}

func (t *afterFuncTimer) Arm(d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.armed {
		// Exactly one pending callback at a time.
		return
	}
	t.ver++
	ver := t.ver
	t.armed = true
	t.timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		if t.ver != ver || !t.armed {
			// Stale fire: Disarm (or a newer Arm) won the race.
			t.mu.Unlock()
			return
		}
		t.armed = false
		t.timer = nil
		t.mu.Unlock()
		fn()
	})
}

func (t *afterFuncTimer) Disarm() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ver++
	t.armed = false
	if t.timer != nil {
		_ = t.timer.Stop()
		t.timer = nil
	}
}

func (t *afterFuncTimer) IsArmed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed
}
