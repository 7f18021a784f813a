package sched

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTimerArmFiresOnce(t *testing.T) {
	t.Parallel()
	tm := NewTimer()

	fired := make(chan struct{}, 2)
	tm.Arm(5*time.Millisecond, func() { fired <- struct{}{} })
	if !tm.IsArmed() {
		t.Fatal("timer not armed after Arm")
	}

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
	if tm.IsArmed() {
		t.Fatal("timer still armed after firing")
	}

	// Single-shot: no second callback without re-arming.
	select {
	case <-fired:
		t.Fatal("timer fired twice")
	case <-time.After(30 * time.Millisecond):
	}
}

func TestTimerDisarmPreventsFire(t *testing.T) {
	t.Parallel()
	tm := NewTimer()

	var fired atomic.Bool
	tm.Arm(20*time.Millisecond, func() { fired.Store(true) })
	tm.Disarm()

	if tm.IsArmed() {
		t.Fatal("timer armed after Disarm")
	}
	time.Sleep(50 * time.Millisecond)
	if fired.Load() {
		t.Fatal("disarmed timer fired")
	}
}

func TestTimerArmWhileArmedIsNoop(t *testing.T) {
	t.Parallel()
	tm := NewTimer()

	var first, second atomic.Int32
	tm.Arm(10*time.Millisecond, func() { first.Add(1) })
	tm.Arm(time.Millisecond, func() { second.Add(1) })

	time.Sleep(50 * time.Millisecond)
	if got := first.Load(); got != 1 {
		t.Fatalf("first callback fired %d times, want 1", got)
	}
	if got := second.Load(); got != 0 {
		t.Fatalf("second Arm replaced a pending callback (fired %d times)", got)
	}
}

func TestTimerRearmAfterFire(t *testing.T) {
	t.Parallel()
	tm := NewTimer()

	fired := make(chan int, 4)
	tm.Arm(5*time.Millisecond, func() {
		fired <- 1
		// Self-rearm from inside the callback, like the engine does.
		tm.Arm(5*time.Millisecond, func() { fired <- 2 })
	})

	for want := 1; want <= 2; want++ {
		select {
		case got := <-fired:
			if got != want {
				t.Fatalf("fire order: got %d, want %d", got, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("callback %d never fired", want)
		}
	}
}

func TestTimerDisarmIdempotent(t *testing.T) {
	t.Parallel()
	tm := NewTimer()
	tm.Disarm()
	tm.Disarm()
	if tm.IsArmed() {
		t.Fatal("timer armed after Disarm on a fresh timer")
	}
}
