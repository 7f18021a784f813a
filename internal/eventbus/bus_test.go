package eventbus

import (
	"testing"
	"time"
)

func TestPublishFanout(t *testing.T) {
	t.Parallel()
	b := New()
	ch1, unsub1 := b.Subscribe(8)
	ch2, unsub2 := b.Subscribe(8)
	defer unsub1()
	defer unsub2()

	b.Publish(Event{Type: JobStart, Job: "a"})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case e := <-ch:
			if e.Type != JobStart || e.Job != "a" {
				t.Fatalf("subscriber %d got %+v", i, e)
			}
			if e.Time.IsZero() {
				t.Fatalf("subscriber %d: Time not defaulted", i)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d never received the event", i)
		}
	}
}

func TestPublishDropsWhenSubscriberFull(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	// Fills the buffer, then drops; Publish must never block.
	b.Publish(Event{Type: JobStart, Job: "1"})
	b.Publish(Event{Type: JobStart, Job: "2"})

	e := <-ch
	if e.Job != "1" {
		t.Fatalf("got %q, want the first event", e.Job)
	}
	select {
	case e := <-ch:
		t.Fatalf("overflow event was delivered: %+v", e)
	default:
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(8)
	unsub()
	unsub() // idempotent

	// Channel is closed; publishing afterwards must not panic.
	b.Publish(Event{Type: JobEnd, Job: "x"})

	if _, ok := <-ch; ok {
		t.Fatal("received event after unsubscribe")
	}
}
