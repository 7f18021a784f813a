package eventbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// Type identifies a scheduler lifecycle or job event.
type Type string

// Engine lifecycle events.
const (
	EngineStarted Type = "engine.started"
	EngineStopped Type = "engine.stopped"
	EnginePaused  Type = "engine.paused"
)

// Job table events.
const (
	JobAdded        Type = "job.added"
	JobRemoved      Type = "job.removed"
	JobQueueCleared Type = "queue.cleared"
)

// Tick pass events.
const (
	JobQueueStart Type = "queue.start"
	JobQueueEnd   Type = "queue.end"
	JobStart      Type = "job.start"
	JobEnd        Type = "job.end"
	JobFailed     Type = "job.failed"
)

// Event is a lightweight, in-memory signal used to decouple the scheduler
// engine from whatever the host does with its notifications.
//
// Contract:
//   - Publish MUST be non-blocking.
//   - Subscribers MUST use buffered channels.
//   - Slow subscribers may drop events (bounded backpressure).
//
// Time is always UTC. Job is empty for engine/queue-level events.
type Event struct {
	Type Type
	Time time.Time
	Job  string

	// Err carries the failure for JobFailed events, nil otherwise.
	Err error
}

type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

// New returns a simple in-memory fanout bus.
//
// It intentionally does not own any background goroutines.
func New() Bus {
	return &memBus{subs: map[uint64]chan Event{}}
}

type memBus struct {
	mu   sync.RWMutex
	subs map[uint64]chan Event
	seq  atomic.Uint64
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	// Snapshot subscribers so Publish doesn't hold locks while attempting sends.
	b.mu.RLock()
	chs := make([]chan Event, 0, len(b.subs))
	for _, ch := range b.subs {
		chs = append(chs, ch)
	}
	b.mu.RUnlock()

	for _, ch := range chs {
		// Non-blocking delivery. If subscriber is slow, we drop.
		// If a subscriber unsubscribes concurrently and the channel closes,
		// recover from a possible panic (send on closed channel).
		func() {
			defer func() { _ = recover() }()
			select {
			case ch <- e:
			default:
			}
		}()
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Event, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			// Closing is safe because Publish recovers from send panics.
			close(ch)
		})
	}
	return ch, unsub
}
