package progress

import (
	"sync"
	"time"

	"openclaw-setup/internal/logger"
	"openclaw-setup/internal/pipeline"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 1024

// Bus is a pipeline.Sink that fans events out to subscribers over buffered
// channels. Emitting never blocks: when a subscriber's buffer is full the
// event is dropped for that subscriber and counted.
//
// Subscribers may detach at any time, and the bus may be closed while a run
// is still emitting; later events are discarded.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	next   int
	buffer int
	closed bool

	dropMu  sync.Mutex
	dropped int
}

// NewBus returns a Bus whose subscribers buffer up to buffer events.
// A buffer below 1 uses DefaultBuffer.
func NewBus(buffer int) *Bus {
	if buffer < 1 {
		buffer = DefaultBuffer
	}
	return &Bus{subs: make(map[int]chan Event), buffer: buffer}
}

// Subscribe returns a channel of events and a func that detaches it. The
// channel is closed on detach or when the bus closes. Subscribing to a
// closed bus yields an already closed channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.next
	b.next++
	b.subs[id] = ch

	var once sync.Once
	detach := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
	return ch, detach
}

// ProgressText implements pipeline.Sink.
func (b *Bus) ProgressText(text string) {
	b.Emit(Event{Kind: KindText, Time: time.Now(), Text: text})
}

// StepStatusChanged implements pipeline.Sink.
func (b *Bus) StepStatusChanged(key pipeline.Key, status pipeline.Status) {
	b.Emit(Event{Kind: KindStatus, Time: time.Now(), Step: key, Status: status})
}

// RunStarted implements pipeline.RunObserver.
func (b *Bus) RunStarted(runID string) {
	b.Emit(Event{Kind: KindRun, Time: time.Now(), RunID: runID})
}

// Emit delivers ev to every subscriber without blocking.
func (b *Bus) Emit(ev Event) {
	// The read lock is held across the sends so a concurrent detach or Close
	// cannot close a channel underneath them.
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.drop()
		}
	}
}

func (b *Bus) drop() {
	b.dropMu.Lock()
	b.dropped++
	n := b.dropped
	b.dropMu.Unlock()
	if n == 1 || n%100 == 0 {
		logger.Debug("[DEBUG] Progress subscriber too slow, %d events dropped\n", n)
	}
}

// Dropped returns how many events were discarded for slow subscribers.
func (b *Bus) Dropped() int {
	b.dropMu.Lock()
	defer b.dropMu.Unlock()
	return b.dropped
}

// Close detaches every subscriber. Emitting after Close is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
