package slave

import (
	"errors"
	"sync/atomic"
)

// DefaultEventQueueSize is the capacity of the event queue of a Slave.
const DefaultEventQueueSize = 32

// ErrEventQueueFull is returned by Post when the event is dropped.
var ErrEventQueueFull = errors.New("event queue full")

type queuedEvent struct {
	eventType byte
	payload   []byte
}

// EventQueue buffers events raised by device code (including interrupt
// callbacks) until the dispatch loop transmits them. Post never blocks.
type EventQueue struct {
	dropped uint64
	ch      chan queuedEvent
}

// NewEventQueue creates an EventQueue holding at most size events.
func NewEventQueue(size int) *EventQueue {
	if size <= 0 {
		size = DefaultEventQueueSize
	}
	return &EventQueue{ch: make(chan queuedEvent, size)}
}

// Post queues an event. When the queue is full the event is dropped and
// ErrEventQueueFull returned.
func (q *EventQueue) Post(eventType byte, payload []byte) error {
	ev := queuedEvent{eventType: eventType, payload: append([]byte(nil), payload...)}
	select {
	case q.ch <- ev:
		return nil
	default:
		atomic.AddUint64(&q.dropped, 1)
		return ErrEventQueueFull
	}
}

// Len returns the number of queued events.
func (q *EventQueue) Len() int {
	return len(q.ch)
}

// Dropped returns the number of events dropped because the queue was full.
func (q *EventQueue) Dropped() uint64 {
	return atomic.LoadUint64(&q.dropped)
}

// Flush discards all queued events.
func (q *EventQueue) Flush() {
	for {
		select {
		case <-q.ch:
		default:
			return
		}
	}
}
