package master

import (
	"context"
	"sync"

	"github.com/golang/glog"
)

// Event is an unsolicited notification from a module.
type Event struct {
	Type     byte
	ModuleID uint16
	Payload  []byte
}

// EventCallback receives events of a subscription.
type EventCallback func(Event)

type subscriptionKey struct {
	eventType byte
	moduleID  uint16
}

// events holds subscriptions and delivers events in arrival order on a
// dedicated goroutine, so callbacks never stall the receive loop.
type events struct {
	subsLock sync.RWMutex
	subs     map[subscriptionKey]EventCallback

	queueLock sync.Mutex
	queue     []Event
	wakeCh    chan struct{}
}

func newEvents() *events {
	return &events{
		subs:   make(map[subscriptionKey]EventCallback),
		wakeCh: make(chan struct{}, 1),
	}
}

func (e *events) subscribe(eventType byte, moduleID uint16, cb EventCallback) {
	e.subsLock.Lock()
	e.subs[subscriptionKey{eventType, moduleID}] = cb
	e.subsLock.Unlock()
}

func (e *events) unsubscribe(eventType byte, moduleID uint16) {
	e.subsLock.Lock()
	delete(e.subs, subscriptionKey{eventType, moduleID})
	e.subsLock.Unlock()
}

func (e *events) lookup(ev Event) EventCallback {
	e.subsLock.RLock()
	defer e.subsLock.RUnlock()
	return e.subs[subscriptionKey{ev.Type, ev.ModuleID}]
}

func (e *events) post(ev Event) {
	e.queueLock.Lock()
	e.queue = append(e.queue, ev)
	e.queueLock.Unlock()
	select {
	case e.wakeCh <- struct{}{}:
	default:
	}
}

func (e *events) take() []Event {
	e.queueLock.Lock()
	defer e.queueLock.Unlock()
	evs := e.queue
	e.queue = nil
	return evs
}

func (e *events) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.wakeCh:
		}
		for _, ev := range e.take() {
			if cb := e.lookup(ev); cb != nil {
				cb(ev)
			} else {
				glog.V(2).Infof("event %02x from module %d dropped: no subscriber", ev.Type, ev.ModuleID)
			}
		}
	}
}
