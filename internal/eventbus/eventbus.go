package eventbus

import (
	"log/slog"
	"runtime/debug"
	"sync"

	"attrfilter/domain"
)

// Re-export domain types for convenience
type DomainEvent = domain.DomainEvent
type EventType = domain.EventType

// EventHandler is a function that handles domain events
type EventHandler func(DomainEvent)

// EventBus is the interface for the event bus
type EventBus interface {
	Publish(event DomainEvent)
	Subscribe(eventType EventType, handler EventHandler) func()
	Close()
}

type subscription struct {
	id      uint64
	handler EventHandler
}

// bus is the concrete implementation of EventBus.
// Events are delivered one at a time, in publish order, by a single dispatcher
// goroutine; handlers may publish, subscribe or unsubscribe re-entrantly.
type bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]subscription
	nextID   uint64

	qmu    sync.Mutex
	queue  []DomainEvent
	closed bool
	wake   chan struct{}
	quit   chan struct{}
	done   chan struct{}

	logger *slog.Logger
}

// New creates a new event bus and starts its dispatcher
func New(logger *slog.Logger) EventBus {
	if logger == nil {
		logger = slog.Default()
	}
	b := &bus{
		handlers: make(map[EventType][]subscription),
		wake:     make(chan struct{}, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger,
	}

	go b.dispatch()

	return b
}

// Publish queues an event for delivery to all subscribers of its type.
// The queue is unbounded: terminal events must never be dropped.
func (b *bus) Publish(event DomainEvent) {
	b.qmu.Lock()
	if b.closed {
		b.qmu.Unlock()
		b.logger.Debug("event bus closed, discarding event", "event", event.Type())
		return
	}
	b.queue = append(b.queue, event)
	b.qmu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Subscribe subscribes to events of a specific type
// Returns an unsubscribe function
func (b *bus) Subscribe(eventType EventType, handler EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[eventType] = append(b.handlers[eventType], subscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			subs := b.handlers[eventType]
			for i, s := range subs {
				if s.id == id {
					b.handlers[eventType] = append(subs[:i:i], subs[i+1:]...)
					break
				}
			}
		})
	}
}

// Close stops accepting events. Events already queued are still delivered.
func (b *bus) Close() {
	b.qmu.Lock()
	defer b.qmu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.quit)
}

// Done is closed once the dispatcher has delivered every queued event after Close
func Done(eb EventBus) <-chan struct{} {
	if b, ok := eb.(*bus); ok {
		return b.done
	}
	ch := make(chan struct{})
	close(ch)
	return ch
}

// dispatch handles event distribution to subscribers
func (b *bus) dispatch() {
	defer close(b.done)

	for {
		batch := b.take()
		for _, event := range batch {
			b.deliver(event)
		}
		if len(batch) > 0 {
			continue
		}

		select {
		case <-b.wake:
		case <-b.quit:
			// Drain whatever was published before Close
			for batch := b.take(); len(batch) > 0; batch = b.take() {
				for _, event := range batch {
					b.deliver(event)
				}
			}
			return
		}
	}
}

func (b *bus) take() []DomainEvent {
	b.qmu.Lock()
	defer b.qmu.Unlock()
	batch := b.queue
	b.queue = nil
	return batch
}

func (b *bus) deliver(event DomainEvent) {
	b.mu.RLock()
	subs := b.handlers[event.Type()]
	// Copy so handlers can unsubscribe while we iterate
	handlersCopy := make([]subscription, len(subs))
	copy(handlersCopy, subs)
	b.mu.RUnlock()

	for _, s := range handlersCopy {
		b.call(s.handler, event)
	}
}

func (b *bus) call(h EventHandler, event DomainEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panic",
				"event", event.Type(),
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	h(event)
}
