package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/leeforge/hookforge/logging"
)

// eventBus implements Bus with a buffered channel and backpressure.
type eventBus struct {
	subscribers map[string][]subscriberEntry
	mu          sync.RWMutex
	ch          chan eventEnvelope
	wg          sync.WaitGroup
	gate        sync.RWMutex // held by Publish while sending, taken by Close
	closed      atomic.Bool
	logger      logging.Logger
	nextID      atomic.Uint64
	done        chan struct{} // signals dispatcher goroutine to stop
	stopped     chan struct{} // closed when the dispatcher returns
}

type eventEnvelope struct {
	ctx   context.Context
	event Event
}

type subscriberEntry struct {
	id      uint64
	handler Handler
}

// subscription implements Subscription.
type subscription struct {
	bus   *eventBus
	topic string
	id    uint64
}

func (s *subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	subs := s.bus.subscribers[s.topic]
	for i, entry := range subs {
		if entry.id == s.id {
			s.bus.subscribers[s.topic] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// NewBus creates a Bus with the given buffer size and starts its dispatcher.
func NewBus(bufferSize int, logger logging.Logger) Bus {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	if logger == nil {
		logger = logging.Nop()
	}
	bus := &eventBus{
		subscribers: make(map[string][]subscriberEntry),
		ch:          make(chan eventEnvelope, bufferSize),
		logger:      logger,
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}

	go bus.dispatch()
	return bus
}

func (b *eventBus) dispatch() {
	defer close(b.stopped)
	for {
		select {
		case env := <-b.ch:
			b.fanOut(env)
		case <-b.done:
			for {
				select {
				case env := <-b.ch:
					b.fanOut(env)
				default:
					return
				}
			}
		}
	}
}

func (b *eventBus) fanOut(env eventEnvelope) {
	b.mu.RLock()
	subs := append([]subscriberEntry{}, b.subscribers[string(env.event.Hook)]...)
	subs = append(subs, b.subscribers[AllHooks]...)
	b.mu.RUnlock()

	for _, entry := range subs {
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			if err := h(env.ctx, env.event); err != nil {
				b.logger.Warn("telemetry handler error",
					zap.String("hook", string(env.event.Hook)),
					zap.String("phase", string(env.event.Phase)),
					zap.Error(err))
			}
		}(entry.handler)
	}
}

// Publish sends an event. Blocks until buffer has space or ctx expires. An
// event accepted by Publish is always delivered before Close returns.
func (b *eventBus) Publish(ctx context.Context, event Event) error {
	b.gate.RLock()
	defer b.gate.RUnlock()
	if b.closed.Load() {
		return ErrBusClosed
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	env := eventEnvelope{ctx: ctx, event: event}

	select {
	case b.ch <- env:
		return nil
	default:
		select {
		case b.ch <- env:
			return nil
		case <-ctx.Done():
			return ErrPublishTimeout
		}
	}
}

// Subscribe registers a handler for a hook name or AllHooks.
func (b *eventBus) Subscribe(hook string, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID.Add(1)
	b.subscribers[hook] = append(b.subscribers[hook], subscriberEntry{
		id:      id,
		handler: handler,
	})

	return &subscription{bus: b, topic: hook, id: id}
}

// Close stops accepting new events, drains pending ones and waits for the
// dispatcher and every in-flight handler.
func (b *eventBus) Close() error {
	b.gate.Lock()
	already := b.closed.Swap(true)
	b.gate.Unlock()
	if already {
		return nil
	}

	close(b.done)
	<-b.stopped
	b.wg.Wait()
	return nil
}
