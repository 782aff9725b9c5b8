package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull discards events when the buffer is full instead of
	// blocking the emitting request.
	DropIfFull bool
}

// Dispatcher relays events from request goroutines to a single sink
// goroutine through a bounded queue. A nil Dispatcher is valid and discards
// everything.
type Dispatcher struct {
	queue      chan Event
	stop       chan struct{}
	relayDone  chan struct{}
	sink       Sink
	dropIfFull bool
	onDrop     func(Event)

	stopped  atomic.Bool
	dropped  atomic.Uint64
	stopOnce sync.Once
}

// NewDispatcher starts the relay goroutine. It returns nil when cfg is
// disabled. onDrop, when set, is called for every event dropped on a full
// queue.
func NewDispatcher(cfg Config, sink Sink, onDrop func(Event)) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		queue:      make(chan Event, max(cfg.BufferSize, 1)),
		stop:       make(chan struct{}),
		relayDone:  make(chan struct{}),
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		onDrop:     onDrop,
	}
	go d.relay()
	return d
}

func (d *Dispatcher) relay() {
	defer close(d.relayDone)

	ctx := context.Background()
	for {
		select {
		case ev := <-d.queue:
			d.sink.Emit(ctx, ev)
		case <-d.stop:
			d.drain(ctx)
			return
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case ev := <-d.queue:
			d.sink.Emit(ctx, ev)
		default:
			return
		}
	}
}

// Emit enqueues event. After Close it is a no-op.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.stopped.Load() {
		return
	}
	if d.dropIfFull {
		d.offer(event)
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.queue <- event:
	case <-ctx.Done():
	case <-d.stop:
	}
}

func (d *Dispatcher) offer(event Event) {
	select {
	case d.queue <- event:
		return
	case <-d.stop:
		return
	default:
	}
	d.dropped.Add(1)
	if d.onDrop != nil {
		d.onDrop(event)
	}
}

// Close stops accepting events, flushes the queue into the sink and waits
// for the relay goroutine to exit.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		d.stopped.Store(true)
		close(d.stop)
		<-d.relayDone
	})
}

// Dropped returns the number of events discarded on a full queue.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
