package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Config controls dispatcher buffering.
type Config struct {
	BufferSize int
	// DropIfFull discards messages when the buffer is full instead of waiting
	// for room until the caller's context ends.
	DropIfFull bool
	// SendTimeout bounds a single Sink.Send call. Zero means
	// DefaultSendTimeout.
	SendTimeout time.Duration
}

// DefaultSendTimeout bounds Sink.Send when Config.SendTimeout is zero.
const DefaultSendTimeout = 5 * time.Second

// Dispatcher forwards messages to a Sink from a single background goroutine.
// A nil *Dispatcher is valid and drops everything.
type Dispatcher struct {
	cfg       Config
	sink      Sink
	log       *zap.Logger
	ch        chan Message
	stop      chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	failed    atomic.Uint64
	closeOnce sync.Once

	// mu orders sends on ch against Close: Enqueue sends under the read
	// lock, Close flips closed under the write lock before the worker's
	// final drain.
	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts the delivery worker. A nil sink discards messages and
// a nil logger is replaced with a no-op one.
func NewDispatcher(cfg Config, sink Sink, log *zap.Logger) *Dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}

	d := &Dispatcher{
		cfg:  cfg,
		sink: sink,
		log:  log,
		ch:   make(chan Message, cfg.BufferSize),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case msg := <-d.ch:
			d.deliver(msg)
		case <-d.done:
			for {
				select {
				case msg := <-d.ch:
					d.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SendTimeout)
	defer cancel()

	if err := d.sink.Send(ctx, msg); err != nil {
		d.failed.Add(1)
		d.log.Warn("notification delivery failed",
			zap.String("template", msg.TemplateID),
			zap.Error(err),
		)
	}
}

// Enqueue queues msg for delivery and returns without waiting for the sink.
// Messages offered after Close are ignored; a blocked Enqueue that is cut
// short by Close counts as dropped.
func (d *Dispatcher) Enqueue(ctx context.Context, msg Message) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- msg:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- msg:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.stop:
		d.dropped.Add(1)
	}
}

// Close stops accepting messages, drains the buffer and waits for the worker.
// Every message accepted before Close is delivered or counted as failed.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		close(d.stop)

		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()

		close(d.done)
		d.wg.Wait()
	})
}

// Dropped counts messages discarded because the buffer was full.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Failed counts messages the sink rejected.
func (d *Dispatcher) Failed() uint64 {
	if d == nil {
		return 0
	}
	return d.failed.Load()
}
