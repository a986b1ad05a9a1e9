// Package bridge carries duel events from the feed client's read loop
// into the dispatcher.
//
// The feed invokes Submit on its own goroutine, outside the lifecycle
// the dispatcher runs under. Submit only validates and enqueues; a
// persistent worker drains the bounded queue and performs the actual
// dispatch, so the feed's read loop is never blocked by Telegram
// latency and concurrent submissions cannot interleave destructively.
package bridge

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"duelbot/internal/dispatch"
	"duelbot/internal/eventbus"
	"duelbot/pkg/logx"
)

var (
	ErrNoTarget  = errors.New("duel event has no target recipient")
	ErrQueueFull = errors.New("bridge queue full")
	ErrStopped   = errors.New("bridge stopped")
)

// Notifier is the dispatch surface the bridge needs.
type Notifier interface {
	Dispatch(ctx context.Context, req dispatch.Request) dispatch.Summary
}

type Config struct {
	QueueSize int
	// WebAppURL is attached as an inline button to duel notifications.
	WebAppURL string
}

type Bridge struct {
	mu        sync.Mutex
	accepting bool
	queue     chan Event
	submitWG  sync.WaitGroup
	workerWG  sync.WaitGroup

	cfg  Config
	disp Notifier
	bus  eventbus.Bus
	log  logx.Logger
}

func New(cfg Config, disp Notifier, bus eventbus.Bus, log logx.Logger) *Bridge {
	size := cfg.QueueSize
	if size <= 0 {
		size = 256
	}
	return &Bridge{
		queue: make(chan Event, size),
		cfg:   cfg,
		disp:  disp,
		bus:   bus,
		log:   log,
	}
}

// Start launches the consumer worker inside the primary runtime.
func (b *Bridge) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.accepting {
		return
	}
	b.accepting = true

	b.workerWG.Add(1)
	go func() {
		defer b.workerWG.Done()
		b.workerLoop(ctx)
	}()
	b.log.Info("bridge started", logx.Int("queue_cap", cap(b.queue)))
}

// Stop blocks intake, then drains queued events best-effort until ctx
// expires.
func (b *Bridge) Stop(ctx context.Context) {
	b.mu.Lock()
	if !b.accepting {
		b.mu.Unlock()
		return
	}
	b.accepting = false
	b.mu.Unlock()

	// Wait for in-flight Submits before closing the queue.
	b.submitWG.Wait()
	close(b.queue)

	done := make(chan struct{})
	go func() {
		b.workerWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		b.log.Info("bridge stopped")
	case <-ctx.Done():
		b.log.Warn("bridge stop cancelled with events in queue")
	}
}

// Submit hands a duel event over from a foreign goroutine. It never
// blocks: the event is either enqueued or rejected immediately.
//
// A malformed event (no target recipient) is logged and dropped; it
// must not stop later events from being processed.
func (b *Bridge) Submit(evt Event) error {
	if evt.Target.IsZero() {
		b.log.Warn("dropping duel event without target recipient",
			logx.String("kind", string(evt.Kind)),
			logx.String("challenger", evt.Challenger))
		b.drop(evt, ErrNoTarget)
		return ErrNoTarget
	}
	if evt.At.IsZero() {
		evt.At = time.Now()
	}

	b.mu.Lock()
	if !b.accepting {
		b.mu.Unlock()
		return ErrStopped
	}
	b.submitWG.Add(1)
	b.mu.Unlock()
	defer b.submitWG.Done()

	select {
	case b.queue <- evt:
		return nil
	default:
		b.log.Error("bridge queue full, dropping duel event",
			logx.String("kind", string(evt.Kind)),
			logx.String("target", string(evt.Target)))
		b.drop(evt, ErrQueueFull)
		return ErrQueueFull
	}
}

func (b *Bridge) workerLoop(ctx context.Context) {
	for evt := range b.queue {
		b.handleOne(ctx, evt)
	}
}

func (b *Bridge) handleOne(ctx context.Context, evt Event) {
	// A panic while handling one event must not kill the worker.
	defer func() {
		if p := recover(); p != nil {
			b.log.Error("panic handling duel event",
				logx.Any("panic", p),
				logx.Stack(string(debug.Stack())))
		}
	}()

	text := renderMessage(evt)
	if text == "" {
		b.log.Warn("unknown duel event kind, dropping", logx.String("kind", string(evt.Kind)))
		b.drop(evt, errors.New("unknown event kind"))
		return
	}
	b.disp.Dispatch(ctx, dispatch.NewDirect(string(evt.Kind), evt.Target, text, NotifyOptions(b.cfg.WebAppURL)))
}

func (b *Bridge) drop(evt Event, reason error) {
	if b.bus == nil {
		return
	}
	now := time.Now()
	b.bus.Publish(eventbus.Event{Type: eventbus.TypeDropped, Time: now, Data: DroppedEvent{
		Kind:   evt.Kind,
		Target: evt.Target,
		Reason: reason.Error(),
		At:     now,
	}})
}
