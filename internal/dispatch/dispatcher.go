// Package dispatch fans notifications out to recipients.
//
// The Dispatcher is the single component that touches the directory,
// the mute store, and the delivery channel. It never returns an error
// to its caller: trigger sources must keep firing no matter how a
// particular batch went.
package dispatch

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"duelbot/internal/eventbus"
	"duelbot/internal/kit"
	"duelbot/internal/mute"
	"duelbot/pkg/logx"
)

type Config struct {
	// RatePerSec caps outbound sends across a batch (Telegram tolerates
	// ~30 msg/s bot-wide; stay under it).
	RatePerSec int
	// SendTimeout bounds each individual delivery attempt.
	SendTimeout time.Duration
}

type Dispatcher struct {
	cfg Config

	channel kit.Channel
	dir     kit.Directory
	mute    *mute.Store
	bus     eventbus.Bus
	log     logx.Logger

	limiter *rate.Limiter
}

func New(cfg Config, channel kit.Channel, dir kit.Directory, muteStore *mute.Store, bus eventbus.Bus, log logx.Logger) *Dispatcher {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 20
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	return &Dispatcher{
		cfg:     cfg,
		channel: channel,
		dir:     dir,
		mute:    muteStore,
		bus:     bus,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
	}
}

// Dispatch resolves the request's recipients and delivers to all of
// them concurrently. It blocks until every attempt has completed
// (join-all), then returns the aggregated summary.
//
// A single recipient's failure never aborts its siblings, and no error
// escapes to the trigger source.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Summary {
	start := time.Now()

	var recipients []kit.Recipient
	if req.Target.IsZero() {
		// Broadcast: the recipient set may change between triggers, so
		// fetch it fresh every time. An empty result means "nothing to
		// notify", not an error.
		recipients = d.dir.List(ctx)
		if len(recipients) == 0 {
			d.log.Warn("no recipients to notify", logx.String("trigger", req.Trigger))
			return Summary{Trigger: req.Trigger, Took: time.Since(start)}
		}
	} else {
		recipients = []kit.Recipient{req.Target}
	}

	outcomes := make([]Outcome, len(recipients))
	var wg sync.WaitGroup
	for i, r := range recipients {
		i, r := i, r
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					outcomes[i] = Outcome{Recipient: r, Kind: Failed, Reason: "panic in delivery"}
					d.log.Error("panic delivering notification",
						logx.String("recipient", string(r)),
						logx.Any("panic", p),
						logx.Stack(string(debug.Stack())))
				}
			}()
			outcomes[i] = d.deliverOne(ctx, req, r)
		}()
	}
	wg.Wait()

	sum := Summary{Trigger: req.Trigger, Outcomes: outcomes, Took: time.Since(start)}
	for _, o := range outcomes {
		switch o.Kind {
		case Delivered:
			sum.Delivered++
		case SkippedMuted:
			sum.Skipped++
		case Failed:
			sum.Failed++
		}
		d.publish(req.Trigger, o)
	}

	d.log.Info("dispatch complete",
		logx.String("trigger", req.Trigger),
		logx.Int("delivered", sum.Delivered),
		logx.Int("skipped", sum.Skipped),
		logx.Int("failed", sum.Failed),
		logx.Duration("took", sum.Took))
	return sum
}

func (d *Dispatcher) deliverOne(ctx context.Context, req Request, r kit.Recipient) Outcome {
	if d.mute != nil && d.mute.IsMuted(r) {
		d.log.Debug("notifications muted, skipping", logx.String("recipient", string(r)))
		return Outcome{Recipient: r, Kind: SkippedMuted}
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return Outcome{Recipient: r, Kind: Failed, Reason: err.Error()}
	}

	sctx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()
	if err := d.channel.Send(sctx, r, req.Text, req.Options); err != nil {
		d.log.Warn("delivery failed",
			logx.String("trigger", req.Trigger),
			logx.String("recipient", string(r)),
			logx.Err(err))
		return Outcome{Recipient: r, Kind: Failed, Reason: err.Error()}
	}
	return Outcome{Recipient: r, Kind: Delivered}
}

func (d *Dispatcher) publish(trigger string, o Outcome) {
	if d.bus == nil {
		return
	}
	typ := eventbus.TypeDelivered
	switch o.Kind {
	case SkippedMuted:
		typ = eventbus.TypeSkipped
	case Failed:
		typ = eventbus.TypeFailed
	}
	now := time.Now()
	d.bus.Publish(eventbus.Event{Type: typ, Time: now, Data: OutcomeEvent{
		Trigger:   trigger,
		Recipient: o.Recipient,
		Kind:      o.Kind,
		Reason:    o.Reason,
		At:        now,
	}})
}
