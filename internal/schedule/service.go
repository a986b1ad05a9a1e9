// Package schedule fires broadcast notifications at configured
// wall-clock minutes on configured weekdays.
package schedule

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"duelbot/internal/dispatch"
	"duelbot/internal/kit"
	"duelbot/pkg/logx"
)

// DefaultMessage is sent for lesson slots without a configured text.
const DefaultMessage = "Готовься к битве, она состоится через 5 минут!"

// Notifier is the dispatch surface the trigger source needs.
type Notifier interface {
	Dispatch(ctx context.Context, req dispatch.Request) dispatch.Summary
}

type Config struct {
	Enabled  bool
	Timezone string // IANA TZ; empty means local time
	Entries  []Entry
	// Options are attached to every scheduled broadcast (webapp button).
	Options *kit.SendOptions
}

type Service struct {
	mu sync.Mutex

	cfg    Config
	disp   Notifier
	log    logx.Logger
	parser cron.Parser
	c      *cron.Cron
}

func New(cfg Config, disp Notifier, log logx.Logger) *Service {
	return &Service{
		cfg:  cfg,
		disp: disp,
		log:  log,
		parser: cron.NewParser(
			cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
	}
}

func (s *Service) Enabled() bool { return s.cfg.Enabled }

// Start registers all entries and starts the cron loop. Each entry
// fires at most once per matching minute; missed ticks while the
// process was down are not replayed.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}

	loc := s.loadLocation()
	c := cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))

	for _, e := range s.cfg.Entries {
		e := e
		spec := e.cronSpec()
		if _, err := c.AddFunc(spec, func() { s.fire(ctx, e) }); err != nil {
			return err
		}
		s.log.Debug("trigger registered",
			logx.String("name", e.TriggerName()),
			logx.String("spec", spec))
	}

	c.Start()
	s.c = c
	s.log.Info("schedule started",
		logx.Int("entries", len(s.cfg.Entries)),
		logx.String("tz", loc.String()))
	return nil
}

// Stop halts firing and waits for in-flight dispatches to drain,
// best-effort until ctx expires.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
		s.log.Info("schedule stopped")
	case <-ctx.Done():
		s.log.Warn("schedule stop cancelled with dispatches in flight")
	}
}

func (s *Service) fire(ctx context.Context, e Entry) {
	msg := e.Message
	if msg == "" {
		msg = DefaultMessage
	}
	// Dispatch never returns an error; a bad batch must not stop the
	// cron loop.
	s.disp.Dispatch(ctx, dispatch.NewBroadcast(e.TriggerName(), msg, s.cfg.Options))
}

func (s *Service) loadLocation() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone, falling back to local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}
