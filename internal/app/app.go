// Package app assembles and runs the bot.
package app

import (
	"context"
	"fmt"
	"sync"

	"duelbot/internal/adapters/telegram"
	"duelbot/internal/bridge"
	"duelbot/internal/config"
	"duelbot/internal/directory"
	"duelbot/internal/dispatch"
	"duelbot/internal/eventbus"
	"duelbot/internal/feed"
	"duelbot/internal/kit"
	"duelbot/internal/mute"
	"duelbot/internal/schedule"
	"duelbot/internal/storage"
	"duelbot/pkg/logx"
)

const updateQueueSize = 64

type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	adapter *telegram.Adapter
	dir     *directory.Client
	store   storage.Store
	mute    *mute.Store
	bus     eventbus.Bus
	disp    *dispatch.Dispatcher
	sched   *schedule.Service
	bridge  *bridge.Bridge
	feed    *feed.Client
	health  *healthServer

	webAppURL string

	updates chan kit.Update
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New loads the config and wires every component together. Nothing
// runs until Start.
func New(configPath string) (*App, error) {
	mgr := config.NewManager(configPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
	})
	mgr.SetLogger(log.With(logx.String("comp", "config")))

	a := &App{
		cfgMgr:    mgr,
		logSvc:    logSvc,
		log:       log,
		webAppURL: cfg.Telegram.WebAppURL,
		updates:   make(chan kit.Update, updateQueueSize),
	}
	if err := a.build(cfg); err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(cfg *config.Config) error {
	pollTimeout, err := config.Duration("telegram.poll_timeout", cfg.Telegram.PollTimeout, 0)
	if err != nil {
		return err
	}
	backendTimeout, err := config.Duration("backend.timeout", cfg.Backend.Timeout, 0)
	if err != nil {
		return err
	}
	sendTimeout, err := config.Duration("notify.send_timeout", cfg.Notify.SendTimeout, 0)
	if err != nil {
		return err
	}
	handshakeTimeout, err := config.Duration("feed.handshake_timeout", cfg.Feed.HandshakeTimeout, 0)
	if err != nil {
		return err
	}
	reconnectMin, err := config.Duration("feed.reconnect_min", cfg.Feed.ReconnectMin, 0)
	if err != nil {
		return err
	}
	reconnectMax, err := config.Duration("feed.reconnect_max", cfg.Feed.ReconnectMax, 0)
	if err != nil {
		return err
	}
	busyTimeout, err := config.Duration("storage.busy_timeout", cfg.Storage.BusyTimeout, 0)
	if err != nil {
		return err
	}

	a.adapter, err = telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, a.log.With(logx.String("comp", "telegram")))
	if err != nil {
		return fmt.Errorf("telegram adapter: %w", err)
	}

	a.dir = directory.New(directory.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: backendTimeout,
	}, a.log.With(logx.String("comp", "directory")))

	a.store, err = storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, a.log.With(logx.String("comp", "storage")))
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	a.mute = mute.New(a.store, a.log.With(logx.String("comp", "mute")))
	a.bus = eventbus.New()

	a.disp = dispatch.New(dispatch.Config{
		RatePerSec:  cfg.Notify.RatePerSec,
		SendTimeout: sendTimeout,
	}, a.adapter, a.dir, a.mute, a.bus, a.log.With(logx.String("comp", "dispatch")))

	entries := make([]schedule.Entry, 0, len(cfg.Schedule.Entries))
	for _, e := range cfg.Schedule.Entries {
		entry, err := schedule.ParseEntry(e.Name, e.At, e.Days, e.Message)
		if err != nil {
			return fmt.Errorf("schedule entry %q: %w", e.At, err)
		}
		entries = append(entries, entry)
	}
	a.sched = schedule.New(schedule.Config{
		Enabled:  cfg.Schedule.Enabled,
		Timezone: cfg.Schedule.Timezone,
		Entries:  entries,
		Options:  bridge.NotifyOptions(a.webAppURL),
	}, a.disp, a.log.With(logx.String("comp", "schedule")))

	a.bridge = bridge.New(bridge.Config{
		QueueSize: cfg.Feed.QueueSize,
		WebAppURL: a.webAppURL,
	}, a.disp, a.bus, a.log.With(logx.String("comp", "bridge")))

	a.feed = feed.New(feed.Config{
		Enabled:          cfg.Feed.Enabled,
		URL:              cfg.Feed.URL,
		Origin:           cfg.Feed.Origin,
		HandshakeTimeout: handshakeTimeout,
		ReconnectMin:     reconnectMin,
		ReconnectMax:     reconnectMax,
	}, a.bridge, a.dir, a.log.With(logx.String("comp", "feed")))

	if cfg.Health.Enabled {
		a.health = newHealthServer(cfg.Health.Addr, a.feed, a.bus,
			a.log.With(logx.String("comp", "health")))
	}
	return nil
}

// Start brings every component up. Order matters: the dispatcher's
// consumers (bridge, schedule) start before the producers that feed
// them (feed client, telegram updates).
func (a *App) Start(ctx context.Context) error {
	rctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if a.health != nil {
		a.health.Start(rctx)
	}

	a.bridge.Start(rctx)
	if a.sched.Enabled() {
		if err := a.sched.Start(rctx); err != nil {
			return fmt.Errorf("schedule: %w", err)
		}
	}
	a.feed.Start(rctx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.commandLoop(rctx)
	}()
	if err := a.adapter.Start(rctx, a.updates); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}

	// Config hot reload: only the logging section applies at runtime,
	// everything else needs a restart.
	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		_ = a.cfgMgr.Watch(rctx)
	}()
	go func() {
		defer a.wg.Done()
		sub := a.cfgMgr.Subscribe(1)
		defer a.cfgMgr.Unsubscribe(sub)
		for {
			select {
			case <-rctx.Done():
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				a.logSvc.Apply(logx.Config{
					Level:   cfg.Logging.Level,
					Console: cfg.Logging.Console,
					File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
				})
				a.log.Info("logging config applied", logx.String("level", cfg.Logging.Level))
			}
		}
	}()

	a.log.Info("bot started")
	return nil
}

// Stop shuts components down producer-first so queued work can drain.
func (a *App) Stop(ctx context.Context) {
	a.feed.Stop(ctx)
	_ = a.adapter.Stop(ctx)
	a.sched.Stop(ctx)
	a.bridge.Stop(ctx)

	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()

	if a.health != nil {
		a.health.Stop(ctx)
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("closing storage failed", logx.Err(err))
		}
	}
	a.log.Info("bot stopped")
	_ = a.logSvc.Close()
}
