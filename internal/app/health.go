package app

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"duelbot/internal/eventbus"
	"duelbot/internal/feed"
	"duelbot/pkg/logx"
)

// healthServer exposes liveness and feed diagnostics over local HTTP.
type healthServer struct {
	addr string
	feed *feed.Client
	bus  eventbus.Bus
	log  logx.Logger

	srv *http.Server
	wg  sync.WaitGroup

	delivered atomic.Uint64
	skipped   atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

func newHealthServer(addr string, fc *feed.Client, bus eventbus.Bus, log logx.Logger) *healthServer {
	return &healthServer{addr: addr, feed: fc, bus: bus, log: log}
}

func (h *healthServer) Start(ctx context.Context) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /feed/status", h.handleFeedStatus)
	h.srv = &http.Server{
		Addr:              h.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Count delivery outcomes off the bus; slow reads only cost us
	// counter accuracy, never dispatcher latency.
	sub, unsub := h.bus.Subscribe(64)
	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		defer unsub()
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-sub:
				if !ok {
					return
				}
				switch e.Type {
				case eventbus.TypeDelivered:
					h.delivered.Add(1)
				case eventbus.TypeSkipped:
					h.skipped.Add(1)
				case eventbus.TypeFailed:
					h.failed.Add(1)
				case eventbus.TypeDropped:
					h.dropped.Add(1)
				}
			}
		}
	}()
	go func() {
		defer h.wg.Done()
		h.log.Info("health server listening", logx.String("addr", h.addr))
		if err := h.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.log.Warn("health server failed", logx.Err(err))
		}
	}()
}

func (h *healthServer) Stop(ctx context.Context) {
	if h.srv != nil {
		if err := h.srv.Shutdown(ctx); err != nil {
			h.log.Warn("health server shutdown failed", logx.Err(err))
		}
	}
	h.wg.Wait()
}

func (h *healthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *healthServer) handleFeedStatus(w http.ResponseWriter, r *http.Request) {
	type counters struct {
		Delivered uint64 `json:"delivered"`
		Skipped   uint64 `json:"skipped"`
		Failed    uint64 `json:"failed"`
		Dropped   uint64 `json:"dropped"`
	}
	writeJSON(w, http.StatusOK, struct {
		Feed   feed.Status `json:"feed"`
		Notify counters    `json:"notify"`
	}{
		Feed: h.feed.Status(),
		Notify: counters{
			Delivered: h.delivered.Load(),
			Skipped:   h.skipped.Load(),
			Failed:    h.failed.Load(),
			Dropped:   h.dropped.Load(),
		},
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
