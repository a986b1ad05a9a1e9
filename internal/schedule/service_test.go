package schedule

import (
	"context"
	"sync"
	"testing"

	"duelbot/internal/dispatch"
	"duelbot/internal/kit"
	"duelbot/pkg/logx"
)

type captureNotifier struct {
	mu   sync.Mutex
	reqs []dispatch.Request
}

func (c *captureNotifier) Dispatch(ctx context.Context, req dispatch.Request) dispatch.Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reqs = append(c.reqs, req)
	return dispatch.Summary{Trigger: req.Trigger}
}

func (c *captureNotifier) snapshot() []dispatch.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]dispatch.Request(nil), c.reqs...)
}

func TestFireRoutesEntryIntoDispatcher(t *testing.T) {
	t.Parallel()
	sink := &captureNotifier{}
	opts := &kit.SendOptions{ParseMode: "HTML"}
	s := New(Config{Enabled: true, Options: opts}, sink, logx.Nop())

	e, err := ParseEntry("first-lesson", "07:35", []string{"mon"}, "Скоро дуэль!")
	if err != nil {
		t.Fatalf("ParseEntry: %v", err)
	}
	s.fire(context.Background(), e)

	reqs := sink.snapshot()
	if len(reqs) != 1 {
		t.Fatalf("expected one dispatch, got %d", len(reqs))
	}
	req := reqs[0]
	if req.Trigger != "first-lesson" {
		t.Fatalf("trigger = %q", req.Trigger)
	}
	if req.Text != "Скоро дуэль!" {
		t.Fatalf("text = %q", req.Text)
	}
	if !req.Target.IsZero() {
		t.Fatal("schedule dispatches must be broadcasts")
	}
	if req.Options != opts {
		t.Fatal("configured send options should pass through")
	}
}

func TestFireFallsBackToDefaultMessage(t *testing.T) {
	t.Parallel()
	sink := &captureNotifier{}
	s := New(Config{Enabled: true}, sink, logx.Nop())

	e, err := ParseEntry("", "09:25", nil, "")
	if err != nil {
		t.Fatalf("ParseEntry: %v", err)
	}
	s.fire(context.Background(), e)

	reqs := sink.snapshot()
	if len(reqs) != 1 {
		t.Fatalf("expected one dispatch, got %d", len(reqs))
	}
	if reqs[0].Text != DefaultMessage {
		t.Fatalf("text = %q, want the default lesson warning", reqs[0].Text)
	}
	if reqs[0].Trigger != "09:25" {
		t.Fatalf("trigger = %q, want the HH:MM slot", reqs[0].Trigger)
	}
}
