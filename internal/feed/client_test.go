package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"duelbot/internal/bridge"
	"duelbot/internal/kit"
	"duelbot/pkg/logx"
)

type recordingSubmitter struct {
	mu     sync.Mutex
	events []bridge.Event
}

func (r *recordingSubmitter) Submit(evt bridge.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recordingSubmitter) snapshot() []bridge.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bridge.Event(nil), r.events...)
}

type staticDirectory []kit.Recipient

func (d staticDirectory) List(ctx context.Context) []kit.Recipient { return d }

func TestClientJoinsAndForwardsEvents(t *testing.T) {
	t.Parallel()

	joins := make(chan string, 4)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Expect one join frame per registered recipient.
		for i := 0; i < 2; i++ {
			var f frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			if f.Event != "join" {
				continue
			}
			var id string
			_ = json.Unmarshal(f.Data, &id)
			joins <- id
		}

		_ = conn.WriteJSON(frame{
			Event: "duelRequest",
			Data:  json.RawMessage(`{"challengedId":"111","seatId":3,"challengerName":"X"}`),
		})
		// Keep the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	sub := &recordingSubmitter{}
	c := New(Config{
		Enabled:      true,
		URL:          "ws" + strings.TrimPrefix(srv.URL, "http"),
		ReconnectMin: 50 * time.Millisecond,
	}, sub, staticDirectory{"111", "222"}, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		c.Stop(sctx)
	}()

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case id := <-joins:
			got[id] = true
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for join frames")
		}
	}
	if !got["111"] || !got["222"] {
		t.Fatalf("joined rooms %v, want 111 and 222", got)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		events := sub.snapshot()
		if len(events) == 1 {
			if events[0].Target != "111" || events[0].Seat != "3" {
				t.Fatalf("forwarded %+v", events[0])
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("duel event never reached submitter, have %d", len(events))
		}
		time.Sleep(10 * time.Millisecond)
	}

	if st := c.Status(); !st.Connected {
		t.Fatalf("status = %+v, want connected", st)
	}
}

func TestClientDisabled(t *testing.T) {
	t.Parallel()
	c := New(Config{Enabled: false}, &recordingSubmitter{}, staticDirectory{}, logx.Nop())
	c.Start(context.Background())
	if st := c.Status(); st.Connected {
		t.Fatal("disabled client must not connect")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	c.Stop(ctx)
}
