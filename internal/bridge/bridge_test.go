package bridge

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"duelbot/internal/dispatch"
	"duelbot/internal/kit"
	"duelbot/internal/mute"
	"duelbot/pkg/logx"
)

type fakeChannel struct {
	mu    sync.Mutex
	sends []sentMsg
}

type sentMsg struct {
	To   kit.Recipient
	Text string
}

func (f *fakeChannel) Send(ctx context.Context, to kit.Recipient, text string, opt *kit.SendOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, sentMsg{To: to, Text: text})
	return nil
}

func (f *fakeChannel) snapshot() []sentMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMsg(nil), f.sends...)
}

type emptyDirectory struct{}

func (emptyDirectory) List(ctx context.Context) []kit.Recipient { return nil }

func newTestBridge(ch kit.Channel) *Bridge {
	d := dispatch.New(dispatch.Config{RatePerSec: 1000}, ch, emptyDirectory{}, mute.New(nil, logx.Nop()), nil, logx.Nop())
	return New(Config{QueueSize: 32}, d, nil, logx.Nop())
}

func drain(t *testing.T, b *Bridge) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	b.Stop(ctx)
}

func TestDuelEventReachesTarget(t *testing.T) {
	t.Parallel()
	ch := &fakeChannel{}
	b := newTestBridge(ch)
	b.Start(context.Background())

	err := b.Submit(Event{Kind: KindChallengeIssued, Target: "C", Seat: "5", Challenger: "X"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	drain(t, b)

	sends := ch.snapshot()
	if len(sends) != 1 {
		t.Fatalf("expected exactly one delivery, got %d", len(sends))
	}
	if sends[0].To != "C" {
		t.Fatalf("delivered to %s, want C", sends[0].To)
	}
	if !strings.Contains(sends[0].Text, "№5") || !strings.Contains(sends[0].Text, "X") {
		t.Fatalf("message should carry seat and challenger: %q", sends[0].Text)
	}
}

func TestMalformedEventIsDroppedButBridgeContinues(t *testing.T) {
	t.Parallel()
	ch := &fakeChannel{}
	b := newTestBridge(ch)
	b.Start(context.Background())

	if err := b.Submit(Event{Kind: KindChallengeIssued, Seat: "3", Challenger: "X"}); !errors.Is(err, ErrNoTarget) {
		t.Fatalf("Submit = %v, want ErrNoTarget", err)
	}
	if err := b.Submit(Event{Kind: KindChallengeDeclined, Target: "D", Seat: "7", Challenger: "Y"}); err != nil {
		t.Fatalf("valid event after malformed one: %v", err)
	}
	drain(t, b)

	sends := ch.snapshot()
	if len(sends) != 1 {
		t.Fatalf("malformed event must produce zero sends; got %d total", len(sends))
	}
	if sends[0].To != "D" {
		t.Fatalf("delivered to %s, want D", sends[0].To)
	}
}

func TestUnknownKindIsDropped(t *testing.T) {
	t.Parallel()
	ch := &fakeChannel{}
	b := newTestBridge(ch)
	b.Start(context.Background())

	if err := b.Submit(Event{Kind: "seat-swapped", Target: "E"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	drain(t, b)

	if n := len(ch.snapshot()); n != 0 {
		t.Fatalf("unknown kind should not be delivered, got %d sends", n)
	}
}

func TestConcurrentForeignSubmissions(t *testing.T) {
	t.Parallel()
	ch := &fakeChannel{}
	b := newTestBridge(ch)
	b.Start(context.Background())

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = b.Submit(Event{
				Kind:       KindChallengeIssued,
				Target:     kit.Recipient(strings.Repeat("x", i%3+1)),
				Seat:       "1",
				Challenger: "Z",
			})
		}(i)
	}
	wg.Wait()
	drain(t, b)

	if got := len(ch.snapshot()); got != n {
		t.Fatalf("delivered %d of %d concurrently submitted events", got, n)
	}
}

func TestSubmitAfterStop(t *testing.T) {
	t.Parallel()
	b := newTestBridge(&fakeChannel{})
	b.Start(context.Background())
	drain(t, b)

	if err := b.Submit(Event{Kind: KindChallengeIssued, Target: "C"}); !errors.Is(err, ErrStopped) {
		t.Fatalf("Submit after stop = %v, want ErrStopped", err)
	}
}
