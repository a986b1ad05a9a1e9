package dispatch

import (
	"time"

	"duelbot/internal/kit"
)

// Request is a normalized unit of notification work. It is immutable
// once created.
//
// An empty Target means broadcast: the dispatcher resolves the current
// recipient set from the directory at dispatch time.
type Request struct {
	// Trigger names what caused the dispatch: a schedule slot ("07:35")
	// or a feed event kind ("challenge-issued").
	Trigger string
	Target  kit.Recipient
	Text    string
	Options *kit.SendOptions

	CreatedAt time.Time
}

// NewBroadcast builds a broadcast request for a schedule trigger.
func NewBroadcast(trigger, text string, opt *kit.SendOptions) Request {
	return Request{Trigger: trigger, Text: text, Options: opt, CreatedAt: time.Now()}
}

// NewDirect builds a single-recipient request for a feed event.
func NewDirect(trigger string, to kit.Recipient, text string, opt *kit.SendOptions) Request {
	return Request{Trigger: trigger, Target: to, Text: text, Options: opt, CreatedAt: time.Now()}
}

type OutcomeKind string

const (
	Delivered    OutcomeKind = "delivered"
	SkippedMuted OutcomeKind = "skipped-muted"
	Failed       OutcomeKind = "failed"
)

// Outcome is the terminal result for one (request, recipient) pair.
type Outcome struct {
	Recipient kit.Recipient
	Kind      OutcomeKind
	Reason    string // set when Kind == Failed
}

// Summary aggregates a completed dispatch. Every targeted recipient is
// represented by exactly one outcome.
type Summary struct {
	Trigger   string
	Delivered int
	Skipped   int
	Failed    int
	Outcomes  []Outcome
	Took      time.Duration
}

// OutcomeEvent is the bus payload published per terminal outcome.
type OutcomeEvent struct {
	Trigger   string
	Recipient kit.Recipient
	Kind      OutcomeKind
	Reason    string
	At        time.Time
}
