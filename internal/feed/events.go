package feed

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"duelbot/internal/bridge"
	"duelbot/internal/kit"
)

// frame is the envelope every feed message travels in.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// flexString accepts a JSON string or number; the backend is not
// consistent about id and seat types.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*f = flexString(strconv.FormatInt(i, 10))
	} else {
		*f = flexString(n.String())
	}
	return nil
}

type duelRequestPayload struct {
	ChallengedID   flexString `json:"challengedId"`
	SeatID         flexString `json:"seatId"`
	ChallengerName string     `json:"challengerName"`
}

type duelDeclinedPayload struct {
	Duel struct {
		Player2 flexString `json:"player2"`
		SeatID  flexString `json:"seatId"`
	} `json:"duel"`
	ChallengerName string `json:"challengerName"`
}

// parseDuelEvent maps a wire frame onto a bridge event. ok=false means
// the event name is not one we care about; err means a known event
// carried an undecodable payload.
func parseDuelEvent(f frame) (bridge.Event, bool, error) {
	switch f.Event {
	case "duelRequest":
		var p duelRequestPayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			return bridge.Event{}, false, fmt.Errorf("duelRequest payload: %w", err)
		}
		return bridge.Event{
			Kind:       bridge.KindChallengeIssued,
			Target:     kit.Recipient(p.ChallengedID),
			Seat:       string(p.SeatID),
			Challenger: p.ChallengerName,
			At:         time.Now(),
		}, true, nil
	case "duelDeclined":
		var p duelDeclinedPayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			return bridge.Event{}, false, fmt.Errorf("duelDeclined payload: %w", err)
		}
		return bridge.Event{
			Kind:       bridge.KindChallengeDeclined,
			Target:     kit.Recipient(p.Duel.Player2),
			Seat:       string(p.Duel.SeatID),
			Challenger: p.ChallengerName,
			At:         time.Now(),
		}, true, nil
	default:
		return bridge.Event{}, false, nil
	}
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
