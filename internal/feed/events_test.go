package feed

import (
	"encoding/json"
	"testing"

	"duelbot/internal/bridge"
)

func TestParseDuelRequest(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data string
		want bridge.Event
	}{
		{
			name: "string ids",
			data: `{"challengedId":"123","seatId":"7","challengerName":"Иван"}`,
			want: bridge.Event{Kind: bridge.KindChallengeIssued, Target: "123", Seat: "7", Challenger: "Иван"},
		},
		{
			name: "numeric ids",
			data: `{"challengedId":123456789,"seatId":7,"challengerName":"Иван"}`,
			want: bridge.Event{Kind: bridge.KindChallengeIssued, Target: "123456789", Seat: "7", Challenger: "Иван"},
		},
		{
			name: "missing challenger",
			data: `{"challengedId":"123","seatId":"7"}`,
			want: bridge.Event{Kind: bridge.KindChallengeIssued, Target: "123", Seat: "7"},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			evt, ok, err := parseDuelEvent(frame{Event: "duelRequest", Data: json.RawMessage(tt.data)})
			if err != nil || !ok {
				t.Fatalf("parseDuelEvent: ok=%v err=%v", ok, err)
			}
			evt.At = tt.want.At
			if evt != tt.want {
				t.Fatalf("got %+v, want %+v", evt, tt.want)
			}
		})
	}
}

func TestParseDuelDeclined(t *testing.T) {
	t.Parallel()
	data := `{"duel":{"player2":987,"seatId":"12"},"challengerName":"Петя"}`
	evt, ok, err := parseDuelEvent(frame{Event: "duelDeclined", Data: json.RawMessage(data)})
	if err != nil || !ok {
		t.Fatalf("parseDuelEvent: ok=%v err=%v", ok, err)
	}
	if evt.Kind != bridge.KindChallengeDeclined || evt.Target != "987" || evt.Seat != "12" || evt.Challenger != "Петя" {
		t.Fatalf("got %+v", evt)
	}
}

func TestParseIgnoresForeignEvents(t *testing.T) {
	t.Parallel()
	_, ok, err := parseDuelEvent(frame{Event: "seatUpdated", Data: json.RawMessage(`{"seatId":1}`)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("foreign event should not parse into a duel event")
	}
}

func TestParseMalformedPayload(t *testing.T) {
	t.Parallel()
	_, _, err := parseDuelEvent(frame{Event: "duelRequest", Data: json.RawMessage(`"not an object"`)})
	if err == nil {
		t.Fatal("expected decode error for malformed payload")
	}
}
