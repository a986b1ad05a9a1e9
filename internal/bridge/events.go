package bridge

import (
	"fmt"
	"time"

	"duelbot/internal/kit"
)

type EventKind string

const (
	// KindChallengeIssued: someone challenged the target for their seat.
	KindChallengeIssued EventKind = "challenge-issued"
	// KindChallengeDeclined: the target declined and lost the seat.
	KindChallengeDeclined EventKind = "challenge-declined"
)

// Event is a normalized duel notification crossing from the feed into
// the primary runtime.
type Event struct {
	Kind       EventKind
	Target     kit.Recipient
	Seat       string
	Challenger string
	At         time.Time
}

// DroppedEvent is the bus payload for events the bridge rejected.
type DroppedEvent struct {
	Kind   EventKind
	Target kit.Recipient
	Reason string
	At     time.Time
}

func renderMessage(e Event) string {
	challenger := e.Challenger
	if challenger == "" {
		challenger = "Соперник"
	}
	switch e.Kind {
	case KindChallengeIssued:
		return fmt.Sprintf(
			"🎯 Вас вызвали на дуэль!\n"+
				"<b>%s</b> бросил вам вызов за место №%s!\n"+
				"У вас есть 1 минута чтобы принять вызов, иначе вы потеряете своё место ⚔️",
			challenger, e.Seat)
	case KindChallengeDeclined:
		return fmt.Sprintf(
			"❌ Вы отклонили вызов на дуэль от <b>%s</b>!\n"+
				"В результате вы потеряли место №%s!\n"+
				"Теперь оно принадлежит вашему сопернику 🏆",
			challenger, e.Seat)
	default:
		return ""
	}
}

// NotifyOptions builds the send options every outbound game message
// uses: HTML parse mode plus the webapp inline button when a URL is
// configured.
func NotifyOptions(webAppURL string) *kit.SendOptions {
	opt := &kit.SendOptions{ParseMode: "HTML"}
	if webAppURL != "" {
		opt.WebApp = &kit.WebAppButton{Label: "Перейти в приложение", URL: webAppURL}
	}
	return opt
}
