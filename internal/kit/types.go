package kit

import "context"

// Recipient is an opaque message destination identifier.
// For the Telegram channel it is the stringified user/chat id
// ("telegramId" in the backend directory).
type Recipient string

func (r Recipient) IsZero() bool { return r == "" }

// User is a directory entry as the game backend stores it.
type User struct {
	TelegramID Recipient `json:"telegramId"`
	Username   string    `json:"username,omitempty"`
	FirstName  string    `json:"firstName,omitempty"`
}

// WebAppButton describes a single inline button opening a web app.
type WebAppButton struct {
	Label string
	URL   string
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
	WebApp         *WebAppButton
}

type UpdateKind string

const (
	UpdateMessage UpdateKind = "message"
)

// Update is an inbound event from the messaging transport.
type Update struct {
	Kind    UpdateKind
	Message *Message
}

type Message struct {
	ID        int
	From      Recipient
	Username  string
	FirstName string
	Text      string
}

// Channel sends one message to one recipient. It may fail; any error
// is a delivery failure, there are no partial outcomes.
type Channel interface {
	Send(ctx context.Context, to Recipient, text string, opt *SendOptions) error
}

// Adapter is a full messaging transport: outbound channel plus the
// inbound update stream for bot commands.
type Adapter interface {
	Channel

	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error
}

// Directory resolves the current recipient set. Implementations fail
// soft: transport errors yield an empty slice, never an error.
type Directory interface {
	List(ctx context.Context) []Recipient
}
