package config

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Backend  BackendConfig  `json:"backend"`
	Feed     FeedConfig     `json:"feed"`
	Schedule ScheduleConfig `json:"schedule"`
	Notify   NotifyConfig   `json:"notify"`
	Storage  StorageConfig  `json:"storage"`
	Logging  LoggingConfig  `json:"logging"`
	Health   HealthConfig   `json:"health"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
	// WebAppURL is attached as an inline button to game notifications.
	WebAppURL string `json:"webapp_url,omitempty"`
}

type BackendConfig struct {
	// BaseURL of the game backend, e.g. "https://desks-duels.example.com".
	BaseURL string `json:"base_url"`
	Timeout string `json:"timeout,omitempty"`
}

type FeedConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url,omitempty"`
	Origin  string `json:"origin,omitempty"`
	// HandshakeTimeout bounds the websocket dial.
	HandshakeTimeout string `json:"handshake_timeout,omitempty"`
	// ReconnectMin/Max bound the reconnect backoff.
	ReconnectMin string `json:"reconnect_min,omitempty"`
	ReconnectMax string `json:"reconnect_max,omitempty"`
	QueueSize    int    `json:"queue_size,omitempty"`
}

type ScheduleConfig struct {
	Enabled  bool            `json:"enabled"`
	Timezone string          `json:"timezone,omitempty"`
	Entries  []ScheduleEntry `json:"entries,omitempty"`
}

// ScheduleEntry fires one named broadcast at a wall-clock minute on the
// listed weekdays. Days are lowercase three-letter names ("mon".."sun").
type ScheduleEntry struct {
	Name    string   `json:"name,omitempty"`
	At      string   `json:"at"` // "HH:MM"
	Days    []string `json:"days,omitempty"`
	Message string   `json:"message,omitempty"`
}

type NotifyConfig struct {
	RatePerSec  int    `json:"rate_per_sec,omitempty"`
	SendTimeout string `json:"send_timeout,omitempty"`
}

type StorageConfig struct {
	// Driver: "none" (default) or "sqlite".
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level,omitempty"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type HealthConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`
}

// DefaultScheduleEntries are the lesson slots the bot warns about five
// minutes ahead, Monday through Friday.
func DefaultScheduleEntries() []ScheduleEntry {
	times := []string{"07:35", "09:25", "10:15", "11:15", "12:15", "13:05", "13:55"}
	entries := make([]ScheduleEntry, 0, len(times))
	for _, at := range times {
		entries = append(entries, ScheduleEntry{
			At:   at,
			Days: []string{"mon", "tue", "wed", "thu", "fri"},
		})
	}
	return entries
}

// applyDefaults fills zero values after a successful parse.
func (c *Config) applyDefaults() {
	if c.Telegram.PollTimeout == "" {
		c.Telegram.PollTimeout = "10s"
	}
	if c.Backend.Timeout == "" {
		c.Backend.Timeout = "10s"
	}
	if c.Feed.HandshakeTimeout == "" {
		c.Feed.HandshakeTimeout = "10s"
	}
	if c.Feed.ReconnectMin == "" {
		c.Feed.ReconnectMin = "1s"
	}
	if c.Feed.ReconnectMax == "" {
		c.Feed.ReconnectMax = "30s"
	}
	if c.Feed.QueueSize <= 0 {
		c.Feed.QueueSize = 256
	}
	if len(c.Schedule.Entries) == 0 {
		c.Schedule.Entries = DefaultScheduleEntries()
	}
	if c.Notify.RatePerSec <= 0 {
		c.Notify.RatePerSec = 20
	}
	if c.Notify.SendTimeout == "" {
		c.Notify.SendTimeout = "10s"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "none"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Health.Addr == "" {
		c.Health.Addr = "127.0.0.1:8090"
	}
}
