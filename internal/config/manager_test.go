package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.yaml", `
telegram:
  token: "123:abc"
  webapp_url: "https://desks-duels.netlify.app/"
backend:
  base_url: "http://localhost:3000"
feed:
  enabled: true
  url: "ws://localhost:3000/feed"
schedule:
  enabled: true
  entries:
    - at: "07:35"
      days: [mon, tue, wed, thu, fri]
logging:
  console: true
health:
  enabled: false
`)
	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if len(cfg.Schedule.Entries) != 1 || cfg.Schedule.Entries[0].At != "07:35" {
		t.Fatalf("unexpected entries: %+v", cfg.Schedule.Entries)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get should return the committed config")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.json", `{"telegram":{"token":"t"},"backend":{"base_url":"http://x"}}`)
	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Notify.RatePerSec != 20 || cfg.Notify.SendTimeout != "10s" {
		t.Fatalf("notify defaults missing: %+v", cfg.Notify)
	}
	if len(cfg.Schedule.Entries) != 7 {
		t.Fatalf("expected 7 default lesson slots, got %d", len(cfg.Schedule.Entries))
	}
	if cfg.Storage.Driver != "none" {
		t.Fatalf("storage driver = %q", cfg.Storage.Driver)
	}
	if cfg.Feed.HandshakeTimeout != "10s" || cfg.Feed.ReconnectMax != "30s" {
		t.Fatalf("feed defaults missing: %+v", cfg.Feed)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.json", `{"telegram":{"token":"t","bogus":1}}`)
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestDuration(t *testing.T) {
	t.Parallel()
	d, err := Duration("x", "", 5*time.Second)
	if err != nil || d != 5*time.Second {
		t.Fatalf("empty: %v %v", d, err)
	}
	d, err = Duration("x", "90s", 0)
	if err != nil || d != 90*time.Second {
		t.Fatalf("parse: %v %v", d, err)
	}
	if _, err := Duration("x", "soon", 0); err == nil {
		t.Fatal("expected error for bad duration")
	}
}
