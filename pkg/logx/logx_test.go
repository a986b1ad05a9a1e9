package logx

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestFileSinkWritesLeveledEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	svc, log := New(Config{
		Level: "debug",
		File:  FileConfig{Enabled: true, Path: path},
	})
	defer svc.Close()

	log.Info("hello", String("k", "v"))
	log.With(String("comp", "test")).Warn("careful", Int("n", 3))
	log.Debug("fine")

	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}

	var lines []map[string]any
	dec := json.NewDecoder(bytes.NewReader(b))
	for dec.More() {
		var m map[string]any
		if err := dec.Decode(&m); err != nil {
			t.Fatalf("decode log line: %v", err)
		}
		lines = append(lines, m)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 log lines, got %d", len(lines))
	}
	if lines[0]["level"] != "info" || lines[0]["message"] != "hello" || lines[0]["k"] != "v" {
		t.Fatalf("first line = %v", lines[0])
	}
	if lines[1]["level"] != "warn" || lines[1]["comp"] != "test" || lines[1]["n"] != float64(3) {
		t.Fatalf("second line = %v", lines[1])
	}
	if lines[2]["level"] != "debug" {
		t.Fatalf("third line = %v", lines[2])
	}
}

func TestLevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	svc, log := New(Config{
		Level: "warn",
		File:  FileConfig{Enabled: true, Path: path},
	})

	log.Debug("dropped")
	log.Info("dropped too")
	log.Error("kept", Err(os.ErrNotExist))

	_ = svc.Close()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("expected exactly one JSON line, got %q: %v", b, err)
	}
	if m["level"] != "error" || m["message"] != "kept" || m["err"] == nil {
		t.Fatalf("line = %v", m)
	}
}

func TestZeroLoggerIsSilent(t *testing.T) {
	t.Parallel()
	var log Logger
	log.Info("nothing happens") // must not panic
	Nop().Error("still nothing")
}
