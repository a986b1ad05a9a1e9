package schedule

import (
	"testing"
	"time"
)

func TestParseEntryVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		at      string
		days    []string
		spec    string
		trigger string
	}{
		{name: "weekday lesson", at: "07:35", days: []string{"mon", "tue", "wed", "thu", "fri"},
			spec: "35 7 * * mon,tue,wed,thu,fri", trigger: "07:35"},
		{name: "single day", at: "23:05", days: []string{"sunday"},
			spec: "5 23 * * sun", trigger: "23:05"},
		{name: "no days means every day", at: "12:00", days: nil,
			spec: "0 12 * * *", trigger: "12:00"},
		{name: "duplicate days collapse", at: "09:25", days: []string{"mon", "Mon", "mon"},
			spec: "25 9 * * mon", trigger: "09:25"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			e, err := ParseEntry("", tt.at, tt.days, "")
			if err != nil {
				t.Fatalf("ParseEntry: %v", err)
			}
			if got := e.cronSpec(); got != tt.spec {
				t.Fatalf("cronSpec = %q, want %q", got, tt.spec)
			}
			if got := e.TriggerName(); got != tt.trigger {
				t.Fatalf("TriggerName = %q, want %q", got, tt.trigger)
			}
		})
	}
}

func TestParseEntryInvalid(t *testing.T) {
	t.Parallel()
	if _, err := ParseEntry("", "24:00", nil, ""); err == nil {
		t.Fatal("expected error for hour 24")
	}
	if _, err := ParseEntry("", "0735", nil, ""); err == nil {
		t.Fatal("expected error for missing colon")
	}
	if _, err := ParseEntry("", "07:35", []string{"someday"}, ""); err == nil {
		t.Fatal("expected error for unknown weekday")
	}
}

func TestNamedTrigger(t *testing.T) {
	t.Parallel()
	e, err := ParseEntry("first-lesson", "07:35", []string{"mon"}, "")
	if err != nil {
		t.Fatalf("ParseEntry: %v", err)
	}
	if e.TriggerName() != "first-lesson" {
		t.Fatalf("TriggerName = %q", e.TriggerName())
	}
	if e.Days[0] != time.Monday {
		t.Fatalf("Days = %v", e.Days)
	}
}
