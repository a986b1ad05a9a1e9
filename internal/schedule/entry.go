package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Entry is one validated schedule slot.
type Entry struct {
	Name    string
	Hour    int
	Minute  int
	Days    []time.Weekday
	Message string
}

// TriggerName labels dispatches caused by this entry. Unnamed entries
// use their HH:MM slot, so logs read "trigger=07:35".
func (e Entry) TriggerName() string {
	if e.Name != "" {
		return e.Name
	}
	return fmt.Sprintf("%02d:%02d", e.Hour, e.Minute)
}

// cronSpec renders the entry as a five-field cron spec, e.g.
// "35 7 * * mon,tue,wed,thu,fri".
func (e Entry) cronSpec() string {
	days := "*"
	if len(e.Days) > 0 {
		names := make([]string, 0, len(e.Days))
		for _, d := range e.Days {
			names = append(names, dayNames[d])
		}
		days = strings.Join(names, ",")
	}
	return fmt.Sprintf("%d %d * * %s", e.Minute, e.Hour, days)
}

var dayNames = map[time.Weekday]string{
	time.Sunday:    "sun",
	time.Monday:    "mon",
	time.Tuesday:   "tue",
	time.Wednesday: "wed",
	time.Thursday:  "thu",
	time.Friday:    "fri",
	time.Saturday:  "sat",
}

var dayByName = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// ParseEntry validates a raw config entry.
func ParseEntry(name, at string, days []string, message string) (Entry, error) {
	h, m, err := parseHHMM(at)
	if err != nil {
		return Entry{}, err
	}
	wd, err := parseDays(days)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Name: name, Hour: h, Minute: m, Days: wd, Message: message}, nil
}

func parseHHMM(s string) (hour, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}

func parseDays(days []string) ([]time.Weekday, error) {
	out := make([]time.Weekday, 0, len(days))
	seen := map[time.Weekday]bool{}
	for _, d := range days {
		wd, ok := dayByName[strings.ToLower(strings.TrimSpace(d))]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", d)
		}
		if !seen[wd] {
			seen[wd] = true
			out = append(out, wd)
		}
	}
	return out, nil
}
