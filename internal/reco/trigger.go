package reco

import (
	"fmt"
	"strconv"
	"strings"
)

type TriggerKind int

const (
	TriggerFixedTimes TriggerKind = iota
	TriggerInterval
)

const (
	ModeDaily    = "cron"
	ModeInterval = "interval"
)

// DailyTime is one entry of a fixed-times trigger. Index is the entry's
// position in the raw spec, so keys stay stable when neighbours are malformed.
type DailyTime struct {
	Index  int
	Hour   int
	Minute int
}

func (d DailyTime) String() string { return fmt.Sprintf("%02d:%02d", d.Hour, d.Minute) }

// TriggerSpec is either a set of daily times or a fixed interval in minutes.
// Mode and Value keep the raw text for persistence.
type TriggerSpec struct {
	Kind    TriggerKind
	Times   []DailyTime
	Minutes int

	Mode  string
	Value string

	// Skipped lists malformed fixed-time entries.
	Skipped []string
}

// ParseTriggerText parses "mode:value". Without a known mode prefix the whole
// text is a fixed-times value.
func ParseTriggerText(s string) (TriggerSpec, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ':'); i > 0 {
		if mode := strings.ToLower(s[:i]); isKnownMode(mode) {
			return ParseTrigger(mode, s[i+1:])
		}
	}
	return ParseTrigger(ModeDaily, s)
}

func isKnownMode(m string) bool {
	switch m {
	case ModeDaily, "daily", "times", ModeInterval:
		return true
	}
	return false
}

// ParseTrigger parses a mode and value pair.
//
// Fixed times: comma separated "H" or "H:MM". Malformed entries are kept in
// Skipped; a spec without any valid entry is rejected.
// Interval: a positive number of minutes.
func ParseTrigger(mode, value string) (TriggerSpec, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	value = strings.TrimSpace(value)
	if mode == "" {
		mode = ModeDaily
	}

	switch mode {
	case ModeDaily, "daily", "times":
		ts := TriggerSpec{Kind: TriggerFixedTimes, Mode: ModeDaily, Value: value}
		idx := 0
		for _, raw := range strings.Split(value, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			dt, ok := parseDailyTime(raw)
			if !ok {
				ts.Skipped = append(ts.Skipped, raw)
			} else {
				dt.Index = idx
				ts.Times = append(ts.Times, dt)
			}
			idx++
		}
		if len(ts.Times) == 0 {
			return ts, fmt.Errorf("%w: no valid time in %q", ErrInvalidScheduleSpec, value)
		}
		return ts, nil

	case ModeInterval:
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return TriggerSpec{Kind: TriggerInterval, Mode: ModeInterval, Value: value},
				fmt.Errorf("%w: interval must be a positive number of minutes, got %q", ErrInvalidScheduleSpec, value)
		}
		return TriggerSpec{Kind: TriggerInterval, Minutes: n, Mode: ModeInterval, Value: value}, nil

	default:
		return TriggerSpec{Mode: mode, Value: value}, fmt.Errorf("%w: unknown mode %q", ErrInvalidScheduleSpec, mode)
	}
}

func parseDailyTime(s string) (DailyTime, bool) {
	hs, ms, hasMin := strings.Cut(s, ":")
	h, err := strconv.Atoi(strings.TrimSpace(hs))
	if err != nil || h < 0 || h > 23 {
		return DailyTime{}, false
	}
	m := 0
	if hasMin {
		m, err = strconv.Atoi(strings.TrimSpace(ms))
		if err != nil || m < 0 || m > 59 {
			return DailyTime{}, false
		}
	}
	return DailyTime{Hour: h, Minute: m}, true
}

func (t TriggerSpec) String() string {
	switch t.Kind {
	case TriggerInterval:
		return fmt.Sprintf("interval(%d分钟)", t.Minutes)
	default:
		parts := make([]string, 0, len(t.Times))
		for _, d := range t.Times {
			parts = append(parts, d.String())
		}
		return "cron(" + strings.Join(parts, ",") + ")"
	}
}
