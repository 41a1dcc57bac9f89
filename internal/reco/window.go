package reco

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	logx "recobot/pkg/logx"
)

// Clock is a time of day in seconds since midnight.
type Clock int

func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

// ParseClock accepts "HH:MM" or "HH:MM:SS".
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	limits := []int{23, 59, 59}
	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("invalid time of day %q", s)
		}
		v[i] = n
	}
	return Clock(v[0]*3600 + v[1]*60 + v[2]), nil
}

func (c Clock) String() string {
	s := int(c)
	if s%60 != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", s/3600, s/60%60, s%60)
	}
	return fmt.Sprintf("%02d:%02d", s/3600, s/60%60)
}

// WindowRecord is the persisted form of a time window.
type WindowRecord struct {
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
	Messages  []string `json:"messages"`
}

// Window is a time-of-day range with its candidate messages.
// Start > End wraps past midnight.
type Window struct {
	Start    Clock
	End      Clock
	Messages []string
}

func (w Window) Contains(t Clock) bool {
	if w.Start <= w.End {
		return w.Start <= t && t < w.End
	}
	return t >= w.Start || t < w.End
}

// CompileWindows converts records, skipping malformed ones with a warning.
func CompileWindows(recs []WindowRecord, log logx.Logger) []Window {
	out := make([]Window, 0, len(recs))
	for i, r := range recs {
		start, err := ParseClock(r.StartTime)
		if err == nil {
			var end Clock
			end, err = ParseClock(r.EndTime)
			if err == nil {
				out = append(out, Window{Start: start, End: end, Messages: r.Messages})
				continue
			}
		}
		log.Warn("time window skipped", logx.Int("index", i), logx.Err(err))
	}
	return out
}

// MatchWindows returns the union of messages from every window containing t.
func MatchWindows(ws []Window, t Clock) []string {
	var out []string
	for _, w := range ws {
		if w.Contains(t) {
			out = append(out, w.Messages...)
		}
	}
	return out
}

// PickMessage picks one message uniformly from the windows matching at.
func PickMessage(rng *rand.Rand, ws []Window, at time.Time) (string, bool) {
	cands := MatchWindows(ws, ClockOf(at))
	if len(cands) == 0 {
		return "", false
	}
	return cands[rng.Intn(len(cands))], true
}

// DefaultWindows is written when no window document exists yet.
func DefaultWindows() []WindowRecord {
	return []WindowRecord{
		{StartTime: "06:00", EndTime: "10:00", Messages: []string{
			"早上好喵～来点歌叫醒耳朵吧！",
			"新的一天从好听的歌开始喵～",
		}},
		{StartTime: "10:00", EndTime: "14:00", Messages: []string{
			"午饭时间到啦，边吃边听喵～",
			"中午好喵，给你挑了几首歌～",
		}},
		{StartTime: "14:00", EndTime: "18:00", Messages: []string{
			"下午犯困了吗？听首歌提提神喵～",
		}},
		{StartTime: "18:00", EndTime: "22:00", Messages: []string{
			"晚上好喵，今天辛苦啦～",
			"晚饭后的音乐时间到了喵～",
		}},
		{StartTime: "22:00", EndTime: "02:00", Messages: []string{
			"夜深了喵，听完这几首就早点睡吧～",
			"熬夜的你也要记得休息喵～",
		}},
	}
}
