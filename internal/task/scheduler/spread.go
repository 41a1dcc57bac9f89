package scheduler

import (
	"hash/fnv"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

const maxStartupSpread = 30 * time.Second

// intervalSchedule delays only the first activation, then follows base. It
// remembers the last two activation times handed to cron so a firing can
// recover the time it was due at.
type intervalSchedule struct {
	base   cron.Schedule
	first  time.Time
	spread time.Duration

	mu         sync.Mutex
	prev, next time.Time
}

func (s *intervalSchedule) Next(t time.Time) time.Time {
	n := s.first
	if !t.Before(s.first) {
		n = s.base.Next(t)
	}
	s.mu.Lock()
	s.prev, s.next = s.next, n
	s.mu.Unlock()
	return n
}

// due returns the latest activation at or before now. cron computes the
// following activation right after starting a job, so both slots are checked.
func (s *intervalSchedule) due(now time.Time) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range []time.Time{s.next, s.prev} {
		if !t.IsZero() && !t.After(now) {
			return t, true
		}
	}
	return time.Time{}, false
}

var spreadSeq atomic.Uint64

func newIntervalSchedule(every time.Duration, now time.Time, tag string) *intervalSchedule {
	spreadMax := min(every, maxStartupSpread)
	seed := now.UnixNano() ^ int64(spreadSeq.Add(1)) ^ int64(fnv64a(tag))
	jitter := time.Duration(rand.New(rand.NewSource(seed)).Int63n(int64(spreadMax)))
	return &intervalSchedule{base: cron.Every(every), first: now.Add(every + jitter), spread: jitter}
}

func fnv64a(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
