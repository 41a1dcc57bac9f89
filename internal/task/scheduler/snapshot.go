package scheduler

import (
	"slices"
	"strings"
)

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{Timezone: s.loc.String(), Running: s.c != nil}
	for _, d := range s.defs {
		it := ScheduleInfo{Name: d.name, Spec: d.spec()}
		if d.interval != nil {
			it.Spread = d.interval.spread
		}
		if s.c != nil && d.entryID != 0 {
			e := s.c.Entry(d.entryID)
			it.Next, it.Prev = e.Next, e.Prev
		}
		snap.Schedules = append(snap.Schedules, it)
	}
	eng := s.engine
	s.mu.Unlock()

	slices.SortFunc(snap.Schedules, func(a, b ScheduleInfo) int { return strings.Compare(a.Name, b.Name) })
	if eng != nil {
		snap.Engine = eng.Snapshot()
	}
	return snap
}
