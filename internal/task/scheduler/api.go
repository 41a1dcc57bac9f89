package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"recobot/internal/task/engine"
	logx "recobot/pkg/logx"
)

// AddDaily registers job at hour:minute every day in the scheduler
// timezone. An existing schedule with the same name is replaced.
func (s *Service) AddDaily(name string, hour, minute int, opt TriggerOptions, job Job) error {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("schedule %q: invalid time %d:%d", name, hour, minute)
	}
	return s.add(&scheduleDef{name: name, kind: kindDaily, hour: hour, minute: minute, opt: opt, job: job})
}

// AddInterval registers job every interval. The first activation is spread
// by a random delay so simultaneous registrations do not fire together.
func (s *Service) AddInterval(name string, every time.Duration, opt TriggerOptions, job Job) error {
	if every <= 0 {
		return fmt.Errorf("schedule %q: interval must be positive", name)
	}
	return s.add(&scheduleDef{name: name, kind: kindInterval, every: every, opt: opt, job: job})
}

func (s *Service) add(d *scheduleDef) error {
	d.name = strings.TrimSpace(d.name)
	if d.name == "" {
		return errors.New("schedule name required")
	}
	if d.job == nil {
		return fmt.Errorf("schedule %q: job is nil", d.name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(d.name)
	s.defs[d.name] = d
	if s.c == nil {
		return nil
	}
	if err := s.addCronLocked(d); err != nil {
		delete(s.defs, d.name)
		return err
	}
	s.log.Debug("schedule registered",
		logx.String("name", d.name),
		logx.String("spec", d.spec()),
		logx.Time("next", s.c.Entry(d.entryID).Next),
	)
	return nil
}

// Remove unregisters a schedule. It reports whether the name was known.
func (s *Service) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(name)
}

// Names lists the registered schedule names.
func (s *Service) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.defs))
	for n := range s.defs {
		out = append(out, n)
	}
	return out
}

func (s *Service) removeLocked(name string) bool {
	d, ok := s.defs[name]
	if !ok {
		return false
	}
	if s.c != nil && d.entryID != 0 {
		s.c.Remove(d.entryID)
	}
	delete(s.defs, name)
	return true
}

func (s *Service) addCronLocked(d *scheduleDef) error {
	var sched cron.Schedule
	switch d.kind {
	case kindInterval:
		d.interval = newIntervalSchedule(d.every, s.now(), d.name)
		sched = d.interval
	default:
		var err error
		sched, err = cron.ParseStandard(d.spec())
		if err != nil {
			return fmt.Errorf("schedule %q: %w", d.name, err)
		}
	}
	d.entryID = s.c.Schedule(sched, cron.FuncJob(func() { s.fire(d) }))
	return nil
}

// fire enqueues one activation of d with its nominal time.
func (s *Service) fire(d *scheduleDef) {
	s.mu.Lock()
	loc, iv := s.loc, d.interval
	s.mu.Unlock()

	now := s.now().In(loc)
	at := now
	switch d.kind {
	case kindDaily:
		at = nominalDaily(now, d.hour, d.minute)
	case kindInterval:
		if iv != nil {
			if due, ok := iv.due(now); ok {
				at = due.In(loc)
			}
		}
	}
	if s.engine == nil {
		s.log.Warn("schedule fired without task engine", logx.String("schedule", d.name))
		return
	}
	job := d.job
	err := s.engine.Enqueue(engine.Task{
		Name:      d.name,
		Timeout:   d.opt.Timeout,
		Overlap:   d.opt.Overlap,
		Scheduled: at,
		Grace:     d.opt.Grace,
		Run:       func(ctx context.Context) error { return job(ctx, at) },
	})
	s.reportEnqueueError(d.name, err)
}

// nominalDaily is the latest hour:minute at or before now.
func nominalDaily(now time.Time, hour, minute int) time.Time {
	at := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if at.After(now) {
		at = at.AddDate(0, 0, -1)
	}
	return at
}

func cronDaily(hour, minute int) string {
	return fmt.Sprintf("%d %d * * *", minute, hour)
}

const enqueueWarnThrottle = 5 * time.Second

func (s *Service) reportEnqueueError(name string, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, engine.ErrOverlapSkip) {
		s.log.Debug("schedule trigger skipped", logx.String("schedule", name), logx.Err(err))
		return
	}

	now := time.Now()
	s.enqMu.Lock()
	last := s.lastEnqWarn[name]
	if !last.IsZero() && now.Sub(last) < enqueueWarnThrottle {
		s.enqMu.Unlock()
		return
	}
	s.lastEnqWarn[name] = now
	s.enqMu.Unlock()

	s.log.Warn("schedule failed to enqueue task", logx.String("schedule", name), logx.Err(err))
}
