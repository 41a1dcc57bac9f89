package engine

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	logx "recobot/pkg/logx"
)

func (s *Service) worker(ctx context.Context, stopCh <-chan struct{}, queue <-chan queuedTask) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case qt := <-queue:
			s.inFlight.Add(1)
			s.execOne(ctx, qt)
			s.inFlight.Add(-1)
		}
	}
}

func (s *Service) execOne(ctx context.Context, qt queuedTask) {
	if qt.state != nil {
		defer qt.state.release()
	}
	start := time.Now()
	queueDelay := max(start.Sub(qt.enqueuedAt), 0)

	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()

	item := HistoryItem{ID: qt.task.ID, Name: qt.task.Name, Scheduled: qt.task.Scheduled, Started: start, QueueDelay: queueDelay}

	if t := qt.task; !t.Scheduled.IsZero() && t.Grace > 0 {
		if late := start.Sub(t.Scheduled); late > t.Grace {
			s.misfires.Add(1)
			item.Outcome = OutcomeMisfire
			s.record(cfg, item)
			s.log.Warn("task misfired; skipping this occurrence",
				logx.String("task", t.Name), logx.Duration("late", late), logx.Duration("grace", t.Grace))
			return
		}
	}
	if cfg.MaxQueueDelay > 0 && queueDelay > cfg.MaxQueueDelay {
		s.dropped.Add(1)
		item.Outcome = OutcomeStale
		s.record(cfg, item)
		s.log.Warn("task dropped: stale queue", logx.String("task", qt.task.Name), logx.Duration("queue_delay", queueDelay))
		return
	}

	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if qt.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, qt.timeout)
	}
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
				s.log.Error("task panicked", logx.String("task", qt.task.Name), logx.Any("panic", r), logx.Stack(string(debug.Stack())))
			}
		}()
		return qt.task.Run(runCtx)
	}()
	cancel()

	item.Duration = time.Since(start)
	if err != nil {
		item.Outcome, item.Error = OutcomeFailed, err.Error()
		s.log.Warn("task failed", logx.String("task", qt.task.Name), logx.Err(err), logx.Duration("dur", item.Duration))
	} else {
		item.Outcome = OutcomeOK
		s.log.Debug("task completed", logx.String("task", qt.task.Name), logx.Duration("queue_delay", queueDelay), logx.Duration("dur", item.Duration))
	}
	s.record(cfg, item)
}
