package engine

import (
	"context"
	"sync"
	"time"
)

// Config controls the task execution engine.
type Config struct {
	Enabled   bool
	Workers   int
	QueueSize int

	// DefaultTimeout applies when Task.Timeout is 0.
	DefaultTimeout time.Duration

	// MaxQueueDelay drops tasks that waited longer than this in the queue.
	// 0 disables the check.
	MaxQueueDelay time.Duration

	HistorySize int
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.HistorySize <= 0 {
		c.HistorySize = 200
	}
	return c
}

type OverlapPolicy int

const (
	OverlapAllow OverlapPolicy = iota
	// OverlapSkipIfRunning skips a task while a previous run of the same name
	// is queued or running.
	OverlapSkipIfRunning
)

// Task is one unit of work.
//
// Scheduled and Grace implement misfire handling: when a task that was due
// at Scheduled only gets a worker after Scheduled+Grace, it is skipped for
// this occurrence instead of running late.
type Task struct {
	ID      string
	Name    string
	Timeout time.Duration
	Run     func(ctx context.Context) error
	Overlap OverlapPolicy

	Scheduled time.Time
	Grace     time.Duration
}

// RunState counts queued plus running instances of one task name.
type RunState struct {
	mu       sync.Mutex
	inflight int
}

func (s *RunState) tryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight > 0 {
		return false
	}
	s.inflight++
	return true
}

func (s *RunState) release() {
	s.mu.Lock()
	if s.inflight > 0 {
		s.inflight--
	}
	s.mu.Unlock()
}

// Outcome labels how a task ended.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeFailed  Outcome = "failed"
	OutcomeMisfire Outcome = "misfire"
	OutcomeStale   Outcome = "stale"
	OutcomeDropped Outcome = "queue_full"
	OutcomeSkipped Outcome = "overlap_skip"
)

type HistoryItem struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Scheduled  time.Time     `json:"scheduled,omitempty"`
	Started    time.Time     `json:"started"`
	QueueDelay time.Duration `json:"queue_delay"`
	Duration   time.Duration `json:"duration"`
	Outcome    Outcome       `json:"outcome"`
	Error      string        `json:"error,omitempty"`
}

type Snapshot struct {
	Enabled  bool          `json:"enabled"`
	Workers  int           `json:"workers"`
	QueueLen int           `json:"queue_len"`
	QueueCap int           `json:"queue_cap"`
	InFlight int           `json:"in_flight"`
	Dropped  uint64        `json:"dropped"`
	Misfires uint64        `json:"misfires"`
	History  []HistoryItem `json:"history"`
}
