package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"recobot/internal/task/engine"
	logx "recobot/pkg/logx"
)

type Config struct {
	// Timezone is an IANA name, e.g. "Asia/Shanghai". Empty means local time.
	Timezone string
}

// Job receives the nominal activation time, which may be slightly earlier
// than the moment it actually runs.
type Job func(ctx context.Context, at time.Time) error

type TriggerOptions struct {
	Timeout time.Duration
	// Grace is the misfire tolerance. A run that cannot start within Grace
	// of its nominal time is skipped for that occurrence.
	Grace   time.Duration
	Overlap engine.OverlapPolicy
}

type scheduleKind int

const (
	kindDaily scheduleKind = iota
	kindInterval
)

type scheduleDef struct {
	name    string
	kind    scheduleKind
	hour    int
	minute  int
	every   time.Duration
	opt     TriggerOptions
	job     Job
	entryID cron.EntryID
	// interval is set while an interval schedule is installed in cron.
	interval *intervalSchedule
}

func (d *scheduleDef) spec() string {
	if d.kind == kindInterval {
		return "@every " + d.every.String()
	}
	return cronDaily(d.hour, d.minute)
}

type Service struct {
	mu     sync.Mutex
	log    logx.Logger
	cfg    Config
	loc    *time.Location
	engine *engine.Service
	now    func() time.Time

	c    *cron.Cron
	defs map[string]*scheduleDef

	enqMu       sync.Mutex
	lastEnqWarn map[string]time.Time
}

type ScheduleInfo struct {
	Name string `json:"name"`
	Spec string `json:"spec"`
	// Spread is the random delay added to an interval's first activation.
	Spread time.Duration `json:"spread,omitempty"`
	Next   time.Time     `json:"next,omitzero"`
	Prev   time.Time     `json:"prev,omitzero"`
}

type Snapshot struct {
	Timezone  string          `json:"timezone"`
	Running   bool            `json:"running"`
	Schedules []ScheduleInfo  `json:"schedules"`
	Engine    engine.Snapshot `json:"engine"`
}
