// Package schedule keeps the installed recurring triggers in line with the
// subscription registry.
package schedule

import (
	"context"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"recobot/internal/metrics"
	"recobot/internal/registry"
	"recobot/internal/task/engine"
	"recobot/internal/task/scheduler"
	logx "recobot/pkg/logx"
)

const DefaultGrace = 60 * time.Second

// Installer is the recurring-trigger primitive.
type Installer interface {
	AddDaily(name string, hour, minute int, opt scheduler.TriggerOptions, job scheduler.Job) error
	AddInterval(name string, every time.Duration, opt scheduler.TriggerOptions, job scheduler.Job) error
	Remove(name string) bool
}

type Subscriptions interface {
	List() []registry.Subscription
}

// FireFunc runs one activation for tenant at its nominal time.
type FireFunc func(ctx context.Context, tenant string, at time.Time) error

type Config struct {
	Grace   time.Duration
	Timeout time.Duration
}

// Report summarizes one refresh pass.
type Report struct {
	Removed   int
	Installed int
	Skipped   []string
}

// Refresher rebuilds every trigger from scratch on each pass. The handle
// map is the only record of what is installed.
type Refresher struct {
	inst Installer
	subs Subscriptions
	fire FireFunc
	cfg  atomic.Pointer[Config]
	log  logx.Logger

	mu      sync.Mutex
	handles map[TriggerKey]string
}

func New(inst Installer, subs Subscriptions, fire FireFunc, cfg Config, log logx.Logger) *Refresher {
	if log.IsZero() {
		log = logx.Nop()
	}
	r := &Refresher{inst: inst, subs: subs, fire: fire, log: log, handles: map[TriggerKey]string{}}
	r.Apply(cfg)
	return r
}

// Apply takes effect on the next Refresh.
func (r *Refresher) Apply(cfg Config) {
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultGrace
	}
	r.cfg.Store(&cfg)
}

// Refresh removes every installed trigger, then installs one per daily time
// or interval of each enabled subscription. Passes never interleave.
func (r *Refresher) Refresh(ctx context.Context) Report {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg := r.cfg.Load()
	opt := scheduler.TriggerOptions{Timeout: cfg.Timeout, Grace: cfg.Grace, Overlap: engine.OverlapSkipIfRunning}
	var rep Report

	for key, name := range r.handles {
		if r.inst.Remove(name) {
			rep.Removed++
		}
		delete(r.handles, key)
	}

	plan, skipped := Plan(r.subs.List())
	rep.Skipped = skipped
	for _, note := range skipped {
		r.log.Warn("trigger entry skipped", logx.String("reason", note))
	}

	for _, p := range plan {
		tenant := p.Key.Tenant
		job := func(ctx context.Context, at time.Time) error { return r.fire(ctx, tenant, at) }
		name := p.Key.String()

		var err error
		if p.Key.Index == NoIndex {
			err = r.inst.AddInterval(name, p.Every, opt, job)
		} else {
			err = r.inst.AddDaily(name, p.Daily.Hour, p.Daily.Minute, opt, job)
		}
		if err != nil {
			rep.Skipped = append(rep.Skipped, name+": "+err.Error())
			r.log.Warn("trigger install failed", logx.String("trigger", name), logx.Err(err))
			continue
		}
		r.handles[p.Key] = name
		rep.Installed++
	}

	metrics.Refreshes.Inc()
	metrics.TriggersInstalled.Set(float64(len(r.handles)))
	r.log.Info("triggers refreshed",
		logx.Int("removed", rep.Removed),
		logx.Int("installed", rep.Installed),
		logx.Int("skipped", len(rep.Skipped)),
	)
	return rep
}

// Keys returns the installed trigger keys in stable order.
func (r *Refresher) Keys() []TriggerKey {
	r.mu.Lock()
	keys := slices.Collect(maps.Keys(r.handles))
	r.mu.Unlock()
	slices.SortFunc(keys, compareKeys)
	return keys
}
