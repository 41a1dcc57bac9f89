// Package app wires the bot together and owns its lifecycle.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"recobot/internal/commands"
	"recobot/internal/config"
	"recobot/internal/dispatch"
	"recobot/internal/metrics"
	"recobot/internal/ops"
	"recobot/internal/registry"
	rtsup "recobot/internal/runtime/supervisor"
	"recobot/internal/schedule"
	"recobot/internal/task/engine"
	"recobot/internal/task/scheduler"
	kit "recobot/internal/transport"
	telegram "recobot/internal/transport/telegram/adapter"
	"recobot/internal/transport/telegram/router"
	logx "recobot/pkg/logx"
)

type StopReason string

const (
	StopSignal     StopReason = "signal"
	StopFatalError StopReason = "fatal_error"
)

type App struct {
	cfgm *config.Manager
	sup  *rtsup.Supervisor

	log  logx.Logger
	logs *logx.Service
	core *Core

	adapter *telegram.Adapter
	extra   []*telegram.Adapter

	engine     *engine.Service
	sched      *scheduler.Service
	refresher  *schedule.Refresher
	dispatcher *dispatch.Dispatcher
	ctrl       *commands.Controller
	cmdm       *router.CommandManager
	ops        *ops.Server

	updates chan kit.Update
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath, logx.Nop())
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogging(cfg), nil)
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	pollTimeout := config.DurationOr(cfg.Telegram.PollTimeout, 10*time.Second)
	ad, err := telegram.New(telegram.Config{Name: "telegram", Token: cfg.Telegram.Token, PollTimeout: pollTimeout},
		log.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}
	logSvc.SetSender(ad.LogSender())

	endpoints := []dispatch.Endpoint{ad}
	var extra []*telegram.Adapter
	for i, tok := range cfg.Delivery.ExtraBotTokens {
		name := fmt.Sprintf("telegram.extra.%d", i+1)
		ex, err := telegram.New(telegram.Config{Name: name, Token: tok, SendOnly: true},
			log.With(logx.String("comp", name)))
		if err != nil {
			return nil, fmt.Errorf("delivery.extra_bot_tokens[%d]: %w", i, err)
		}
		extra = append(extra, ex)
		endpoints = append(endpoints, ex)
	}

	core, err := OpenCore(cfg, log)
	if err != nil {
		return nil, err
	}

	eng := engine.New(mapEngine(cfg), log.With(logx.String("comp", "taskengine")))
	sched := scheduler.New(mapScheduler(cfg), eng, log.With(logx.String("comp", "scheduler")))
	disp := dispatch.New(dispatch.Deps{
		Subscriptions: core.Subscriptions,
		Sets:          core.Sets,
		Windows:       core.Windows,
		Recommender:   core.Recommender,
		Endpoints:     endpoints,
	}, mapDispatch(cfg), log.With(logx.String("comp", "dispatch")))
	refresher := schedule.New(sched, core.Subscriptions, disp.Fire, mapRefresher(cfg), log.With(logx.String("comp", "refresher")))

	ctrl := commands.NewController(commands.Deps{
		Sets:          core.Sets,
		Subscriptions: core.Subscriptions,
		Windows:       core.Windows,
		Refresher:     refresher,
		Recommender:   core.Recommender,
		Jobs:          sched,
		Audit:         core.Store,
	}, mapCommands(cfg), log.With(logx.String("comp", "commands")))
	cmdm := router.NewCommandManager(log.With(logx.String("comp", "router")), ad, cfg.Telegram.OwnerUserIDs,
		commands.RouterOptions(cfg.TaskEngine.Workers))

	a := &App{
		cfgm:       cfgm,
		log:        log.With(logx.String("comp", "app")),
		logs:       logSvc,
		core:       core,
		adapter:    ad,
		extra:      extra,
		engine:     eng,
		sched:      sched,
		refresher:  refresher,
		dispatcher: disp,
		ctrl:       ctrl,
		cmdm:       cmdm,
		updates:    make(chan kit.Update, 256),
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.MustRegister(reg)
	a.ops = ops.New(mapOps(cfg), ops.Deps{Gatherer: reg, Triggers: a.triggerTable, Health: a.health},
		log.With(logx.String("comp", "ops")))

	cfgm.SetValidator(a.validateReload)
	return a, nil
}

// Done is closed when the app context ends (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.NewSupervisor(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))
	c := a.sup.Context()

	if err := a.core.Load(c); err != nil {
		a.log.Warn("documents loaded with errors; defaults in use", logx.Err(err))
	}

	a.engine.Start(c)
	a.sched.Start(c)
	rep := a.refresher.Refresh(c)
	a.log.Info("triggers installed", logx.Int("installed", rep.Installed), logx.Int("skipped", len(rep.Skipped)))

	a.cmdm.SetRegistry(c, a.ctrl.Routes())
	if err := a.adapter.Start(c, a.updates); err != nil {
		return err
	}

	a.sup.Go("commands.dispatch", func(c context.Context) error {
		return a.cmdm.DispatchLoop(c, a.updates)
	})
	a.sup.Go("config.watch", a.cfgm.Watch)
	a.sup.Go0("config.reload", a.reloadLoop)
	a.sup.Go("registry.watch", func(c context.Context) error {
		return registry.Watch(c, a.core.Store, a.core.Windows, func(c context.Context) {
			if err := a.ctrl.ReloadAll(c); err != nil {
				a.log.Warn("document reload after edit failed", logx.Err(err))
			}
		}, a.log.With(logx.String("comp", "registry.watch")))
	})
	a.sup.Go("ops.http", a.ops.Run)

	a.log.Info("app started",
		logx.Int("endpoints", 1+len(a.extra)),
		logx.String("timezone", a.sched.Location().String()))
	return nil
}

func (a *App) reloadLoop(c context.Context) {
	sub := a.cfgm.Subscribe(4)
	defer a.cfgm.Unsubscribe(sub)
	last := a.cfgm.Get()
	for {
		select {
		case <-c.Done():
			return
		case next, ok := <-sub:
			if !ok {
				return
			}
			a.applyConfig(c, last, next)
			last = next
		}
	}
}

// applyConfig pushes the live-reloadable settings to every component.
func (a *App) applyConfig(ctx context.Context, prev, next *config.Config) {
	sections, fields := config.Summarize(prev, next)
	if len(sections) == 0 {
		a.log.Debug("config reload carried no effective change")
		return
	}
	if config.NeedsRestart(prev, next) {
		a.log.Warn("some changes take effect only after a restart", logx.String("changed", strings.Join(sections, ",")))
	}

	a.logs.Apply(mapLogging(next))
	a.cmdm.SetOwners(next.Telegram.OwnerUserIDs)
	a.engine.Apply(ctx, mapEngine(next))
	a.sched.Apply(mapScheduler(next))
	a.refresher.Apply(mapRefresher(next))
	a.core.Recommender.Apply(mapRecommender(next))
	a.dispatcher.Apply(mapDispatch(next))
	a.ctrl.Apply(mapCommands(next))

	// new grace or timeout only reaches triggers on reinstall
	if prev.Scheduler != next.Scheduler || prev.TaskEngine.DefaultTimeout != next.TaskEngine.DefaultTimeout {
		a.refresher.Refresh(ctx)
	}
	a.log.Info("config applied", append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, fields...)...)
}

// validateReload rejects a config whose default set is unknown.
func (a *App) validateReload(_ context.Context, cfg *config.Config) error {
	name := strings.TrimSpace(cfg.Reco.DefaultSet)
	if name == "" {
		return nil
	}
	if _, ok := a.core.Sets.Get(name); !ok {
		return fmt.Errorf("reco.default_set: unknown recommendation set %q", name)
	}
	return nil
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	a.sup.Cancel()

	a.step(ctx, "scheduler", 2*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	a.step(ctx, "taskengine", 3*time.Second, func(c context.Context) error { a.engine.Stop(c); return nil })
	a.step(ctx, "adapter", 2*time.Second, a.adapter.Stop)
	for _, ex := range a.extra {
		a.step(ctx, ex.Name(), time.Second, ex.Stop)
	}
	a.step(ctx, "supervisor", 3*time.Second, a.sup.Wait)
	a.step(ctx, "storage", time.Second, func(context.Context) error { return a.core.Close() })

	a.log.Info("stopped")
	return a.logs.Close()
}

// step runs one shutdown step bounded by max and by ctx. A step that
// overruns is abandoned and logged when it finally returns.
func (a *App) step(ctx context.Context, name string, max time.Duration, fn func(context.Context) error) {
	start := time.Now()
	stepCtx, cancel := context.WithTimeout(ctx, max)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in stop step %s: %v", name, r)
			}
		}()
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	case <-stepCtx.Done():
		a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
		go func() {
			err := <-done
			a.log.Info("stop step finished after deadline", logx.String("name", name), logx.Err(err), logx.Duration("took", time.Since(start)))
		}()
	}
}
