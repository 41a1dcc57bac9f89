package schedule

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"recobot/internal/registry"
	"recobot/internal/task/scheduler"
	logx "recobot/pkg/logx"
)

type installed struct {
	daily string
	every time.Duration
	opt   scheduler.TriggerOptions
	job   scheduler.Job
}

type fakeInstaller struct {
	mu      sync.Mutex
	entries map[string]installed
	failOn  string
}

func newFakeInstaller() *fakeInstaller { return &fakeInstaller{entries: map[string]installed{}} }

func (f *fakeInstaller) AddDaily(name string, h, m int, opt scheduler.TriggerOptions, job scheduler.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name == f.failOn {
		return errors.New("boom")
	}
	f.entries[name] = installed{daily: fmt.Sprintf("%02d:%02d", h, m), opt: opt, job: job}
	return nil
}

func (f *fakeInstaller) AddInterval(name string, every time.Duration, opt scheduler.TriggerOptions, job scheduler.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[name] = installed{every: every, opt: opt, job: job}
	return nil
}

func (f *fakeInstaller) Remove(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.entries[name]
	delete(f.entries, name)
	return ok
}

func (f *fakeInstaller) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Sorted(maps.Keys(f.entries))
}

type staticSubs struct {
	mu   sync.Mutex
	list []registry.Subscription
}

func (s *staticSubs) List() []registry.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.list)
}

func (s *staticSubs) set(list ...registry.Subscription) {
	s.mu.Lock()
	s.list = list
	s.mu.Unlock()
}

func daily(tenant, value string) registry.Subscription {
	return registry.Subscription{Tenant: tenant, Enabled: true, SetName: "Default", TriggerMode: "cron", TriggerValue: value, OutputCount: 3}
}

func noFire(context.Context, string, time.Time) error { return nil }

func TestRefreshFixedTimes(t *testing.T) {
	t.Parallel()

	inst := newFakeInstaller()
	subs := &staticSubs{}
	subs.set(daily("-100", "8,12:30,18"))
	r := New(inst, subs, noFire, Config{}, logx.Nop())

	rep := r.Refresh(context.Background())
	require.Equal(t, 3, rep.Installed)
	require.Equal(t, []TriggerKey{{"-100", 0}, {"-100", 1}, {"-100", 2}}, r.Keys())

	got := map[string]string{}
	for name, e := range inst.entries {
		got[name] = e.daily
		require.Equal(t, DefaultGrace, e.opt.Grace)
	}
	require.Equal(t, map[string]string{
		"reco:-100#0": "08:00",
		"reco:-100#1": "12:30",
		"reco:-100#2": "18:00",
	}, got)

	// each trigger is removable on its own
	for _, k := range r.Keys() {
		require.True(t, inst.Remove(k.String()))
	}
	require.Empty(t, inst.names())
}

func TestRefreshIsIdempotent(t *testing.T) {
	t.Parallel()

	inst := newFakeInstaller()
	subs := &staticSubs{}
	subs.set(daily("a", "8,20"), registry.Subscription{Tenant: "b", Enabled: true, TriggerMode: "interval", TriggerValue: "30", OutputCount: 1})
	r := New(inst, subs, noFire, Config{}, logx.Nop())

	r.Refresh(context.Background())
	first, firstNames := r.Keys(), inst.names()

	rep := r.Refresh(context.Background())
	require.Equal(t, 3, rep.Removed)
	require.Equal(t, first, r.Keys())
	require.Equal(t, firstNames, inst.names())
	require.Len(t, inst.names(), 3)
	require.Equal(t, 30*time.Minute, inst.entries["reco:b#every"].every)
}

func TestRefreshAfterUnsubscribe(t *testing.T) {
	t.Parallel()

	inst := newFakeInstaller()
	subs := &staticSubs{}
	subs.set(daily("a", "8"), daily("b", "9,10"))
	r := New(inst, subs, noFire, Config{}, logx.Nop())
	r.Refresh(context.Background())

	subs.set(daily("a", "8"))
	r.Refresh(context.Background())

	for _, k := range r.Keys() {
		require.NotEqual(t, "b", k.Tenant)
	}
	require.Equal(t, []string{"reco:a#0"}, inst.names())
}

func TestRefreshSkipsMalformed(t *testing.T) {
	t.Parallel()

	inst := newFakeInstaller()
	subs := &staticSubs{}
	disabled := daily("off", "8")
	disabled.Enabled = false
	subs.set(
		daily("a", "8, 25, x:10 ,20:15"),
		registry.Subscription{Tenant: "b", Enabled: true, TriggerMode: "interval", TriggerValue: "soon"},
		disabled,
	)
	r := New(inst, subs, noFire, Config{}, logx.Nop())

	rep := r.Refresh(context.Background())
	require.Equal(t, 2, rep.Installed)
	require.Len(t, rep.Skipped, 3)
	require.Equal(t, []TriggerKey{{"a", 0}, {"a", 3}}, r.Keys())
}

func TestRefreshInstallFailureIsContained(t *testing.T) {
	t.Parallel()

	inst := newFakeInstaller()
	inst.failOn = "reco:a#1"
	subs := &staticSubs{}
	subs.set(daily("a", "8,9,10"))
	r := New(inst, subs, noFire, Config{}, logx.Nop())

	rep := r.Refresh(context.Background())
	require.Equal(t, 2, rep.Installed)
	require.Equal(t, []TriggerKey{{"a", 0}, {"a", 2}}, r.Keys())
}

func TestInstalledJobFiresForTenant(t *testing.T) {
	t.Parallel()

	inst := newFakeInstaller()
	subs := &staticSubs{}
	subs.set(daily("-42", "7"))

	var gotTenant string
	var gotAt time.Time
	fire := func(_ context.Context, tenant string, at time.Time) error {
		gotTenant, gotAt = tenant, at
		return nil
	}
	r := New(inst, subs, fire, Config{Grace: 2 * time.Minute}, logx.Nop())
	r.Refresh(context.Background())

	e := inst.entries["reco:-42#0"]
	require.Equal(t, 2*time.Minute, e.opt.Grace)
	at := time.Date(2026, 5, 1, 7, 0, 0, 0, time.UTC)
	require.NoError(t, e.job(context.Background(), at))
	require.Equal(t, "-42", gotTenant)
	require.Equal(t, at, gotAt)
}

func TestPlanDescribe(t *testing.T) {
	t.Parallel()

	plan, skipped := Plan([]registry.Subscription{
		daily("x", "6:05"),
		{Tenant: "y", Enabled: true, TriggerMode: "interval", TriggerValue: "90"},
	})
	require.Empty(t, skipped)
	require.Len(t, plan, 2)
	require.Equal(t, "daily 06:05", plan[0].Describe())
	require.Equal(t, "every 1h30m0s", plan[1].Describe())
}
