// Package commands implements the /reco operator commands. Every method
// returns the single reply text for the caller.
package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"recobot/internal/dispatch"
	"recobot/internal/metrics"
	"recobot/internal/reco"
	"recobot/internal/registry"
	"recobot/internal/schedule"
	"recobot/internal/storage"
	"recobot/internal/task/scheduler"
	logx "recobot/pkg/logx"
)

// Caller identifies who issued a command and where.
type Caller struct {
	Tenant string
	UserID int64
	Admin  bool
	// Username is recorded in the audit trail only.
	Username string
}

type Config struct {
	DefaultCount int
	MaxCount     int
	DefaultSet   string
}

func (c Config) withDefaults() Config {
	if c.DefaultCount <= 0 {
		c.DefaultCount = 3
	}
	if c.MaxCount <= 0 {
		c.MaxCount = 20
	}
	if c.DefaultSet == "" {
		c.DefaultSet = registry.DefaultSetName
	}
	return c
}

type AuditLog interface {
	AppendAudit(ctx context.Context, e storage.AuditEntry) error
}

type JobLister interface {
	Snapshot() scheduler.Snapshot
}

type Deps struct {
	Sets          *registry.SetRegistry
	Subscriptions *registry.SubscriptionRegistry
	Windows       *registry.WindowRegistry
	Refresher     *schedule.Refresher
	Recommender   *reco.Recommender
	Jobs          JobLister
	Audit         AuditLog
}

type Controller struct {
	deps Deps
	cfg  atomic.Pointer[Config]
	log  logx.Logger
}

func NewController(deps Deps, cfg Config, log logx.Logger) *Controller {
	if log.IsZero() {
		log = logx.Nop()
	}
	c := &Controller{deps: deps, log: log}
	c.Apply(cfg)
	return c
}

func (c *Controller) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	c.cfg.Store(&cfg)
}

// Now samples immediately from the caller's subscribed set, falling back to
// the default set.
func (c *Controller) Now(ctx context.Context, who Caller, args []string) string {
	cfg := c.cfg.Load()
	n := cfg.DefaultCount
	if len(args) > 0 {
		if v, err := strconv.Atoi(args[0]); err == nil && v > 0 {
			n = min(v, cfg.MaxCount)
		}
	}

	name := cfg.DefaultSet
	if sub, ok := c.deps.Subscriptions.Get(who.Tenant); ok {
		name = sub.SetName
	}
	set, ok := c.deps.Sets.Get(name)
	if !ok && name != cfg.DefaultSet {
		set, ok = c.deps.Sets.Get(cfg.DefaultSet)
	}
	if !ok {
		return fmt.Sprintf("❌ 推荐配置 '%s' 不存在，请先使用 /reco create 创建。", cfg.DefaultSet)
	}

	res, err := c.deps.Recommender.Recommend(ctx, set.Sources, n)
	metrics.Recommendations.WithLabelValues("command", dispatch.Outcome(err)).Inc()
	if err != nil && res.Text == "" {
		c.log.Warn("recommendation failed", logx.String("set", set.Name), logx.Err(err))
		return textFailed
	}
	return res.Text
}

func (c *Controller) List() string {
	var b strings.Builder
	b.WriteString(textListHeader)
	sets := c.deps.Sets.List()
	if len(sets) == 0 {
		b.WriteString("\n（空）")
	}
	for _, s := range sets {
		fmt.Fprintf(&b, "\n- %s (创建者:%s)", s.Name, creatorLabel(s.Creator))
	}
	return b.String()
}

// Create registers a new set owned by the caller. Arguments after the name
// are joined, so "a|2, b" and "a|2,b" are the same list.
func (c *Controller) Create(ctx context.Context, who Caller, args []string) (reply string) {
	if len(args) < 2 {
		return textCreateFmt
	}
	name := args[0]
	start := time.Now()
	var err error
	defer func() { c.audit(ctx, who, "create", name, err, start) }()

	specs, invalid := reco.ParseLocatorList(strings.Join(args[1:], ","))
	_, err = c.deps.Sets.Create(ctx, name, strconv.FormatInt(who.UserID, 10), specs)
	switch {
	case errors.Is(err, registry.ErrDuplicateSetName):
		return fmt.Sprintf("❌ 推荐名 '%s' 已存在。", name)
	case errors.Is(err, reco.ErrInvalidLocator):
		return textNoSource
	case errors.Is(err, registry.ErrMalformedDocument):
		return textDocBroken
	case err != nil:
		c.log.Error("create set failed", logx.String("set", name), logx.Err(err))
		return textFailed
	}
	reply = fmt.Sprintf("✅ 推荐配置 '%s' 已创建。", name)
	if len(invalid) > 0 {
		reply += "\n⚠️ 已忽略无法识别的来源：" + strings.Join(invalid, ", ")
	}
	return reply
}

func (c *Controller) Delete(ctx context.Context, who Caller, args []string) string {
	if len(args) < 1 {
		return textDeleteFmt
	}
	name := args[0]
	start := time.Now()
	err := c.deps.Sets.Delete(ctx, name, strconv.FormatInt(who.UserID, 10), who.Admin)
	c.audit(ctx, who, "del", name, err, start)

	switch {
	case errors.Is(err, registry.ErrUnknownSetName):
		return textNotFound
	case errors.Is(err, registry.ErrPermissionDenied):
		set, _ := c.deps.Sets.Get(name)
		return fmt.Sprintf("❌ 推荐名 '%s' 由 %s 创建，你无权删除。", name, creatorLabel(set.Creator))
	case errors.Is(err, registry.ErrMalformedDocument):
		return textDocBroken
	case err != nil:
		c.log.Error("delete set failed", logx.String("set", name), logx.Err(err))
		return textFailed
	}
	return "✅ 已删除推荐配置: " + name
}

// Subscribe creates or replaces the caller tenant's subscription:
// sub [name] [mode:value] [count].
func (c *Controller) Subscribe(ctx context.Context, who Caller, args []string) string {
	if !who.Admin {
		return textDenied
	}
	name, trigger, count := registry.DefaultSetName, "cron:8,12,18", 3
	if len(args) > 0 {
		name = args[0]
	}
	if len(args) > 1 {
		trigger = args[1]
	}
	if len(args) > 2 {
		if v, err := strconv.Atoi(args[2]); err == nil && v > 0 {
			count = v
		}
	}

	if _, ok := c.deps.Sets.Get(name); !ok {
		return fmt.Sprintf("❌ 推荐配置 '%s' 不存在，请先使用 /reco create 创建。", name)
	}
	spec, err := reco.ParseTriggerText(trigger)
	if err != nil {
		return "❌ 定时格式错误：" + trigger + "\n示例：cron:8,12:30,18 或 interval:90"
	}

	start := time.Now()
	replaced, err := c.deps.Subscriptions.Subscribe(ctx, registry.Subscription{
		Tenant:       who.Tenant,
		Enabled:      true,
		SetName:      name,
		TriggerMode:  spec.Mode,
		TriggerValue: spec.Value,
		OutputCount:  count,
	})
	c.audit(ctx, who, "sub", name, err, start)
	if errors.Is(err, registry.ErrMalformedDocument) {
		return textDocBroken
	}
	if err != nil {
		c.log.Error("subscribe failed", logx.String("tenant", who.Tenant), logx.Err(err))
		return textFailed
	}
	c.deps.Refresher.Refresh(ctx)

	head := "✅ 订阅成功！"
	if replaced {
		head = "✅ 订阅已更新！"
	}
	reply := fmt.Sprintf("%s\n推荐配置：%s\n定时：%s(%s)\n每轮数量：%d", head, name, spec.Mode, spec.Value, count)
	if len(spec.Skipped) > 0 {
		reply += "\n⚠️ 已忽略无效时间：" + strings.Join(spec.Skipped, ", ")
	}
	return reply
}

func (c *Controller) Unsubscribe(ctx context.Context, who Caller) string {
	start := time.Now()
	err := c.deps.Subscriptions.Unsubscribe(ctx, who.Tenant)
	c.audit(ctx, who, "unsub", who.Tenant, err, start)
	switch {
	case errors.Is(err, registry.ErrNotSubscribed):
		return textNotSubbed
	case errors.Is(err, registry.ErrMalformedDocument):
		return textDocBroken
	case err != nil:
		c.log.Error("unsubscribe failed", logx.String("tenant", who.Tenant), logx.Err(err))
		return textFailed
	}
	c.deps.Refresher.Refresh(ctx)
	return textUnsubOK
}

// Reload re-reads every document and rebuilds all triggers. Malformed
// documents are reported but do not stop the rebuild.
func (c *Controller) Reload(ctx context.Context, who Caller) string {
	if !who.Admin {
		return textDenied
	}
	start := time.Now()
	err := c.ReloadAll(ctx)
	c.audit(ctx, who, "reload", "", err, start)
	if err != nil {
		return textReloaded + "\n⚠️ " + err.Error()
	}
	return textReloaded
}

// ReloadAll is Reload without the permission check, for file watchers.
func (c *Controller) ReloadAll(ctx context.Context) error {
	var errs []error
	if _, err := c.deps.Sets.Load(ctx); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.deps.Subscriptions.Load(ctx); err != nil {
		errs = append(errs, err)
	}
	if c.deps.Windows != nil {
		if _, err := c.deps.Windows.Load(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.deps.Refresher.Refresh(ctx)
	err := errors.Join(errs...)
	if err != nil {
		c.log.Warn("reload finished with errors", logx.Err(err))
	}
	return err
}

func (c *Controller) Help() string { return textHelp }

// Jobs lists installed triggers with their next activation.
func (c *Controller) Jobs(who Caller) string {
	if !who.Admin {
		return textDenied
	}
	keys := c.deps.Refresher.Keys()
	if len(keys) == 0 {
		return textNoJobs
	}
	next := map[string]time.Time{}
	if c.deps.Jobs != nil {
		for _, s := range c.deps.Jobs.Snapshot().Schedules {
			next[s.Name] = s.Next
		}
	}
	var b strings.Builder
	b.WriteString(textJobsHeader)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n- %s", k)
		if t := next[k.String()]; !t.IsZero() {
			fmt.Fprintf(&b, " 下次 %s", t.Format("2006-01-02 15:04"))
		}
	}
	return b.String()
}

func (c *Controller) audit(ctx context.Context, who Caller, cmd, target string, err error, start time.Time) {
	if c.deps.Audit == nil {
		return
	}
	e := storage.AuditEntry{
		At:      start,
		ActorID: who.UserID,
		Actor:   who.Username,
		Tenant:  who.Tenant,
		Command: cmd,
		Target:  target,
		OK:      err == nil,
		TookMS:  time.Since(start).Milliseconds(),
	}
	if err != nil {
		e.Error = err.Error()
	}
	if aerr := c.deps.Audit.AppendAudit(ctx, e); aerr != nil {
		c.log.Warn("audit append failed", logx.String("cmd", cmd), logx.Err(aerr))
	}
}

func creatorLabel(creator string) string {
	if creator == "" {
		return "admin"
	}
	return creator
}
