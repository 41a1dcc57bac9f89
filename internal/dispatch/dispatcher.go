// Package dispatch turns a trigger activation into a delivered recommendation.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"recobot/internal/metrics"
	"recobot/internal/reco"
	"recobot/internal/registry"
	logx "recobot/pkg/logx"
)

// Endpoint delivers text to a tenant. Several endpoints may serve the same
// tenants; the first one that accepts a delivery wins.
type Endpoint interface {
	Name() string
	Deliver(ctx context.Context, tenant, text string) error
}

type Subscriptions interface {
	Get(tenant string) (registry.Subscription, bool)
}

type Sets interface {
	Get(name string) (registry.RecommendationSet, bool)
}

type Windows interface {
	Windows() []reco.Window
}

type Config struct {
	// WindowMessages enables time-window text; when off FallbackText is
	// always used.
	WindowMessages bool
	FallbackText   string
	// DeliveryTimeout bounds each endpoint attempt.
	DeliveryTimeout time.Duration
}

type Deps struct {
	Subscriptions Subscriptions
	Sets          Sets
	Windows       Windows
	Recommender   *reco.Recommender
	Endpoints     []Endpoint
}

type Dispatcher struct {
	deps Deps
	cfg  atomic.Pointer[Config]
	log  logx.Logger
}

func New(deps Deps, cfg Config, log logx.Logger) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	d := &Dispatcher{deps: deps, log: log}
	d.Apply(cfg)
	return d
}

func (d *Dispatcher) Apply(cfg Config) {
	if cfg.FallbackText == "" {
		cfg.FallbackText = reco.DefaultThinkingText
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 15 * time.Second
	}
	d.cfg.Store(&cfg)
}

// Fire runs one activation for tenant. A missing or disabled subscription,
// or one pointing at an unknown set, is logged and ignored.
func (d *Dispatcher) Fire(ctx context.Context, tenant string, at time.Time) error {
	start := time.Now()
	log := d.log.With(logx.String("run", uuid.NewString()), logx.String("tenant", tenant))

	sub, ok := d.deps.Subscriptions.Get(tenant)
	if !ok || !sub.Enabled {
		log.Debug("trigger fired without active subscription")
		return nil
	}
	set, ok := d.deps.Sets.Get(sub.SetName)
	if !ok {
		log.Warn("subscription references unknown set", logx.String("set", sub.SetName))
		return nil
	}

	aux := d.AuxText(at)
	res, err := d.deps.Recommender.Recommend(ctx, set.Sources, sub.OutputCount)
	metrics.PoolSize.Observe(float64(res.PoolSize))
	metrics.Recommendations.WithLabelValues("trigger", Outcome(err)).Inc()
	if err != nil && res.Text == "" {
		return fmt.Errorf("recommend for %s: %w", tenant, err)
	}
	if err != nil {
		log.Warn("recommendation degraded", logx.String("set", set.Name), logx.Err(err))
	}

	endpoint, err := d.Deliver(ctx, tenant, aux, res.Text)
	metrics.Since(metrics.DispatchDuration, start)
	if err != nil {
		log.Warn("delivery failed on every endpoint; dropping", logx.Err(err))
		return err
	}
	log.Info("recommendation delivered",
		logx.String("set", set.Name),
		logx.String("endpoint", endpoint),
		logx.Int("items", len(res.Items)),
		logx.Time("nominal", at),
		logx.Duration("took", time.Since(start)),
	)
	return nil
}

// AuxText picks the window message for at, or the fallback phrase.
func (d *Dispatcher) AuxText(at time.Time) string {
	cfg := d.cfg.Load()
	if cfg.WindowMessages && d.deps.Windows != nil {
		if msg, ok := reco.PickMessage(d.deps.Recommender.NewRand(), d.deps.Windows.Windows(), at); ok {
			return msg
		}
	}
	return cfg.FallbackText
}

// Deliver sends texts in order through each endpoint until one accepts all
// of them. It returns the winning endpoint name.
func (d *Dispatcher) Deliver(ctx context.Context, tenant string, texts ...string) (string, error) {
	cfg := d.cfg.Load()
	var errs []error
	for _, ep := range d.deps.Endpoints {
		err := d.deliverAll(ctx, cfg.DeliveryTimeout, ep, tenant, texts)
		metrics.Deliveries.WithLabelValues(ep.Name(), metrics.Status(err)).Inc()
		if err == nil {
			return ep.Name(), nil
		}
		d.log.Debug("endpoint delivery failed", logx.String("endpoint", ep.Name()), logx.String("tenant", tenant), logx.Err(err))
		errs = append(errs, fmt.Errorf("%s: %w", ep.Name(), err))
	}
	if len(errs) == 0 {
		return "", fmt.Errorf("%w: no endpoints configured", reco.ErrDeliveryFailure)
	}
	return "", fmt.Errorf("%w: %w", reco.ErrDeliveryFailure, errors.Join(errs...))
}

func (d *Dispatcher) deliverAll(ctx context.Context, timeout time.Duration, ep Endpoint, tenant string, texts []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	for _, text := range texts {
		if text == "" {
			continue
		}
		cctx, cancel := context.WithTimeout(ctx, timeout)
		err := ep.Deliver(cctx, tenant, text)
		cancel()
		if err != nil {
			return err
		}
	}
	return nil
}

// Outcome labels a recommendation result for metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, reco.ErrEmptyPool):
		return "empty_pool"
	case errors.Is(err, reco.ErrNoEligibleSource):
		return "no_eligible"
	default:
		return "error"
	}
}
