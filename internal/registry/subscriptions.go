package registry

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"recobot/internal/reco"
	"recobot/internal/storage"
	logx "recobot/pkg/logx"
)

// Subscription binds a tenant to a recommendation set and a recurring trigger.
// The trigger is kept in its textual form; it is parsed when triggers are
// installed so one bad entry never hides the rest of the subscription.
type Subscription struct {
	Tenant       string `json:"-"`
	Enabled      bool   `json:"enabled"`
	SetName      string `json:"recommendation_set_name"`
	TriggerMode  string `json:"trigger_mode"`
	TriggerValue string `json:"trigger_value"`
	OutputCount  int    `json:"output_count"`
}

// Trigger parses the stored trigger text.
func (s Subscription) Trigger() (reco.TriggerSpec, error) {
	return reco.ParseTrigger(s.TriggerMode, s.TriggerValue)
}

func (s Subscription) normalized() Subscription {
	s.SetName = strings.TrimSpace(s.SetName)
	s.TriggerMode = strings.ToLower(strings.TrimSpace(s.TriggerMode))
	if s.TriggerMode == "" {
		s.TriggerMode = reco.ModeDaily
	}
	s.TriggerValue = strings.TrimSpace(s.TriggerValue)
	if s.OutputCount < 1 {
		s.OutputCount = 1
	}
	return s
}

// SubscriptionRegistry is the durable tenant -> Subscription mapping. A tenant
// has at most one subscription; Subscribe replaces.
type SubscriptionRegistry struct {
	writeMu sync.Mutex
	doc     document

	mu   sync.RWMutex
	subs map[string]Subscription
}

func NewSubscriptionRegistry(store storage.Store, format string, log logx.Logger) *SubscriptionRegistry {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &SubscriptionRegistry{
		doc:  document{name: storage.DocSubscriptions, store: store, format: format, log: log},
		subs: map[string]Subscription{},
	}
}

// Load mirrors SetRegistry.Load; the default is an empty registry.
func (r *SubscriptionRegistry) Load(ctx context.Context) (bool, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	b, changed, err := r.doc.read(ctx)
	switch {
	case isNotFound(err):
		next := map[string]Subscription{}
		if err := r.doc.write(ctx, next); err != nil {
			return false, err
		}
		r.swap(next)
		return true, nil
	case err != nil:
		return false, err
	case !changed:
		return false, nil
	}

	var raw map[string]Subscription
	if err := r.doc.decode(b, &raw); err != nil {
		r.doc.log.Warn("subscription document rejected; starting empty", logx.Err(err))
		r.swap(map[string]Subscription{})
		return true, err
	}
	r.doc.seen(b)
	next := make(map[string]Subscription, len(raw))
	for tenant, s := range raw {
		s.Tenant = tenant
		next[tenant] = s.normalized()
	}
	r.swap(next)
	return true, nil
}

func (r *SubscriptionRegistry) swap(next map[string]Subscription) {
	r.mu.Lock()
	r.subs = next
	r.mu.Unlock()
}

func (r *SubscriptionRegistry) snapshot() map[string]Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.subs
}

func (r *SubscriptionRegistry) Get(tenant string) (Subscription, bool) {
	s, ok := r.snapshot()[tenant]
	return s, ok
}

// List returns every subscription ordered by tenant.
func (r *SubscriptionRegistry) List() []Subscription {
	cur := r.snapshot()
	out := make([]Subscription, 0, len(cur))
	for _, t := range slices.Sorted(maps.Keys(cur)) {
		out = append(out, cur[t])
	}
	return out
}

// Subscribe creates or replaces the tenant's subscription and reports whether
// one existed before. The trigger must parse to at least one usable entry.
func (r *SubscriptionRegistry) Subscribe(ctx context.Context, sub Subscription) (replaced bool, err error) {
	sub = sub.normalized()
	if strings.TrimSpace(sub.Tenant) == "" {
		return false, fmt.Errorf("subscribe: empty tenant")
	}
	if _, err := sub.Trigger(); err != nil {
		return false, err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	cur := r.snapshot()
	_, replaced = cur[sub.Tenant]
	next := maps.Clone(cur)
	next[sub.Tenant] = sub
	if err := r.doc.write(ctx, next); err != nil {
		return false, err
	}
	r.swap(next)
	return replaced, nil
}

func (r *SubscriptionRegistry) Unsubscribe(ctx context.Context, tenant string) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	cur := r.snapshot()
	if _, ok := cur[tenant]; !ok {
		return fmt.Errorf("%w: %s", ErrNotSubscribed, tenant)
	}
	next := maps.Clone(cur)
	delete(next, tenant)
	if err := r.doc.write(ctx, next); err != nil {
		return err
	}
	r.swap(next)
	return nil
}
