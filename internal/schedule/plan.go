package schedule

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"recobot/internal/reco"
	"recobot/internal/registry"
)

// NoIndex marks the single trigger of an interval subscription.
const NoIndex = -1

const namePrefix = "reco:"

// TriggerKey identifies one installed trigger: a tenant plus the position of
// the daily time in its spec, or NoIndex for an interval.
type TriggerKey struct {
	Tenant string
	Index  int
}

// String is the schedule name handed to the installer.
func (k TriggerKey) String() string {
	if k.Index == NoIndex {
		return namePrefix + k.Tenant + "#every"
	}
	return namePrefix + k.Tenant + "#" + strconv.Itoa(k.Index)
}

func compareKeys(a, b TriggerKey) int {
	return cmp.Or(strings.Compare(a.Tenant, b.Tenant), cmp.Compare(a.Index, b.Index))
}

// PlannedTrigger is one trigger derived from a subscription.
type PlannedTrigger struct {
	Key   TriggerKey
	Daily reco.DailyTime
	Every time.Duration
}

func (p PlannedTrigger) Describe() string {
	if p.Key.Index == NoIndex {
		return fmt.Sprintf("every %s", p.Every)
	}
	return "daily " + p.Daily.String()
}

// Plan expands enabled subscriptions into triggers. Malformed specs and
// malformed fixed-time entries come back as human-readable skip notes.
func Plan(subs []registry.Subscription) (plan []PlannedTrigger, skipped []string) {
	for _, sub := range subs {
		if !sub.Enabled {
			continue
		}
		spec, err := sub.Trigger()
		for _, raw := range spec.Skipped {
			skipped = append(skipped, fmt.Sprintf("%s: bad time %q", sub.Tenant, raw))
		}
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("%s: %v", sub.Tenant, err))
			continue
		}
		switch spec.Kind {
		case reco.TriggerInterval:
			plan = append(plan, PlannedTrigger{
				Key:   TriggerKey{Tenant: sub.Tenant, Index: NoIndex},
				Every: time.Duration(spec.Minutes) * time.Minute,
			})
		default:
			for _, dt := range spec.Times {
				plan = append(plan, PlannedTrigger{Key: TriggerKey{Tenant: sub.Tenant, Index: dt.Index}, Daily: dt})
			}
		}
	}
	slices.SortFunc(plan, func(a, b PlannedTrigger) int { return compareKeys(a.Key, b.Key) })
	return plan, skipped
}
