package app

import (
	"errors"
	"time"

	rtsup "recobot/internal/runtime/supervisor"
	"recobot/internal/schedule"
	"recobot/internal/task/scheduler"
)

// TriggerRow is one line of the /triggers table.
type TriggerRow struct {
	Key    string        `json:"key"`
	Tenant string        `json:"tenant"`
	Spec   string        `json:"spec,omitempty"`
	Spread time.Duration `json:"spread,omitempty"`
	Next   time.Time     `json:"next,omitzero"`
	Prev   time.Time     `json:"prev,omitzero"`
}

// TriggerRows joins the refresher's handles with the scheduler's entries.
func TriggerRows(keys []schedule.TriggerKey, snap scheduler.Snapshot) []TriggerRow {
	byName := make(map[string]scheduler.ScheduleInfo, len(snap.Schedules))
	for _, s := range snap.Schedules {
		byName[s.Name] = s
	}
	rows := make([]TriggerRow, 0, len(keys))
	for _, k := range keys {
		row := TriggerRow{Key: k.String(), Tenant: k.Tenant}
		if info, ok := byName[k.String()]; ok {
			row.Spec, row.Spread, row.Next, row.Prev = info.Spec, info.Spread, info.Next, info.Prev
		}
		rows = append(rows, row)
	}
	return rows
}

func (a *App) triggerTable() any {
	return TriggerRows(a.refresher.Keys(), a.sched.Snapshot())
}

func (a *App) health() (map[string]any, error) {
	snap := a.sched.Snapshot()
	out := map[string]any{
		"timezone":  snap.Timezone,
		"scheduler": snap.Running,
		"triggers":  len(a.refresher.Keys()),
		"engine": map[string]any{
			"workers":   snap.Engine.Workers,
			"in_flight": snap.Engine.InFlight,
			"queue_len": snap.Engine.QueueLen,
			"dropped":   snap.Engine.Dropped,
			"misfires":  snap.Engine.Misfires,
		},
	}
	out["routines"] = Routines(map[string]*rtsup.Supervisor{
		"app":        a.sup,
		"taskengine": a.engine.Supervisor(),
		"router":     a.cmdm.Supervisor(),
		"telegram":   a.adapter.Supervisor(),
	})
	if a.sup != nil {
		if err := a.sup.Err(); err != nil {
			return out, err
		}
	}
	if !snap.Running {
		return out, errors.New("scheduler not running")
	}
	return out, nil
}

// Routines collects the routine stats of every running supervisor by owner.
func Routines(sups map[string]*rtsup.Supervisor) map[string][]rtsup.RoutineStats {
	out := make(map[string][]rtsup.RoutineStats, len(sups))
	for name, sup := range sups {
		if sup != nil {
			out[name] = sup.Snapshot().Routines
		}
	}
	return out
}
