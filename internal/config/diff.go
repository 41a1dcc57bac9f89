package config

import (
	"reflect"

	logx "recobot/pkg/logx"
)

// Summarize lists the sections that differ between two configs plus safe
// fields for the reload log line. Tokens are never included.
func Summarize(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	var (
		changed []string
		fields  []logx.Field
	)

	ot, nt := oldCfg.Telegram, newCfg.Telegram
	if ot.Token != nt.Token || ot.GroupLog != nt.GroupLog || ot.PollTimeout != nt.PollTimeout ||
		!reflect.DeepEqual(ot.OwnerUserIDs, nt.OwnerUserIDs) {
		changed = append(changed, "telegram")
		fields = append(fields,
			logx.Int("telegram.owner_count", len(nt.OwnerUserIDs)),
			logx.Bool("telegram.token_changed", ot.Token != nt.Token),
			logx.Bool("telegram.group_log_set", nt.GroupLog != ""),
		)
	}
	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		fields = append(fields,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.file", newCfg.Logging.File.Enabled),
			logx.Bool("logging.telegram", newCfg.Logging.Telegram.Enabled),
		)
	}
	if oldCfg.Scheduler != newCfg.Scheduler {
		changed = append(changed, "scheduler")
		fields = append(fields, logx.String("scheduler.timezone", newCfg.Scheduler.Timezone))
	}
	if oldCfg.TaskEngine != newCfg.TaskEngine {
		changed = append(changed, "task_engine")
		fields = append(fields, logx.Int("task_engine.workers", newCfg.TaskEngine.Workers))
	}
	if oldCfg.Catalog != newCfg.Catalog {
		changed = append(changed, "catalog")
	}
	if !reflect.DeepEqual(oldCfg.Reco, newCfg.Reco) {
		changed = append(changed, "reco")
		fields = append(fields,
			logx.Bool("reco.seeded", newCfg.Reco.Seed != nil),
			logx.Bool("reco.window_messages", newCfg.Reco.WindowMessagesEnabled()),
		)
	}
	if !reflect.DeepEqual(oldCfg.Delivery, newCfg.Delivery) {
		changed = append(changed, "delivery")
		fields = append(fields, logx.Int("delivery.extra_bots", len(newCfg.Delivery.ExtraBotTokens)))
	}
	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
	}
	if oldCfg.Ops != newCfg.Ops {
		changed = append(changed, "ops")
	}
	return changed, fields
}

// NeedsRestart reports changes that only take effect after a restart: the
// bot token, extra delivery bots, storage and the ops listener.
func NeedsRestart(oldCfg, newCfg *Config) bool {
	if oldCfg == nil || newCfg == nil {
		return false
	}
	return oldCfg.Telegram.Token != newCfg.Telegram.Token ||
		oldCfg.Telegram.PollTimeout != newCfg.Telegram.PollTimeout ||
		!reflect.DeepEqual(oldCfg.Delivery.ExtraBotTokens, newCfg.Delivery.ExtraBotTokens) ||
		oldCfg.Storage != newCfg.Storage ||
		oldCfg.Ops != newCfg.Ops ||
		oldCfg.Catalog != newCfg.Catalog
}
