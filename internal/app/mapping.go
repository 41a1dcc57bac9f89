package app

import (
	"strconv"
	"strings"
	"time"

	"recobot/internal/catalog"
	"recobot/internal/commands"
	"recobot/internal/config"
	"recobot/internal/dispatch"
	"recobot/internal/ops"
	"recobot/internal/reco"
	"recobot/internal/schedule"
	"recobot/internal/storage"
	"recobot/internal/task/engine"
	"recobot/internal/task/scheduler"
	kit "recobot/internal/transport"
	logx "recobot/pkg/logx"
)

// The map* helpers translate the file config into component configs. They
// assume config.Validate passed.

func mapLogging(cfg *config.Config) logx.Config {
	out := logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
		Chat: logx.ChatConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
	if chatID, err := strconv.ParseInt(strings.TrimSpace(cfg.Telegram.GroupLog), 10, 64); err == nil {
		out.Chat.Target = kit.ChatTarget{ChatID: chatID, ThreadID: cfg.Logging.Telegram.ThreadID}.Tenant()
	} else {
		out.Chat.Enabled = false
	}
	return out
}

func mapStorage(cfg *config.Config) storage.Config {
	return storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		Format:      cfg.Storage.Format,
		BusyTimeout: config.DurationOr(cfg.Storage.BusyTimeout, 5*time.Second),
	}
}

func mapEngine(cfg *config.Config) engine.Config {
	te := cfg.TaskEngine
	return engine.Config{
		Enabled:        true,
		Workers:        te.Workers,
		QueueSize:      te.QueueSize,
		DefaultTimeout: config.DurationOr(te.DefaultTimeout, 2*time.Minute),
		MaxQueueDelay:  config.DurationOr(te.MaxQueueDelay, 0),
		HistorySize:    te.HistorySize,
	}
}

func mapScheduler(cfg *config.Config) scheduler.Config {
	return scheduler.Config{Timezone: cfg.Scheduler.Timezone}
}

func mapRefresher(cfg *config.Config) schedule.Config {
	return schedule.Config{
		Grace:   config.DurationOr(cfg.Scheduler.MisfireGrace, schedule.DefaultGrace),
		Timeout: config.DurationOr(cfg.TaskEngine.DefaultTimeout, 2*time.Minute),
	}
}

func mapCatalog(cfg *config.Config) catalog.Config {
	return catalog.Config{
		BaseURL:    cfg.Catalog.BaseURL,
		Timeout:    config.DurationOr(cfg.Catalog.Timeout, 10*time.Second),
		RatePerSec: cfg.Catalog.RatePerSec,
	}
}

func mapPool(cfg *config.Config) reco.PoolConfig {
	return reco.PoolConfig{
		MaxPool:      cfg.Reco.MaxPool,
		FetchTimeout: config.DurationOr(cfg.Catalog.Timeout, 10*time.Second),
		MaxParallel:  cfg.Catalog.MaxParallel,
	}
}

func mapRecommender(cfg *config.Config) reco.RecommenderConfig {
	return reco.RecommenderConfig{Banner: cfg.Reco.Banner, Seed: cfg.Reco.Seed}
}

func mapDispatch(cfg *config.Config) dispatch.Config {
	return dispatch.Config{
		WindowMessages:  cfg.Reco.WindowMessagesEnabled(),
		FallbackText:    cfg.Reco.FallbackText,
		DeliveryTimeout: config.DurationOr(cfg.Delivery.Timeout, 15*time.Second),
	}
}

func mapCommands(cfg *config.Config) commands.Config {
	return commands.Config{
		DefaultCount: cfg.Reco.DefaultOutputCount,
		MaxCount:     cfg.Reco.MaxOutputCount,
		DefaultSet:   cfg.Reco.DefaultSet,
	}
}

func mapOps(cfg *config.Config) ops.Config {
	return ops.Config{Enabled: cfg.Ops.Enabled, Addr: cfg.Ops.Addr, Pprof: cfg.Ops.Pprof}
}
