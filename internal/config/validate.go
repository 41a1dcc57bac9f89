package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Validate checks every field that would otherwise fail later at runtime.
// All problems are reported together.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	dur := func(path, raw string) {
		_, err := ParseDurationField(path, raw)
		add(err)
	}

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		add(errors.New("telegram.token is required (or RECOBOT_TELEGRAM_TOKEN)"))
	}
	if g := strings.TrimSpace(cfg.Telegram.GroupLog); g != "" {
		if _, err := strconv.ParseInt(g, 10, 64); err != nil {
			add(fmt.Errorf("telegram.group_log: %q is not a chat id", g))
		}
	}
	dur("telegram.poll_timeout", cfg.Telegram.PollTimeout)

	if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			add(fmt.Errorf("scheduler.timezone: %w", err))
		}
	}
	dur("scheduler.misfire_grace", cfg.Scheduler.MisfireGrace)

	te := cfg.TaskEngine
	if te.Workers < 0 || te.QueueSize < 0 || te.HistorySize < 0 {
		add(errors.New("task_engine: workers, queue_size and history_size must be >= 0"))
	}
	dur("task_engine.default_timeout", te.DefaultTimeout)
	dur("task_engine.max_queue_delay", te.MaxQueueDelay)

	dur("catalog.timeout", cfg.Catalog.Timeout)
	if cfg.Catalog.RatePerSec < 0 || cfg.Catalog.MaxParallel < 0 {
		add(errors.New("catalog: rate_per_sec and max_parallel must be >= 0"))
	}

	r := cfg.Reco
	if r.MaxPool < 0 || r.DefaultOutputCount < 0 || r.MaxOutputCount < 0 {
		add(errors.New("reco: max_pool and output counts must be >= 0"))
	}
	if r.MaxOutputCount > 0 && r.DefaultOutputCount > r.MaxOutputCount {
		add(fmt.Errorf("reco.default_output_count %d exceeds max_output_count %d", r.DefaultOutputCount, r.MaxOutputCount))
	}

	dur("delivery.timeout", cfg.Delivery.Timeout)
	for i, tok := range cfg.Delivery.ExtraBotTokens {
		if strings.TrimSpace(tok) == "" {
			add(fmt.Errorf("delivery.extra_bot_tokens[%d] is empty", i))
		}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "", "file", "sqlite", "sqlite3":
	default:
		add(fmt.Errorf("storage.driver: unknown driver %q", cfg.Storage.Driver))
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Format)) {
	case "", "json", "yaml":
	default:
		add(fmt.Errorf("storage.format: must be json or yaml, got %q", cfg.Storage.Format))
	}
	dur("storage.busy_timeout", cfg.Storage.BusyTimeout)

	if cfg.Ops.Enabled && strings.TrimSpace(cfg.Ops.Addr) == "" {
		add(errors.New("ops.addr is required when ops.enabled"))
	}
	return errors.Join(errs...)
}
