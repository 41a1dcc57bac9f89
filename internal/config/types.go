// Package config loads the bot configuration from one JSON or YAML file,
// overlays environment variables and hot-reloads the file on edits.
package config

// Config is the whole configuration file. Durations are Go duration strings
// ("10s", "1m").
type Config struct {
	Telegram   TelegramConfig   `json:"telegram"`
	Logging    LoggingConfig    `json:"logging"`
	Scheduler  SchedulerConfig  `json:"scheduler"`
	TaskEngine TaskEngineConfig `json:"task_engine"`
	Catalog    CatalogConfig    `json:"catalog"`
	Reco       RecoConfig       `json:"reco"`
	Delivery   DeliveryConfig   `json:"delivery"`
	Storage    StorageConfig    `json:"storage"`
	Ops        OpsConfig        `json:"ops"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// OwnerUserIDs are the administrators.
	OwnerUserIDs []int64 `json:"owner_user_ids"`
	// GroupLog is the chat id log entries are forwarded to.
	GroupLog    string `json:"group_log,omitempty"`
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ThreadID   int    `json:"thread_id,omitempty"`
	MinLevel   string `json:"min_level,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

type SchedulerConfig struct {
	// Timezone of daily triggers; empty means the host zone.
	Timezone string `json:"timezone,omitempty"`
	// MisfireGrace is how late a firing may start before it is skipped.
	MisfireGrace string `json:"misfire_grace,omitempty"`
}

type TaskEngineConfig struct {
	Workers        int    `json:"workers,omitempty"`
	QueueSize      int    `json:"queue_size,omitempty"`
	DefaultTimeout string `json:"default_timeout,omitempty"`
	MaxQueueDelay  string `json:"max_queue_delay,omitempty"`
	HistorySize    int    `json:"history_size,omitempty"`
}

type CatalogConfig struct {
	BaseURL     string `json:"base_url,omitempty"`
	Timeout     string `json:"timeout,omitempty"`
	RatePerSec  int    `json:"rate_per_sec,omitempty"`
	MaxParallel int    `json:"max_parallel,omitempty"`
}

type RecoConfig struct {
	// MaxPool caps the candidate pool; 0 keeps every item.
	MaxPool            int    `json:"max_pool,omitempty"`
	DefaultOutputCount int    `json:"default_output_count,omitempty"`
	MaxOutputCount     int    `json:"max_output_count,omitempty"`
	Seed               *int64 `json:"seed,omitempty"`
	// WindowMessages defaults to true; false always uses FallbackText.
	WindowMessages *bool  `json:"window_messages,omitempty"`
	DefaultSet     string `json:"default_set,omitempty"`
	FallbackText   string `json:"fallback_text,omitempty"`
	Banner         string `json:"banner,omitempty"`
}

type DeliveryConfig struct {
	// ExtraBotTokens are send-only bots tried, in order, after the main bot.
	ExtraBotTokens []string `json:"extra_bot_tokens,omitempty"`
	Timeout        string   `json:"timeout,omitempty"`
}

type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	Format      string `json:"format,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type OpsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`
	Pprof   bool   `json:"pprof,omitempty"`
}

// WindowMessagesEnabled reports the effective reco.window_messages.
func (r RecoConfig) WindowMessagesEnabled() bool {
	return r.WindowMessages == nil || *r.WindowMessages
}
