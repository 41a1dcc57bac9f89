package config

import (
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "RECOBOT"

// envOverlay lists the settings that may come from the environment, so
// secrets can stay out of the file. Set variables win over the file.
type envOverlay struct {
	TelegramToken string `envconfig:"TELEGRAM_TOKEN"`
	StorageDriver string `envconfig:"STORAGE_DRIVER"`
	StoragePath   string `envconfig:"STORAGE_PATH"`
	LogLevel      string `envconfig:"LOG_LEVEL"`
	OpsAddr       string `envconfig:"OPS_ADDR"`
}

func applyEnv(cfg *Config) error {
	var ov envOverlay
	if err := envconfig.Process(envPrefix, &ov); err != nil {
		return err
	}
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&cfg.Telegram.Token, ov.TelegramToken)
	set(&cfg.Storage.Driver, ov.StorageDriver)
	set(&cfg.Storage.Path, ov.StoragePath)
	set(&cfg.Logging.Level, ov.LogLevel)
	set(&cfg.Ops.Addr, ov.OpsAddr)
	return nil
}
