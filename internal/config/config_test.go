package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	logx "recobot/pkg/logx"
)

const minimalYAML = `
telegram:
  token: "123:abc"
  owner_user_ids: [42]
logging:
  level: info
  console: true
  file: {enabled: false}
  telegram: {enabled: false}
scheduler:
  timezone: Asia/Shanghai
  misfire_grace: 1m
reco:
  seed: 7
  window_messages: false
storage:
  driver: file
  path: ./data
  format: yaml
ops:
  enabled: true
  addr: 127.0.0.1:9090
`

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()

	m := NewManager(writeConfig(t, "config.yaml", minimalYAML), logx.Nop())
	cfg, err := m.Load()
	require.NoError(t, err)
	require.Same(t, cfg, m.Get())

	require.Equal(t, []int64{42}, cfg.Telegram.OwnerUserIDs)
	require.Equal(t, "Asia/Shanghai", cfg.Scheduler.Timezone)
	require.NotNil(t, cfg.Reco.Seed)
	require.EqualValues(t, 7, *cfg.Reco.Seed)
	require.False(t, cfg.Reco.WindowMessagesEnabled())
	require.Equal(t, "yaml", cfg.Storage.Format)
	require.Equal(t, time.Minute, DurationOr(cfg.Scheduler.MisfireGrace, 0))
}

func TestLoadJSONRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	m := NewManager(writeConfig(t, "config.json", `{"telegram":{"token":"x"},"plugins":{}}`), logx.Nop())
	_, err := m.Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "plugins")
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Scheduler:  SchedulerConfig{Timezone: "Mars/Olympus", MisfireGrace: "soon"},
		TaskEngine: TaskEngineConfig{Workers: -1},
		Reco:       RecoConfig{DefaultOutputCount: 30, MaxOutputCount: 20},
		Storage:    StorageConfig{Driver: "redis", Format: "toml"},
		Ops:        OpsConfig{Enabled: true},
	}
	err := Validate(cfg)
	require.Error(t, err)
	for _, want := range []string{
		"telegram.token", "scheduler.timezone", "scheduler.misfire_grace", "task_engine",
		"default_output_count", "storage.driver", "storage.format", "ops.addr",
	} {
		require.Contains(t, err.Error(), want)
	}

	require.NoError(t, Validate(&Config{Telegram: TelegramConfig{Token: "t"}}))
	require.Error(t, Validate(nil))
}

func TestWindowMessagesDefaultsOn(t *testing.T) {
	t.Parallel()
	require.True(t, RecoConfig{}.WindowMessagesEnabled())
}

func TestDurationHelpers(t *testing.T) {
	t.Parallel()

	d, err := ParseDurationField("x", "")
	require.NoError(t, err)
	require.Zero(t, d)

	_, err = ParseDurationField("x", "-1s")
	require.Error(t, err)

	require.Equal(t, 5*time.Second, DurationOr("bogus", 5*time.Second))
	require.Equal(t, 5*time.Second, DurationOr("0s", 5*time.Second))
	require.Equal(t, 2*time.Second, DurationOr("2s", 5*time.Second))
}

func TestEnvOverlay(t *testing.T) {
	t.Setenv("RECOBOT_TELEGRAM_TOKEN", "from-env")
	t.Setenv("RECOBOT_STORAGE_DRIVER", "sqlite")
	t.Setenv("RECOBOT_LOG_LEVEL", "debug")

	m := NewManager(writeConfig(t, "config.json", `{"telegram":{"token":"from-file"},"storage":{"driver":"file"}}`), logx.Nop())
	cfg, err := m.Load()
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Telegram.Token)
	require.Equal(t, "sqlite", cfg.Storage.Driver)
	require.Equal(t, "debug", cfg.Logging.Level)
}

func TestReloadPublishesOnlyChanges(t *testing.T) {
	t.Parallel()

	p := writeConfig(t, "config.json", `{"telegram":{"token":"a"}}`)
	m := NewManager(p, logx.Nop())
	_, err := m.Load()
	require.NoError(t, err)
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	published, err := m.Reload(context.Background())
	require.NoError(t, err)
	require.False(t, published)

	require.NoError(t, os.WriteFile(p, []byte(`{"telegram":{"token":"a","owner_user_ids":[1]}}`), 0o600))
	published, err = m.Reload(context.Background())
	require.NoError(t, err)
	require.True(t, published)
	got := <-ch
	require.Equal(t, []int64{1}, got.Telegram.OwnerUserIDs)

	require.NoError(t, os.WriteFile(p, []byte(`{"telegram":{"token":""}}`), 0o600))
	_, err = m.Reload(context.Background())
	require.Error(t, err)
	require.Equal(t, []int64{1}, m.Get().Telegram.OwnerUserIDs)
}

func TestReloadHonoursValidator(t *testing.T) {
	t.Parallel()

	p := writeConfig(t, "config.json", `{"telegram":{"token":"a"}}`)
	m := NewManager(p, logx.Nop())
	_, err := m.Load()
	require.NoError(t, err)
	m.SetValidator(func(context.Context, *Config) error { return os.ErrPermission })

	require.NoError(t, os.WriteFile(p, []byte(`{"telegram":{"token":"b"}}`), 0o600))
	_, err = m.Reload(context.Background())
	require.ErrorIs(t, err, os.ErrPermission)
	require.Equal(t, "a", m.Get().Telegram.Token)
}

func TestSlowSubscriberKeepsNewest(t *testing.T) {
	t.Parallel()

	m := NewManager("unused", logx.Nop())
	ch := m.Subscribe(1)
	first, second := &Config{}, &Config{}
	m.publish(first)
	m.publish(second)
	require.Same(t, second, <-ch)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	a := &Config{Telegram: TelegramConfig{Token: "secret"}}
	b := &Config{Telegram: TelegramConfig{Token: "secret", OwnerUserIDs: []int64{1}}, Scheduler: SchedulerConfig{Timezone: "UTC"}}
	changed, fields := Summarize(a, b)
	require.Equal(t, []string{"telegram", "scheduler"}, changed)
	require.NotEmpty(t, fields)
	require.False(t, NeedsRestart(a, b))

	c := *b
	c.Telegram.Token = "other"
	require.True(t, NeedsRestart(b, &c))
}
