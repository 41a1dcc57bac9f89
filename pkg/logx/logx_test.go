package logx

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type captureSender struct {
	mu   sync.Mutex
	msgs []string
	got  chan struct{}
}

func (c *captureSender) SendText(_ context.Context, target, text string) error {
	c.mu.Lock()
	c.msgs = append(c.msgs, target+"|"+text)
	c.mu.Unlock()
	select {
	case c.got <- struct{}{}:
	default:
	}
	return nil
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	require.Equal(t, zerolog.DebugLevel, ParseLevel(" DEBUG ", zerolog.InfoLevel))
	require.Equal(t, zerolog.WarnLevel, ParseLevel("warning", zerolog.InfoLevel))
	require.Equal(t, zerolog.InfoLevel, ParseLevel("", zerolog.InfoLevel))
	require.Equal(t, zerolog.ErrorLevel, ParseLevel("nonsense", zerolog.ErrorLevel))
}

func TestZeroLoggerIsSafe(t *testing.T) {
	t.Parallel()

	var l Logger
	require.True(t, l.IsZero())
	l.Info("dropped", String("k", "v"))
	require.False(t, Nop().IsZero())
}

func TestRenderChatEntry(t *testing.T) {
	t.Parallel()

	got := renderChatEntry([]byte(`{"level":"warn","time":"x","message":"fetch failed","source":"123456","err":"boom"}`))
	require.Equal(t, "[WARN] fetch failed\n- err=boom\n- source=123456", got)

	require.Equal(t, "plain", renderChatEntry([]byte("  plain \n")))
	require.True(t, strings.HasSuffix(truncate(strings.Repeat("a", 50), 20), "..."))
}

func TestChatSinkForwardsWarnings(t *testing.T) {
	t.Parallel()

	snd := &captureSender{got: make(chan struct{}, 1)}
	svc, log := New(Config{Level: "debug", Chat: ChatConfig{Enabled: true, Target: "-100:7", RatePerSec: 100}}, snd)
	defer svc.Close()

	log.Info("not forwarded")
	log.Warn("forwarded", Int("n", 1))

	select {
	case <-snd.got:
	case <-time.After(2 * time.Second):
		t.Fatal("chat sink did not deliver")
	}
	snd.mu.Lock()
	defer snd.mu.Unlock()
	require.Len(t, snd.msgs, 1)
	require.True(t, strings.HasPrefix(snd.msgs[0], "-100:7|[WARN] forwarded"))
}
