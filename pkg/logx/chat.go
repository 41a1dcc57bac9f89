package logx

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Sender delivers plain text to a chat target ("chat" or "chat:thread").
type Sender interface {
	SendText(ctx context.Context, target, text string) error
}

const (
	chatQueueSize = 256
	chatMaxLen    = 3500
	chatSendLimit = 10 * time.Second
)

type chatItem struct {
	target string
	text   string
}

// chatSink is a zerolog LevelWriter that never blocks the caller: entries go
// through a bounded queue and are dropped when it is full or rate limited.
type chatSink struct {
	mu       sync.Mutex
	sender   Sender
	target   string
	minLevel zerolog.Level
	limiter  *rate.Limiter

	queue   chan chatItem
	once    sync.Once
	stop    context.CancelFunc
	stopped chan struct{}
}

func newChatSink(sender Sender) *chatSink {
	return &chatSink{
		sender:   sender,
		minLevel: zerolog.WarnLevel,
		limiter:  rate.NewLimiter(1, 1),
		queue:    make(chan chatItem, chatQueueSize),
	}
}

func (c *chatSink) setSender(s Sender) {
	c.mu.Lock()
	c.sender = s
	c.mu.Unlock()
}

func (c *chatSink) apply(cfg ChatConfig) {
	c.mu.Lock()
	c.target = strings.TrimSpace(cfg.Target)
	c.minLevel = ParseLevel(cfg.MinLevel, zerolog.WarnLevel)
	rps := max(1, cfg.RatePerSec)
	c.limiter = rate.NewLimiter(rate.Limit(rps), rps)
	c.mu.Unlock()

	if cfg.Enabled {
		c.once.Do(c.start)
	}
}

func (c *chatSink) start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.stop = cancel
	c.stopped = make(chan struct{})
	go func() {
		defer close(c.stopped)
		for {
			select {
			case <-ctx.Done():
				return
			case it := <-c.queue:
				c.mu.Lock()
				s := c.sender
				c.mu.Unlock()
				if s == nil {
					continue
				}
				sctx, scancel := context.WithTimeout(ctx, chatSendLimit)
				_ = s.SendText(sctx, it.target, it.text)
				scancel()
			}
		}
	}()
}

func (c *chatSink) close() {
	if c.stop != nil {
		c.stop()
		<-c.stopped
	}
}

func (c *chatSink) Write(p []byte) (int, error) { return c.WriteLevel(zerolog.InfoLevel, p) }

func (c *chatSink) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	c.mu.Lock()
	target, minLevel, lim := c.target, c.minLevel, c.limiter
	c.mu.Unlock()

	if target == "" || level < minLevel || !lim.Allow() {
		return len(p), nil
	}
	if msg := renderChatEntry(p); msg != "" {
		select {
		case c.queue <- chatItem{target: target, text: msg}:
		default:
		}
	}
	return len(p), nil
}

// renderChatEntry turns one JSON log line into a short human-readable message.
func renderChatEntry(p []byte) string {
	var m map[string]any
	if err := json.Unmarshal(p, &m); err != nil {
		return truncate(strings.TrimSpace(string(p)), chatMaxLen)
	}

	var b strings.Builder
	if lvl, _ := m[zerolog.LevelFieldName].(string); lvl != "" {
		b.WriteString("[" + strings.ToUpper(lvl) + "] ")
	}
	msg, _ := m[zerolog.MessageFieldName].(string)
	b.WriteString(msg)

	keys := make([]string, 0, len(m))
	for k := range m {
		switch k {
		case zerolog.TimestampFieldName, zerolog.LevelFieldName, zerolog.MessageFieldName:
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		limit := 600
		if k == "stack" {
			limit = 900
		}
		fmt.Fprintf(&b, "\n- %s=%s", k, truncate(fmt.Sprint(m[k]), limit))
	}
	return truncate(b.String(), chatMaxLen)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n < 10 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
