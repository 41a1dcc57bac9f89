// Package transport holds the chat-platform neutral types shared by the
// adapter, the command router and the delivery endpoints.
package transport

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

type Message struct {
	ID           int
	ChatID       int64
	ThreadID     int // forum topic, 0 if none
	FromID       int64
	FromUsername string
	Text         string
}

type Update struct {
	Message *Message
}

type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

// Tenant is the stable registry key for a chat target: "<chat>" or
// "<chat>:<thread>".
func (t ChatTarget) Tenant() string {
	if t.ThreadID == 0 {
		return strconv.FormatInt(t.ChatID, 10)
	}
	return strconv.FormatInt(t.ChatID, 10) + ":" + strconv.Itoa(t.ThreadID)
}

// ParseTenant is the inverse of ChatTarget.Tenant.
func ParseTenant(s string) (ChatTarget, error) {
	chat, thread, hasThread := strings.Cut(strings.TrimSpace(s), ":")
	id, err := strconv.ParseInt(chat, 10, 64)
	if err != nil {
		return ChatTarget{}, fmt.Errorf("tenant %q: bad chat id", s)
	}
	t := ChatTarget{ChatID: id}
	if hasThread {
		if t.ThreadID, err = strconv.Atoi(thread); err != nil || t.ThreadID < 0 {
			return ChatTarget{}, fmt.Errorf("tenant %q: bad thread id", s)
		}
	}
	return t, nil
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) error
}

type BotCommand struct {
	Command     string
	Description string
}

// CommandMenuUpdater is implemented by adapters that can publish a command
// menu to the platform.
type CommandMenuUpdater interface {
	UpdateMenuCommands(ctx context.Context, cmds []BotCommand) error
}
