// Package router maps chat commands onto handlers. Routes are space separated
// paths ("reco now"); the first token is the slash command.
package router

import (
	"context"
	"runtime/debug"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	rtsup "recobot/internal/runtime/supervisor"
	kit "recobot/internal/transport"
	logx "recobot/pkg/logx"
)

type Access int

const (
	AccessEveryone Access = iota
	AccessOwnerOnly
)

type Command struct {
	Route string
	// Aliases are alternative names for the last route token.
	Aliases     []string
	Description string
	Access      Access
	Timeout     time.Duration
	Handle      HandlerFunc
}

type Request struct {
	Update  kit.Update
	Chat    kit.ChatTarget
	FromID  int64
	// FromUsername is empty for users without a public handle.
	FromUsername string
	Path    []string
	Command string
	Args    []string
	ReqID   string
	Owner   bool
	Logger  logx.Logger

	adapter kit.Adapter
}

// Tenant is the registry key of the chat the request came from.
func (r *Request) Tenant() string { return r.Chat.Tenant() }

func (r *Request) Reply(ctx context.Context, text string) error {
	return r.adapter.SendText(ctx, r.Chat, text, &kit.SendOptions{DisablePreview: true})
}

type Options struct {
	Workers   int
	QueueSize int
	// DenyText answers owner-only commands from everyone else.
	DenyText string
	BusyText string
	// EmptyText answers a command group called without a subcommand; %s is
	// replaced by the group path.
	EmptyText string
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.DenyText == "" {
		o.DenyText = "unauthorized"
	}
	if o.BusyText == "" {
		o.BusyText = "busy, try again"
	}
	if o.EmptyText == "" {
		o.EmptyText = "usage: /%s help"
	}
	return o
}

type CommandManager struct {
	mu     sync.RWMutex
	root   *cmdNode
	owners []int64

	opt     Options
	log     logx.Logger
	adapter kit.Adapter

	runMu sync.Mutex
	sup   *rtsup.Supervisor
	jobs  chan func()
}

func NewCommandManager(log logx.Logger, adapter kit.Adapter, owners []int64, opt Options) *CommandManager {
	if log.IsZero() {
		log = logx.Nop()
	}
	opt = opt.withDefaults()
	return &CommandManager{
		root:    newRoot(),
		owners:  slices.Clone(owners),
		opt:     opt,
		log:     log,
		adapter: adapter,
		jobs:    make(chan func(), opt.QueueSize),
	}
}

// SetOwners replaces the administrator list. Safe during hot reload.
func (m *CommandManager) SetOwners(owners []int64) {
	m.mu.Lock()
	m.owners = slices.Clone(owners)
	m.mu.Unlock()
}

func (m *CommandManager) isOwner(id int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Contains(m.owners, id)
}

// SetRegistry installs cmds, replacing the previous set, and pushes the
// command menu to adapters that support one.
func (m *CommandManager) SetRegistry(ctx context.Context, cmds []Command) {
	root := newRoot()
	for _, c := range cmds {
		route := splitRoute(c.Route)
		if len(route) == 0 || c.Handle == nil {
			continue
		}
		root.add(route, c, c.Aliases)
	}
	menu := buildMenuCommands(cmds)

	m.mu.Lock()
	m.root = root
	m.mu.Unlock()

	if up, ok := m.adapter.(kit.CommandMenuUpdater); ok && len(menu) > 0 {
		go func() {
			cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := up.UpdateMenuCommands(cctx, menu); err != nil {
				m.log.Warn("command menu update failed", logx.Err(err))
			}
		}()
	}
}

// Supervisor returns the worker supervisor while DispatchLoop runs.
func (m *CommandManager) Supervisor() *rtsup.Supervisor {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	return m.sup
}

// DispatchLoop routes updates until ctx ends or updates is closed. Handlers
// run on a bounded worker pool.
func (m *CommandManager) DispatchLoop(ctx context.Context, updates <-chan kit.Update) error {
	sup := rtsup.NewSupervisor(ctx,
		rtsup.WithLogger(m.log.With(logx.String("comp", "router"))),
		rtsup.WithCancelOnError(false),
	)
	m.runMu.Lock()
	m.sup = sup
	m.runMu.Unlock()

	jobs := m.jobs
	for i := 0; i < m.opt.Workers; i++ {
		sup.GoRestart("command.worker."+strconv.Itoa(i), func(c context.Context) error {
			for {
				select {
				case <-c.Done():
					return nil
				case job := <-jobs:
					m.runJob(job)
				}
			}
		}, rtsup.WithRestartBackoff(200*time.Millisecond, 5*time.Second), rtsup.WithPublishFirstError(true))
	}
	m.log.Info("command dispatcher started", logx.Int("workers", m.opt.Workers), logx.Int("queue", cap(jobs)))

	defer func() {
		sup.Cancel()
		wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = sup.Wait(wctx)
		cancel()
		m.runMu.Lock()
		m.sup = nil
		m.runMu.Unlock()
		m.log.Info("command dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			m.Route(ctx, up)
		}
	}
}

func (m *CommandManager) runJob(job func()) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("panic in command job", logx.Any("panic", r), logx.Stack(string(debug.Stack())))
		}
	}()
	job()
}

// Route resolves one update and queues its handler. Messages that are not a
// known command are ignored.
func (m *CommandManager) Route(ctx context.Context, up kit.Update) {
	msg := up.Message
	if msg == nil {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return
	}
	parts := tokenizeCommandLine(text)
	if len(parts) == 0 {
		return
	}
	word, args := commandWord(parts[0]), parts[1:]
	chat := kit.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID}

	m.mu.RLock()
	root := m.root
	m.mu.RUnlock()

	cur, path, ok := m.resolve(root, word)
	if !ok {
		m.log.Debug("unknown command ignored", logx.String("cmd", word), logx.Int64("chat_id", msg.ChatID))
		return
	}
	for len(args) > 0 {
		child, ok := cur.child(args[0])
		if !ok {
			break
		}
		cur = child
		path = append(path, child.name)
		args = args[1:]
	}

	if cur.cmd == nil {
		m.reply(ctx, chat, strings.ReplaceAll(m.opt.EmptyText, "%s", strings.Join(path, " ")))
		return
	}
	m.enqueue(ctx, up, chat, *cur.cmd, path, args)
}

// resolve maps the slash word to a node. "/reco_now" style menu names walk
// the route they were built from.
func (m *CommandManager) resolve(root *cmdNode, word string) (*cmdNode, []string, bool) {
	if n, ok := root.child(word); ok {
		return n, []string{n.name}, true
	}
	toks := strings.Split(word, "_")
	if len(toks) < 2 {
		return nil, nil, false
	}
	if n := root.find(toks); n != nil && n.cmd != nil {
		return n, splitRoute(n.cmd.Route), true
	}
	return nil, nil, false
}

func (m *CommandManager) enqueue(ctx context.Context, up kit.Update, chat kit.ChatTarget, cmd Command, path, args []string) {
	msg := up.Message
	owner := m.isOwner(msg.FromID)
	if cmd.Access == AccessOwnerOnly && !owner {
		m.reply(ctx, chat, m.opt.DenyText)
		return
	}

	rid := newReqID()
	req := &Request{
		Update:  up,
		Chat:    chat,
		FromID:  msg.FromID,
		Path:    path,
		Command: cmd.Route,
		Args:    args,
		ReqID:   rid,
		Owner:   owner,
		adapter: m.adapter,
		Logger: m.log.With(
			logx.String("rid", rid),
			logx.Int64("chat_id", msg.ChatID),
			logx.Int("thread_id", msg.ThreadID),
			logx.Int64("from_id", msg.FromID),
			logx.String("cmd", cmd.Route),
		),
	}
	req.FromUsername = msg.FromUsername
	final := Chain(cmd.Handle,
		MWPanicRecover(m.log),
		MWRequestLog(m.log),
		MWMetrics(),
		MWTimeout(cmd.Timeout),
	)

	select {
	case m.jobs <- func() { _ = final(ctx, req) }:
	default:
		m.reply(ctx, chat, m.opt.BusyText)
	}
}

func (m *CommandManager) reply(ctx context.Context, chat kit.ChatTarget, text string) {
	if err := m.adapter.SendText(ctx, chat, text, nil); err != nil {
		m.log.Warn("reply failed", logx.Int64("chat_id", chat.ChatID), logx.Err(err))
	}
}
