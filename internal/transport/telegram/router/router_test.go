package router

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	kit "recobot/internal/transport"
	logx "recobot/pkg/logx"
)

type fakeAdapter struct {
	mu   sync.Mutex
	sent []string
	menu []kit.BotCommand
}

func (f *fakeAdapter) Start(context.Context, chan<- kit.Update) error { return nil }
func (f *fakeAdapter) Stop(context.Context) error                     { return nil }

func (f *fakeAdapter) SendText(_ context.Context, _ kit.ChatTarget, text string, _ *kit.SendOptions) error {
	f.mu.Lock()
	f.sent = append(f.sent, text)
	f.mu.Unlock()
	return nil
}

func (f *fakeAdapter) UpdateMenuCommands(_ context.Context, cmds []kit.BotCommand) error {
	f.mu.Lock()
	f.menu = cmds
	f.mu.Unlock()
	return nil
}

func (f *fakeAdapter) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func msg(from int64, text string) kit.Update {
	return kit.Update{Message: &kit.Message{ChatID: -100, FromID: from, FromUsername: "u" + strconv.FormatInt(from, 10), Text: text}}
}

func startManager(t *testing.T, cmds []Command) (*CommandManager, *fakeAdapter, chan kit.Update) {
	t.Helper()
	ad := &fakeAdapter{}
	m := NewCommandManager(logx.Nop(), ad, []int64{1}, Options{Workers: 2, DenyText: "denied", EmptyText: "need args for %s"})
	ctx, cancel := context.WithCancel(context.Background())
	m.SetRegistry(ctx, cmds)
	updates := make(chan kit.Update)
	done := make(chan struct{})
	go func() {
		_ = m.DispatchLoop(ctx, updates)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return m, ad, updates
}

func echo(ctx context.Context, req *Request) error {
	text := req.Command
	for _, a := range req.Args {
		text += " [" + a + "]"
	}
	return req.Reply(ctx, text)
}

func TestRouteSubcommands(t *testing.T) {
	t.Parallel()

	_, ad, updates := startManager(t, []Command{
		{Route: "reco now", Handle: echo},
		{Route: "reco unsub", Aliases: []string{"td"}, Handle: echo},
		{Route: "reco sub", Access: AccessOwnerOnly, Handle: echo},
	})

	updates <- msg(2, `/reco now 5`)
	updates <- msg(2, `/reco@recobot TD`)
	updates <- msg(2, `/reco_now`)
	updates <- msg(2, `/reco create "my mix" a,b`)
	updates <- msg(2, `/reco sub Default`)
	updates <- msg(1, `/reco sub Default cron:8`)
	updates <- msg(2, `/other`)
	updates <- msg(2, `plain text`)

	require.Eventually(t, func() bool { return len(ad.messages()) == 6 }, 2*time.Second, 10*time.Millisecond)
	require.ElementsMatch(t, []string{
		"reco now [5]",
		"reco unsub",
		"reco now",
		"need args for reco",
		"denied",
		"reco sub [Default] [cron:8]",
	}, ad.messages())
}

func TestPanicIsRecovered(t *testing.T) {
	t.Parallel()

	_, ad, updates := startManager(t, []Command{
		{Route: "boom", Handle: func(context.Context, *Request) error { panic("x") }},
		{Route: "ok", Handle: echo},
	})
	updates <- msg(2, "/boom")
	updates <- msg(2, "/ok")
	require.Eventually(t, func() bool { return len(ad.messages()) == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, "ok", ad.messages()[0])
}

func TestRequestCarriesSender(t *testing.T) {
	t.Parallel()

	_, ad, updates := startManager(t, []Command{
		{Route: "whoami", Handle: func(ctx context.Context, req *Request) error {
			return req.Reply(ctx, req.FromUsername+" "+req.Tenant()+" "+strconv.FormatBool(req.Owner))
		}},
	})
	updates <- msg(1, "/whoami")
	require.Eventually(t, func() bool { return len(ad.messages()) == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, "u1 -100 true", ad.messages()[0])
}

func TestMenuCommands(t *testing.T) {
	t.Parallel()

	got := buildMenuCommands([]Command{
		{Route: "reco now", Description: "recommend now", Handle: echo},
		{Route: "reco now", Handle: echo},
		{Route: "Reco-List", Handle: echo},
		{Route: "nohandler"},
	})
	require.Equal(t, []kit.BotCommand{
		{Command: "reco_now", Description: "recommend now"},
		{Command: "reco_list", Description: "Reco-List"},
	}, got)
}

func TestTokenize(t *testing.T) {
	t.Parallel()
	require.Equal(t, []string{"/reco", "create", "my mix", `a"b`}, tokenizeCommandLine(`/reco create "my mix" a\"b`))
	require.Nil(t, tokenizeCommandLine("   "))
	require.Equal(t, "reco", commandWord("/Reco@my_bot"))
}
