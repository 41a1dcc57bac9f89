package commands

import (
	"context"
	"time"

	"recobot/internal/reco"
	"recobot/internal/transport/telegram/router"
)

// RouterOptions are the router texts matching this command set.
func RouterOptions(workers int) router.Options {
	return router.Options{
		Workers:   workers,
		DenyText:  textDenied,
		BusyText:  textBusy,
		EmptyText: textNeedArgs,
	}
}

func caller(req *router.Request) Caller {
	return Caller{Tenant: req.Tenant(), UserID: req.FromID, Admin: req.Owner, Username: req.FromUsername}
}

// Routes binds the controller to the /reco command tree.
func (c *Controller) Routes() []router.Command {
	reply := func(fn func(ctx context.Context, req *router.Request) string) router.HandlerFunc {
		return func(ctx context.Context, req *router.Request) error {
			return req.Reply(ctx, fn(ctx, req))
		}
	}
	return []router.Command{
		{
			Route: "reco now", Description: descNow, Timeout: 45 * time.Second,
			Handle: func(ctx context.Context, req *router.Request) error {
				if err := req.Reply(ctx, reco.DefaultThinkingText); err != nil {
					req.Logger.Debug("thinking text not delivered")
				}
				return req.Reply(ctx, c.Now(ctx, caller(req), req.Args))
			},
		},
		{
			Route: "reco list", Description: descList,
			Handle: reply(func(context.Context, *router.Request) string { return c.List() }),
		},
		{
			Route: "reco create", Description: descCreate, Timeout: 15 * time.Second,
			Handle: reply(func(ctx context.Context, req *router.Request) string { return c.Create(ctx, caller(req), req.Args) }),
		},
		{
			Route: "reco del", Description: descDel, Timeout: 15 * time.Second,
			Handle: reply(func(ctx context.Context, req *router.Request) string { return c.Delete(ctx, caller(req), req.Args) }),
		},
		{
			Route: "reco sub", Description: descSub, Access: router.AccessOwnerOnly, Timeout: 15 * time.Second,
			Handle: reply(func(ctx context.Context, req *router.Request) string { return c.Subscribe(ctx, caller(req), req.Args) }),
		},
		{
			Route: "reco unsub", Aliases: []string{"td"}, Description: descUnsub, Timeout: 15 * time.Second,
			Handle: reply(func(ctx context.Context, req *router.Request) string { return c.Unsubscribe(ctx, caller(req)) }),
		},
		{
			Route: "reco reload", Description: descReload, Access: router.AccessOwnerOnly, Timeout: 30 * time.Second,
			Handle: reply(func(ctx context.Context, req *router.Request) string { return c.Reload(ctx, caller(req)) }),
		},
		{
			Route: "reco jobs", Description: descJobs, Access: router.AccessOwnerOnly,
			Handle: reply(func(_ context.Context, req *router.Request) string { return c.Jobs(caller(req)) }),
		},
		{
			Route: "reco help", Description: descHelp,
			Handle: reply(func(context.Context, *router.Request) string { return c.Help() }),
		},
	}
}
