package registry

import (
	"context"

	"recobot/internal/fswatch"
	"recobot/internal/storage"
	logx "recobot/pkg/logx"
)

// Watch reloads documents edited outside the bot. Windows are reloaded on
// their own; an edit to sets or subscriptions calls onRegistries so the caller
// can reload both and rebuild triggers. Stores that do not keep documents in
// files are not watched and Watch just waits for ctx.
func Watch(ctx context.Context, store storage.Store, windows *WindowRegistry, onRegistries func(ctx context.Context), log logx.Logger) error {
	loc, ok := store.(storage.Locator)
	if !ok {
		<-ctx.Done()
		return nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	windowsPath := loc.Path(storage.DocWindows)
	w := &fswatch.Watcher{
		Paths: []string{
			windowsPath,
			loc.Path(storage.DocSets),
			loc.Path(storage.DocSubscriptions),
		},
		Log: log,
		OnChange: func(ctx context.Context, path string) {
			if path == windowsPath {
				if _, err := windows.Load(ctx); err != nil {
					log.Warn("time window reload failed", logx.Err(err))
				}
				return
			}
			if onRegistries != nil {
				onRegistries(ctx)
			}
		},
	}
	return w.Run(ctx)
}
