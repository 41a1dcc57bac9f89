// Package fswatch reports edits to a fixed set of files.
//
// Editors replace files in many ways (truncate+write, write+rename, remove
// then create), so the parent directories are watched and events are matched
// by base name. Each file's callback is debounced so a burst of events
// produces one call.
package fswatch

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	logx "recobot/pkg/logx"
)

const (
	DefaultDebounce = 250 * time.Millisecond

	restartBackoffBase = 250 * time.Millisecond
	restartBackoffMax  = 5 * time.Second
)

type Watcher struct {
	// Paths to watch. OnChange receives the path exactly as listed here.
	Paths    []string
	Debounce time.Duration
	OnChange func(ctx context.Context, path string)
	Log      logx.Logger
}

// Run blocks until ctx is done. A broken fsnotify watcher is recreated with a
// jittered exponential backoff; Run only returns nil.
func (w *Watcher) Run(ctx context.Context) error {
	log := w.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	byDir := map[string]map[string]string{}
	for _, p := range w.Paths {
		dir, base := filepath.Dir(p), strings.ToLower(filepath.Base(p))
		if byDir[dir] == nil {
			byDir[dir] = map[string]string{}
		}
		byDir[dir][base] = p
	}
	if len(byDir) == 0 {
		<-ctx.Done()
		return nil
	}

	var (
		mu     sync.Mutex
		timers = map[string]*time.Timer{}
	)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
	}()
	schedule := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		if t := timers[path]; t != nil {
			t.Stop()
		}
		timers[path] = time.AfterFunc(debounce, func() {
			if ctx.Err() == nil {
				w.OnChange(ctx, path)
			}
		})
	}
	all := func() {
		for _, p := range w.Paths {
			schedule(p)
		}
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	backoff := restartBackoffBase
	sleep := func(reason string, err error) bool {
		wait := backoff + time.Duration(rng.Int63n(int64(backoff/2)+1))
		backoff = min(backoff*2, restartBackoffMax)
		log.Warn(reason, logx.Err(err), logx.Duration("backoff", wait))
		select {
		case <-ctx.Done():
			return false
		case <-time.After(wait):
			return true
		}
	}

	for ctx.Err() == nil {
		fw, err := fsnotify.NewWatcher()
		if err != nil {
			if !sleep("file watch init failed", err) {
				return nil
			}
			continue
		}
		var addErr error
		for dir := range byDir {
			if addErr = fw.Add(dir); addErr != nil {
				break
			}
		}
		if addErr != nil {
			_ = fw.Close()
			if !sleep("file watch add failed", addErr) {
				return nil
			}
			continue
		}
		backoff = restartBackoffBase
		log.Debug("file watcher started", logx.Int("files", len(w.Paths)))

		broken := false
		for !broken {
			select {
			case <-ctx.Done():
				_ = fw.Close()
				return nil
			case ev, ok := <-fw.Events:
				if !ok {
					broken = true
					continue
				}
				if p, hit := byDir[filepath.Dir(ev.Name)][strings.ToLower(filepath.Base(ev.Name))]; hit {
					log.Debug("file change detected", logx.String("path", p), logx.String("op", ev.Op.String()))
					schedule(p)
				}
			case err, ok := <-fw.Errors:
				switch {
				case !ok:
					broken = true
				case errors.Is(err, fsnotify.ErrEventOverflow):
					log.Warn("file watch overflow; reloading everything", logx.Err(err))
					all()
				case err != nil:
					log.Warn("file watch error", logx.Err(err))
					if errors.Is(err, fsnotify.ErrClosed) {
						broken = true
					}
				}
			}
		}
		_ = fw.Close()
		if !sleep("file watcher stopped; restarting", nil) {
			return nil
		}
	}
	return nil
}
