package registry

import (
	"context"
	"sync"

	"recobot/internal/reco"
	"recobot/internal/storage"
	logx "recobot/pkg/logx"
)

// WindowRegistry holds the compiled time windows. It is hot-reloaded on its
// own, independent of sets and subscriptions.
type WindowRegistry struct {
	loadMu sync.Mutex
	doc    document

	mu      sync.RWMutex
	windows []reco.Window
}

func NewWindowRegistry(store storage.Store, format string, log logx.Logger) *WindowRegistry {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &WindowRegistry{
		doc:     document{name: storage.DocWindows, store: store, format: format, log: log},
		windows: reco.CompileWindows(reco.DefaultWindows(), log),
	}
}

// Load reads the window document, writing the defaults when it is missing.
// A malformed document keeps whatever windows were active before.
func (r *WindowRegistry) Load(ctx context.Context) (bool, error) {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()

	b, changed, err := r.doc.read(ctx)
	switch {
	case isNotFound(err):
		recs := reco.DefaultWindows()
		if err := r.doc.write(ctx, recs); err != nil {
			return false, err
		}
		r.set(reco.CompileWindows(recs, r.doc.log))
		r.doc.log.Info("time windows provisioned", logx.Int("windows", len(recs)))
		return true, nil
	case err != nil:
		return false, err
	case !changed:
		return false, nil
	}

	var recs []reco.WindowRecord
	if err := r.doc.decode(b, &recs); err != nil {
		r.doc.log.Warn("time window document rejected; keeping previous windows", logx.Err(err))
		return false, err
	}
	r.doc.seen(b)
	ws := reco.CompileWindows(recs, r.doc.log)
	r.set(ws)
	r.doc.log.Info("time windows loaded", logx.Int("windows", len(ws)), logx.Int("records", len(recs)))
	return true, nil
}

func (r *WindowRegistry) set(ws []reco.Window) {
	r.mu.Lock()
	r.windows = ws
	r.mu.Unlock()
}

// Windows returns the active windows. The slice must not be modified.
func (r *WindowRegistry) Windows() []reco.Window {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.windows
}
