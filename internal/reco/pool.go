package reco

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	logx "recobot/pkg/logx"
)

// Catalog returns the items of one source.
type Catalog interface {
	Fetch(ctx context.Context, sourceID string) ([]Item, error)
}

type PoolConfig struct {
	// MaxPool caps the combined pool; larger pools are down-sampled uniformly.
	// 0 disables the cap.
	MaxPool      int
	FetchTimeout time.Duration
	MaxParallel  int
}

// Pool is the combined, source-tagged candidate set for one sampling run.
type Pool struct {
	Items   []Item
	Weights map[string]float64
	Failed  []string
}

type PoolBuilder struct {
	catalog Catalog
	cfg     PoolConfig
	log     logx.Logger
}

func NewPoolBuilder(catalog Catalog, cfg PoolConfig, log logx.Logger) *PoolBuilder {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 4
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &PoolBuilder{catalog: catalog, cfg: cfg, log: log}
}

// Build fetches every distinct source once and merges the results.
// A failing source contributes nothing; Build itself never fails.
func (b *PoolBuilder) Build(ctx context.Context, sources []LocatorSpec, rng *rand.Rand) Pool {
	weights := make(map[string]float64, len(sources))
	order := make([]string, 0, len(sources))
	for _, s := range sources {
		if !s.Valid() {
			continue
		}
		if _, seen := weights[s.SourceID]; !seen {
			order = append(order, s.SourceID)
		}
		// last one wins
		weights[s.SourceID] = s.Weight
	}

	results := make([][]Item, len(order))
	failed := make([]bool, len(order))

	var g errgroup.Group
	g.SetLimit(b.cfg.MaxParallel)
	for i, id := range order {
		g.Go(func() error {
			if ctx.Err() != nil {
				failed[i] = true
				return nil
			}
			fctx, cancel := context.WithTimeout(ctx, b.cfg.FetchTimeout)
			defer cancel()
			items, err := b.catalog.Fetch(fctx, id)
			if err != nil {
				b.log.Warn("source fetch failed", logx.String("source", id), logx.Err(err))
				failed[i] = true
				return nil
			}
			if len(items) == 0 {
				b.log.Warn("source returned no items", logx.String("source", id))
				failed[i] = true
				return nil
			}
			for j := range items {
				items[j].SourceID = id
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	p := Pool{Weights: weights}
	for i, items := range results {
		if failed[i] {
			p.Failed = append(p.Failed, order[i])
		}
		p.Items = append(p.Items, items...)
	}

	if b.cfg.MaxPool > 0 && len(p.Items) > b.cfg.MaxPool {
		rng.Shuffle(len(p.Items), func(i, j int) { p.Items[i], p.Items[j] = p.Items[j], p.Items[i] })
		p.Items = p.Items[:b.cfg.MaxPool]
	}
	return p
}
