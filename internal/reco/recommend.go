package reco

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"time"

	logx "recobot/pkg/logx"
)

type RecommenderConfig struct {
	Banner string
	// Seed makes every run reproducible when set.
	Seed *int64
}

// Result is the outcome of one recommendation run. Text is always
// user-presentable, including for empty or ineligible pools.
type Result struct {
	Items    []Item
	PoolSize int
	Failed   []string
	Text     string
}

// Recommender ties the pool builder, the sampler and the formatter together.
type Recommender struct {
	pool *PoolBuilder
	cfg  atomic.Pointer[RecommenderConfig]
	seq  atomic.Uint64
	log  logx.Logger
}

func NewRecommender(pool *PoolBuilder, cfg RecommenderConfig, log logx.Logger) *Recommender {
	if log.IsZero() {
		log = logx.Nop()
	}
	r := &Recommender{pool: pool, log: log}
	r.cfg.Store(&cfg)
	return r
}

// Apply swaps banner and seed at runtime.
func (r *Recommender) Apply(cfg RecommenderConfig) { r.cfg.Store(&cfg) }

// NewRand returns a generator for a single run. Runs never share state.
func (r *Recommender) NewRand() *rand.Rand {
	cfg := r.cfg.Load()
	if cfg.Seed != nil {
		return rand.New(rand.NewSource(*cfg.Seed))
	}
	seed := time.Now().UnixNano() ^ int64(r.seq.Add(1)<<20)
	return rand.New(rand.NewSource(seed))
}

// Recommend builds the pool for sources and samples n items from it.
// ErrEmptyPool and ErrNoEligibleSource come back together with their
// user-facing text.
func (r *Recommender) Recommend(ctx context.Context, sources []LocatorSpec, n int) (Result, error) {
	cfg := r.cfg.Load()
	rng := r.NewRand()

	p := r.pool.Build(ctx, sources, rng)
	res := Result{PoolSize: len(p.Items), Failed: p.Failed}

	items, err := Sample(rng, p.Items, p.Weights, n)
	switch {
	case errors.Is(err, ErrEmptyPool):
		res.Text = NoDataText
		return res, err
	case errors.Is(err, ErrNoEligibleSource):
		res.Text = NoEligibleText
		return res, err
	case err != nil:
		return res, err
	}

	res.Items = items
	res.Text = FormatListing(cfg.Banner, items)
	r.log.Debug("recommendation built",
		logx.Int("sources", len(p.Weights)),
		logx.Int("pool", len(p.Items)),
		logx.Int("picked", len(items)),
		logx.Int("failed_sources", len(p.Failed)),
	)
	return res, nil
}
