package app

import (
	"context"
	"errors"
	"fmt"

	"recobot/internal/catalog"
	"recobot/internal/config"
	"recobot/internal/reco"
	"recobot/internal/registry"
	"recobot/internal/storage"
	logx "recobot/pkg/logx"
)

// Core is the chat-independent part of the bot: storage, the three
// registries and the recommendation pipeline. The CLI uses it on its own.
type Core struct {
	Store         storage.Store
	Sets          *registry.SetRegistry
	Subscriptions *registry.SubscriptionRegistry
	Windows       *registry.WindowRegistry
	Catalog       *catalog.Client
	Recommender   *reco.Recommender
}

// OpenCore opens storage and builds the registries without loading them.
func OpenCore(cfg *config.Config, log logx.Logger) (*Core, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	sc := mapStorage(cfg)
	store, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	format := sc.Format
	regLog := log.With(logx.String("comp", "registry"))
	cat := catalog.New(mapCatalog(cfg), nil, log.With(logx.String("comp", "catalog")))
	pool := reco.NewPoolBuilder(cat, mapPool(cfg), log.With(logx.String("comp", "pool")))

	return &Core{
		Store:         store,
		Sets:          registry.NewSetRegistry(store, registry.SetOptions{Format: format}, regLog),
		Subscriptions: registry.NewSubscriptionRegistry(store, format, regLog),
		Windows:       registry.NewWindowRegistry(store, format, regLog),
		Catalog:       cat,
		Recommender:   reco.NewRecommender(pool, mapRecommender(cfg), log.With(logx.String("comp", "reco"))),
	}, nil
}

// Load reads every document. A malformed document leaves its registry on
// defaults and is reported in the joined error; the core stays usable.
func (c *Core) Load(ctx context.Context) error {
	var errs []error
	if _, err := c.Sets.Load(ctx); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", storage.DocSets, err))
	}
	if _, err := c.Subscriptions.Load(ctx); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", storage.DocSubscriptions, err))
	}
	if _, err := c.Windows.Load(ctx); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", storage.DocWindows, err))
	}
	return errors.Join(errs...)
}

func (c *Core) Close() error { return c.Store.Close() }
