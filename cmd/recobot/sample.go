package main

import (
	"cmp"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"recobot/internal/app"
	"recobot/internal/reco"
	"recobot/internal/registry"
)

type sampleOptions struct {
	count int
	seed  int64
}

func newSampleCmd(root *rootOptions) *cobra.Command {
	opts := &sampleOptions{}
	cmd := &cobra.Command{
		Use:   "sample [set | locators]",
		Short: "Print one recommendation listing and exit",
		Long: `Samples a recommendation set once, exactly as a scheduled firing would,
and prints the listing. The argument is a set name from the registry or a
comma-separated list of playlist locators (url|weight). Without an argument
the configured default set is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := root.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				cfg.Reco.Seed = &opts.seed
			}
			core, err := app.OpenCore(cfg, log)
			if err != nil {
				return err
			}
			defer core.Close()
			if err := core.Load(cmd.Context()); err != nil {
				log.Warn(err.Error())
			}

			sources, ignored, err := resolveSources(core, cfg.Reco.DefaultSet, args)
			if err != nil {
				return err
			}
			for _, s := range ignored {
				cmd.PrintErrf("ignored locator %q\n", s)
			}
			n := opts.count
			if n <= 0 {
				n = max(cfg.Reco.DefaultOutputCount, 3)
			}
			res, err := core.Recommender.Recommend(cmd.Context(), sources, n)
			for _, id := range res.Failed {
				cmd.PrintErrf("source %s could not be fetched\n", id)
			}
			cmd.Println(res.Text)
			if err != nil && !errors.Is(err, reco.ErrEmptyPool) && !errors.Is(err, reco.ErrNoEligibleSource) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&opts.count, "count", "n", 0, "number of items (default reco.default_output_count)")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "fixed random seed")
	return cmd
}

// resolveSources treats arg as a set name first, then as a locator list.
func resolveSources(core *app.Core, defaultSet string, args []string) ([]reco.LocatorSpec, []string, error) {
	arg := cmp.Or(strings.TrimSpace(defaultSet), registry.DefaultSetName)
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		arg = strings.TrimSpace(args[0])
	}
	if set, ok := core.Sets.Get(arg); ok {
		return set.Sources, nil, nil
	}
	sources, invalid := reco.ParseLocatorList(arg)
	if len(sources) == 0 {
		return nil, nil, fmt.Errorf("%q is neither a known set nor a locator list: %w", arg, registry.ErrUnknownSetName)
	}
	return sources, invalid, nil
}
