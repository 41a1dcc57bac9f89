package main

import (
	"github.com/spf13/cobra"

	"recobot/internal/config"
	logx "recobot/pkg/logx"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "recobot",
		Short:         "Music recommendation bot for Telegram chats",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "./config.json", "path to the JSON or YAML config")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level of the offline commands")

	cmd.AddCommand(newRunCmd(opts), newSampleCmd(opts), newCheckCmd(opts))
	return cmd
}

// load parses the config for the offline commands, which never watch it.
func (o *rootOptions) load() (*config.Config, logx.Logger, error) {
	cfg, err := config.NewManager(o.configPath, logx.Nop()).Parse()
	if err != nil {
		return nil, logx.Logger{}, err
	}
	return cfg, logx.NewConsole(o.logLevel), nil
}
