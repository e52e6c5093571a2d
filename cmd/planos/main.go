package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"planos/internal/app"
	"planos/internal/config"
	appLog "planos/internal/log"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "planos",
		Short:         "Weekly planner with a natural-language event assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", envOr("PLANOS_CONFIG", "planos.yaml"), "path to the YAML config")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log_level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(opts),
		newInterpretCmd(opts),
		newWeekCmd(opts),
		newLayoutCmd(),
		newTUICmd(opts),
		newTelegramCmd(opts),
		newConfigCmd(opts),
	)
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// loadConfig reads the config and applies the log level.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", o.configPath, err)
	}
	level := cfg.LogLevel
	if o.logLevel != "" {
		level = o.logLevel
	}
	appLog.SetLevel(appLog.ParseLevel(level))
	return cfg, nil
}

func (o *rootOptions) openApp() (*app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(cfg)
}
