package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"planos/internal/config"
	"planos/internal/onboarding"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}
	cmd.AddCommand(newConfigInitCmd(opts), newConfigShowCmd(opts))
	return cmd
}

func newConfigInitCmd(opts *rootOptions) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create or edit the config interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			base, err := readConfigFile(opts.configPath)
			if err != nil {
				return err
			}
			if !plain {
				cfg, err := onboarding.RunTUI(base, opts.configPath)
				if err != nil {
					return err
				}
				if cfg == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "Setup cancelled, nothing saved.")
				}
				return nil
			}
			cfg, err := onboarding.NewWizard(cmd.InOrStdin(), cmd.OutOrStdout()).Run(base)
			if err != nil {
				return err
			}
			if err := config.Save(opts.configPath, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", opts.configPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "use line prompts instead of the full-screen form")
	return cmd
}

// readConfigFile loads the file as written, without environment overrides,
// so secrets from the environment are not copied into it.
func readConfigFile(path string) (*config.Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config.DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}
	cfg := config.DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// newConfigShowCmd prints the effective config with secrets removed.
func newConfigShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), cfg)
		},
	}
}
