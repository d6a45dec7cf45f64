package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"shrink/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.DefaultConfigPath()
			if err != nil {
				return err
			}
			if _, statErr := os.Stat(path); statErr == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := config.CreateSample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration file")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Config file", ctx.configPath},
				{"Input directory", cfg.Paths.InputDir},
				{"Output directory", cfg.Paths.OutputDir},
				{"Conf directory", cfg.Paths.ConfDir},
				{"Log directory", cfg.Paths.LogDir},
				{"Resolution folders", strings.Join(cfg.Watch.ResolutionRoots, ", ")},
				{"Video extensions", strings.Join(cfg.Watch.VideoExtensions, ", ")},
				{"Encoder profile", cfg.Encoder.Profile},
				{"Scan interval", fmt.Sprintf("%ds", cfg.Watch.ScanInterval)},
				{"Worker poll interval", fmt.Sprintf("%ds", cfg.Worker.PollInterval)},
				{"Rotation threshold", fmt.Sprintf("%d", cfg.Rotation.Threshold)},
				{"Ntfy topic", orNone(cfg.Notifications.NtfyTopic)},
				{"Log level", cfg.Logging.Level},
				{"Log format", cfg.Logging.Format},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Setting", "Value"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func orNone(value string) string {
	if strings.TrimSpace(value) == "" {
		return "(none)"
	}
	return value
}
