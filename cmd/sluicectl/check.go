package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wayneeseguin/sluice/pkg/sluice"
)

func checkCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a configuration file",
		Long: `check reads a sluice YAML configuration, applies SLUICE_* environment
overrides and validates the result without opening any log files. On
success it prints the effective configuration as the engine would see it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := sluice.LoadConfig(configPath)
			if err != nil {
				return err
			}
			rendered, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("render configuration: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: configuration valid (%d appenders, %d routes)\n\n", configPath, len(cfg.Appenders), len(cfg.Routes))
			fmt.Fprint(out, string(rendered))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "sluice.yaml", "configuration file to validate")
	return cmd
}
