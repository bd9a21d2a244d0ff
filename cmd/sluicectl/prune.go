package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wayneeseguin/sluice/pkg/features"
	"github.com/wayneeseguin/sluice/pkg/sluice"
)

func pruneCmd() *cobra.Command {
	var (
		configPath string
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete rotated log files that fell out of retention",
		Long: `prune scans the directory of every file appender that has both rotation
and a retention window, and removes rotated files whose entire period
ended before now minus the window. The active file and anything that does
not match the appender's rotation naming are never touched. A running
engine does the same scan on its own; prune covers engines configured
without retention sweeps or directories left behind by stopped ones.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := sluice.LoadConfig(configPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			verb := "removed"
			if dryRun {
				verb = "would remove"
			}

			scanned := 0
			total := 0
			failures := 0
			for i := range cfg.Appenders {
				ac := &cfg.Appenders[i]
				if ac.Kind != "" && ac.Kind != "file" {
					continue
				}
				window, err := ac.RetentionWindow()
				if err != nil {
					return err
				}
				policy, err := features.ParseRotationPolicy(ac.Rotation)
				if err != nil {
					return err
				}
				if window <= 0 || policy == features.RotateNone {
					continue
				}

				scanner := features.NewRetentionScanner(ac.Path, policy, window)
				scanner.DryRun = dryRun
				scanner.SetErrorHandler(func(source, dest, msg string, err error) {
					failures++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s %s: %v\n", ac.Name, msg, dest, err)
				})

				scanned++
				for _, path := range scanner.ScanOnce(time.Now()) {
					fmt.Fprintf(out, "%s %s\n", verb, path)
					total++
				}
			}

			if scanned == 0 {
				fmt.Fprintln(out, "no appenders with retention configured")
				return nil
			}
			fmt.Fprintf(out, "%s %d file(s) across %d appender(s)\n", verb, total, scanned)
			if failures > 0 {
				return fmt.Errorf("prune finished with %d error(s)", failures)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "sluice.yaml", "configuration file describing the appenders")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report expired files without deleting them")
	return cmd
}
