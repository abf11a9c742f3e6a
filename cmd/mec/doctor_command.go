package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mec/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, adapters, the browser and the broker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			r := preflight.Role(strings.ToLower(strings.TrimSpace(role)))
			switch r {
			case preflight.RoleAll, preflight.RoleScraper, preflight.RoleHandler:
			default:
				return fmt.Errorf("unknown role %q (expected all, scraper or handler)", role)
			}

			checkCtx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			results := preflight.RunAll(checkCtx, cfg, r)

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Preflight", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, res := range results {
				kind := statusOK
				if !res.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(res.Name, kind, res.Detail, colorize))
			}
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed", len(failed))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", string(preflight.RoleAll), "Checks to run: all, scraper or handler")
	return cmd
}
