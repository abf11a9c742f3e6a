package main

import (
	"github.com/spf13/cobra"

	"mec/internal/daemonrun"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newDaemonRunCommand(ctx, daemonrun.RoleScraper, "Run the adapter dispatcher and outbox relay"),
		newDaemonRunCommand(ctx, daemonrun.RoleHandler, "Consume queued events and write RDF triples"),
	}
}

func newDaemonRunCommand(ctx *commandContext, role, short string) *cobra.Command {
	var skipPreflight bool
	cmd := &cobra.Command{
		Use:   role,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, role, daemonrun.Options{SkipPreflight: skipPreflight})
		},
	}
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Start even when startup checks fail")
	return cmd
}
