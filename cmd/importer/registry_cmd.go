package main

import (
	"context"

	"github.com/erp/importer/internal/domain/bulk"
	"github.com/spf13/cobra"
)

func newRegistrySyncCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "dgii-sync [zip-or-txt]",
		Short: "Replace the taxpayer registry mirror with the published DGII file",
		Long: "Downloads the configured DGII registry ZIP, or reads a local ZIP or TXT\n" +
			"when a path is given, and replaces the registry table in one transaction.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := g.tenantID()
			if err != nil {
				return err
			}
			source := ""
			if len(args) == 1 {
				source = args[0]
			}

			a, err := newApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := a.context(cmd.Context())
			return a.withLock(ctx, tenantID, string(bulk.ImportEntityRNCRegistry), func(ctx context.Context) error {
				summary, err := a.service.SyncRegistry(ctx, tenantID, source)
				if err != nil {
					return err
				}
				_, err = summary.WriteTo(cmd.OutOrStdout())
				return err
			})
		},
	}
}
