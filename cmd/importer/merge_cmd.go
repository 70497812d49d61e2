package main

import (
	"context"
	"errors"

	"github.com/erp/importer/internal/application/dedupe"
	"github.com/erp/importer/internal/domain/bulk"
	"github.com/spf13/cobra"
)

func newMergeContactsCmd(g *globalFlags) *cobra.Command {
	var (
		execute bool
		minKeys int
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "merge-contacts",
		Short: "Find and merge duplicate customer contacts (dry run unless --execute)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if minKeys < 1 {
				return errors.New("--min-keys must be at least 1")
			}
			tenantID, err := g.tenantID()
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()

			opts := dedupe.Options{
				TenantID:  tenantID,
				Workspace: a.workspace(g),
				MinKeys:   minKeys,
				Execute:   execute,
			}
			run := func(ctx context.Context) error {
				report, err := a.merger.Run(ctx, opts)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), report)
				}
				_, err = report.WriteTo(cmd.OutOrStdout())
				return err
			}

			ctx := a.context(cmd.Context())
			if !execute {
				return run(ctx)
			}
			// merging rewrites contacts, so it excludes contact imports
			return a.withLock(ctx, tenantID, string(bulk.ImportEntityContacts), run)
		},
	}

	cmd.Flags().BoolVar(&execute, "execute", false, "Apply the merge (default: report only)")
	cmd.Flags().IntVar(&minKeys, "min-keys", 1, "Distinct key kinds (name, email, phone) two contacts must share to be merged")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}
