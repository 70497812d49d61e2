package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	importapp "github.com/erp/importer/internal/application/import"
	"github.com/erp/importer/internal/domain/bulk"
	"github.com/erp/importer/internal/domain/shared"
	"github.com/spf13/cobra"
)

func newHistoryCmd(g *globalFlags) *cobra.Command {
	var (
		entity string
		status string
		limit  int
		page   int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent import runs of the tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := g.tenantID()
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()

			runs, err := a.history.List(a.context(cmd.Context()), tenantID,
				importapp.ListHistoryFilter{EntityType: entity, Status: status},
				shared.Page{Number: page, Size: limit})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), runs)
			}
			return writeHistory(cmd.OutOrStdout(), runs)
		},
	}

	cmd.Flags().StringVar(&entity, "entity", "", "Filter by entity: contacts, invoices, prescriptions, products, rnc_registry, contact_merge")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status: pending, processing, completed, failed")
	cmd.Flags().IntVar(&limit, "limit", 20, "Runs per page")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the runs as JSON")
	return cmd
}

func writeHistory(w io.Writer, runs []*bulk.ImportHistory) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "no import runs")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tENTITY\tFILE\tSTATUS\tTOTAL\tIMPORTED\tSKIPPED\tSTARTED\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			r.RunID.String()[:8],
			r.EntityType,
			r.FileName,
			r.Status,
			r.TotalRows,
			r.SuccessRows,
			r.SkippedRows,
			formatTime(r.StartedAt),
			formatElapsed(r),
		)
		if r.FailReason != "" {
			fmt.Fprintf(tw, "\t\terror: %s\n", r.FailReason)
		}
	}
	return tw.Flush()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatElapsed(r *bulk.ImportHistory) string {
	if r.StartedAt == nil || r.CompletedAt == nil {
		return "-"
	}
	return r.Elapsed().Round(time.Millisecond).String()
}
