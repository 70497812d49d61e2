package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	importapp "github.com/erp/importer/internal/application/import"
	"github.com/erp/importer/internal/domain/bulk"
	csvimport "github.com/erp/importer/internal/infrastructure/import"
	"github.com/spf13/cobra"
)

// importCommand describes one file import subcommand
type importCommand struct {
	use    string
	short  string
	entity bulk.ImportEntityType
}

var (
	contactsCommand = importCommand{
		use:    "contacts [file]",
		short:  "Import customer contacts",
		entity: bulk.ImportEntityContacts,
	}
	invoicesCommand = importCommand{
		use:    "invoices [file]",
		short:  "Import invoices grouped by document number",
		entity: bulk.ImportEntityInvoices,
	}
	prescriptionsCommand = importCommand{
		use:    "prescriptions [file]",
		short:  "Import optical prescriptions",
		entity: bulk.ImportEntityPrescriptions,
	}
	productsCommand = importCommand{
		use:    "products [file]",
		short:  "Import products and generate SKUs",
		entity: bulk.ImportEntityProducts,
	}
)

// sourceFlags are the input options shared by file imports
type sourceFlags struct {
	batchFolder string
	noHeader    bool
	limit       int
	offset      int
	delimiter   string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.batchFolder, "batch-folder", "", "Import every .csv, .txt and .xlsx file of this folder")
	cmd.Flags().BoolVar(&f.noHeader, "no-header", false, "Treat the first line as data and map columns by position")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "Import at most N data rows per file (0 = all)")
	cmd.Flags().IntVar(&f.offset, "offset", 0, "Skip the first N data rows of each file")
	cmd.Flags().StringVar(&f.delimiter, "delimiter", "", "Field delimiter: one character or \"tab\" (default: detected)")
}

// options validates the flags against the positional arguments
func (f *sourceFlags) options(args []string) (csvimport.SourceOptions, error) {
	switch {
	case f.batchFolder == "" && len(args) == 0:
		return csvimport.SourceOptions{}, errors.New("a file or --batch-folder is required")
	case f.batchFolder != "" && len(args) > 0:
		return csvimport.SourceOptions{}, errors.New("use either a file or --batch-folder, not both")
	case f.limit < 0:
		return csvimport.SourceOptions{}, errors.New("--limit must not be negative")
	case f.offset < 0:
		return csvimport.SourceOptions{}, errors.New("--offset must not be negative")
	}

	delimiter, err := parseDelimiter(f.delimiter)
	if err != nil {
		return csvimport.SourceOptions{}, err
	}
	return csvimport.SourceOptions{
		Delimiter: delimiter,
		NoHeader:  f.noHeader,
		Offset:    f.offset,
		Limit:     f.limit,
	}, nil
}

// parseDelimiter accepts a single character, "tab" or "\t"; empty detects
func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case "tab", `\t`, "\t":
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || r == utf8.RuneError {
		return 0, fmt.Errorf("invalid --delimiter %q: want a single character", s)
	}
	if r == '"' || r == '\n' || r == '\r' {
		return 0, fmt.Errorf("invalid --delimiter %q", s)
	}
	return r, nil
}

func newImportCmd(g *globalFlags, ic importCommand) *cobra.Command {
	var src sourceFlags

	cmd := &cobra.Command{
		Use:   ic.use,
		Short: ic.short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := src.options(args)
			if err != nil {
				return err
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

			req := importapp.Request{
				Entity:    ic.entity,
				TenantID:  tenantID,
				Workspace: a.workspace(g),
				UserEmail: g.user,
				Source:    opts,
			}
			out := cmd.OutOrStdout()
			ctx := a.context(cmd.Context())

			return a.withLock(ctx, tenantID, string(ic.entity), func(ctx context.Context) error {
				if src.batchFolder == "" {
					req.Path = args[0]
					summary, err := a.service.ImportFile(ctx, req)
					if err != nil {
						return err
					}
					_, err = summary.WriteTo(out)
					return err
				}

				total, perFile, err := a.service.ImportFolder(ctx, src.batchFolder, req)
				if werr := writeFolderSummaries(out, total, perFile); werr != nil && err == nil {
					err = werr
				}
				return err
			})
		},
	}
	src.register(cmd)
	return cmd
}

func writeFolderSummaries(w io.Writer, total *importapp.Summary, perFile []*importapp.Summary) error {
	for _, s := range perFile {
		if _, err := s.WriteTo(w); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	if total == nil || len(perFile) < 2 {
		return nil
	}
	fmt.Fprintf(w, "== %d files ==\n", len(perFile))
	_, err := total.WriteTo(w)
	return err
}
