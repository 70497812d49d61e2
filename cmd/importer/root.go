package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	configPath string
	tenant     string
	user       string
	workspace  string
	logLevel   string
}

func (g *globalFlags) tenantID() (uuid.UUID, error) {
	if g.tenant == "" {
		return uuid.Nil, fmt.Errorf("--tenant is required")
	}
	id, err := uuid.Parse(g.tenant)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --tenant: %w", err)
	}
	return id, nil
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "importer",
		Short:         "Batch import of business data exports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "Config file (default: config.toml in ., ./config or /etc/importer)")
	pf.StringVar(&g.tenant, "tenant", "", "Tenant UUID (required)")
	pf.StringVar(&g.user, "user", "", "Email of the user recorded as creator (default: the tenant's first user)")
	pf.StringVar(&g.workspace, "workspace", "", "Workspace name (default from config)")
	pf.StringVar(&g.logLevel, "log-level", "", "Override log level: debug, info, warn, error")

	cmd.AddCommand(
		newImportCmd(g, contactsCommand),
		newImportCmd(g, invoicesCommand),
		newImportCmd(g, prescriptionsCommand),
		newImportCmd(g, productsCommand),
		newRegistrySyncCmd(g),
		newMergeContactsCmd(g),
		newHistoryCmd(g),
	)
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
