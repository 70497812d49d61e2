package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/erp/importer/internal/infrastructure/config"
	"github.com/erp/importer/internal/infrastructure/logger"
	"github.com/erp/importer/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

type tool struct {
	path       string
	configPath string
	logLevel   string
	log        *zap.Logger
}

func newRootCmd() *cobra.Command {
	t := &tool{}

	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply the importer schema migrations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return t.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if t.log != nil {
				logger.Sync(t.log)
			}
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&t.path, "path", "", "Migrations directory (default: the migrations embedded in the binary)")
	pf.StringVar(&t.configPath, "config", "", "Config file (default: config.toml in ., ./config or /etc/importer)")
	pf.StringVar(&t.logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	cmd.AddCommand(
		t.upCmd(),
		t.downCmd(),
		t.stepCmd(),
		t.versionCmd(),
		t.forceCmd(),
		t.createCmd(),
		t.listCmd(),
	)
	return cmd
}

func (t *tool) init() error {
	log, err := logger.New(logger.Config{
		Level:      t.logLevel,
		Format:     "console",
		TimeLayout: "2006-01-02 15:04:05",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	t.log = log

	if t.path != "" {
		if t.path, err = filepath.Abs(t.path); err != nil {
			return fmt.Errorf("invalid --path: %w", err)
		}
	}
	return nil
}

// withMigrator opens the configured database for the duration of fn
func (t *tool) withMigrator(fn func(*migration.Migrator) error) error {
	cfg, err := config.LoadFrom(t.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to reach database: %w", err)
	}

	m, err := migration.New(db, t.path, t.log)
	if err != nil {
		db.Close()
		return err
	}
	// closes db as well
	defer m.Close()
	return fn(m)
}

func (t *tool) upCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return t.withMigrator((*migration.Migrator).Up)
		},
	}
}

func (t *tool) downCmd() *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if !confirm {
				return errors.New("down drops the importer schema, pass --confirm")
			}
			return t.withMigrator((*migration.Migrator).Down)
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "Confirm dropping the schema")
	return cmd
}

func (t *tool) stepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "step <n>",
		Short: "Apply n migrations (positive = up, negative = down)",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid step count %q", args[0])
			}
			return t.withMigrator(func(m *migration.Migrator) error { return m.Steps(n) })
		},
	}
}

func (t *tool) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the applied migration version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return t.withMigrator(func(m *migration.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				return writeVersion(cmd.OutOrStdout(), version, dirty)
			})
		},
	}
}

func writeVersion(w io.Writer, version uint, dirty bool) error {
	var err error
	switch {
	case version == 0:
		_, err = fmt.Fprintln(w, "no migrations applied")
	case dirty:
		_, err = fmt.Fprintf(w, "%d (dirty)\n", version)
	default:
		_, err = fmt.Fprintln(w, version)
	}
	return err
}

func (t *tool) forceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "force <version>",
		Short: "Record a version as applied without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q", args[0])
			}
			return t.withMigrator(func(m *migration.Migrator) error { return m.Force(version) })
		},
	}
}

func (t *tool) createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name> [description]",
		Short: "Create a new up/down migration pair",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			// the embedded set is read-only, so create always targets a directory
			dir := t.path
			if dir == "" {
				dir = defaultMigrationsPath
			}
			description := ""
			if len(args) > 1 {
				description = args[1]
			}
			mf, err := migration.CreateMigration(dir, args[0], description, time.Now())
			if err != nil {
				return err
			}
			t.log.Info("Migration created",
				zap.String("version", mf.Version),
				zap.String("up_file", mf.UpPath),
				zap.String("down_file", mf.DownPath))
			return nil
		},
	}
}

func (t *tool) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fsys := migration.EmbeddedFS()
			if t.path != "" {
				fsys = os.DirFS(t.path)
			}
			return t.list(cmd.OutOrStdout(), fsys)
		},
	}
}

func (t *tool) list(w io.Writer, fsys fs.FS) error {
	names, err := migration.ListMigrations(fsys)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		_, err = fmt.Fprintln(w, "no migrations found")
		return err
	}
	for _, name := range names {
		fmt.Fprintln(w, "  -", name)
	}

	unpaired, err := migration.UnpairedMigrations(fsys)
	if err != nil {
		return err
	}
	for _, name := range unpaired {
		t.log.Warn("Migration has no matching up/down file", zap.String("migration", name))
	}
	return nil
}
