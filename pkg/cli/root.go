// Package cli implements the pkgindexctl admin tool. It operates directly on
// the index database, bypassing HTTP, and acts with the configured admin
// identity.
package cli

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"pkgindex/internal/app"
	"pkgindex/internal/config"
	internaldb "pkgindex/internal/db"
	"pkgindex/internal/domain"
)

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// env bundles everything a subcommand needs once the database is open.
type env struct {
	cfg      *config.Config
	writeDB  *sql.DB
	readDB   *sql.DB
	services app.Services
	caller   domain.Principal
}

func (e *env) close() {
	_ = e.writeDB.Close()
	_ = e.readDB.Close()
}

// openEnv loads config, opens the database, runs migrations, and wires the
// service layer. The caller is the configured admin account so every
// operation passes authorization.
func openEnv(dbPath string) (*env, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	writeDB, readDB, err := internaldb.OpenSQLitePair(cfg.DBPath, 2)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := internaldb.RunMigrations(writeDB); err != nil {
		writeDB.Close()
		readDB.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := app.New(app.Deps{Cfg: cfg, WriteDB: writeDB, ReadDB: readDB, Logger: logger})

	return &env{
		cfg:      cfg,
		writeDB:  writeDB,
		readDB:   readDB,
		services: a.Services,
		caller:   domain.Admin{Username: cfg.Auth.AdminUsername},
	}, nil
}

func newRootCmd() *cobra.Command {
	var dbPath string

	rootCmd := &cobra.Command{
		Use:           "pkgindexctl",
		Short:         "Administer a package index database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the index database (overrides DB_PATH)")

	rootCmd.AddCommand(
		newMigrateCmd(&dbPath),
		newUserCmd(&dbPath),
		newGroupCmd(&dbPath),
		newTokenCmd(&dbPath),
		newGrantCmd(&dbPath),
	)
	return rootCmd
}

func newMigrateCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(*dbPath)
			if err != nil {
				return err
			}
			defer e.close()
			fmt.Fprintf(cmd.OutOrStdout(), "database %s is up to date\n", e.cfg.DBPath)
			return nil
		},
	}
}
