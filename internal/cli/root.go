// Package cli defines the cobra command tree for onsight.
package cli

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"onsight/internal/config"
	"onsight/internal/db"
)

var (
	flagConfig string
	flagDB     string
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "onsight",
		Short:         "Track client visits and generate invoices",
		Long:          "A field-service companion: check in and out of client visits, match locations to your client list, and turn finished visits into invoices.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (default: ~/.onsight/onsight.db)")

	root.AddCommand(
		newServeCmd(),
		newAddUserCmd(),
		newVisitsCmd(),
		newVersionCmd(),
	)

	return root
}

// loadConfig reads the --config file, or returns defaults.
func loadConfig() (*config.Config, error) {
	if flagConfig == "" {
		return config.Default(), nil
	}
	return config.Load(flagConfig)
}

// openDB opens the SQLite database, preferring the --db flag, then the
// config path, then the default location.
func openDB(cfg *config.Config) (*sql.DB, error) {
	path := flagDB
	if path == "" {
		path = cfg.Database.Path
	}
	if path == "" {
		var err error
		path, err = db.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return db.Open(path)
}

// closeDB closes the database, logging any error to stderr.
func closeDB(database *sql.DB) {
	if err := database.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing database: %v\n", err)
	}
}
