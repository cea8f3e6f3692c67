package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"onsight/internal/logging"
	"onsight/internal/web"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "port to listen on (overrides config)")

	return cmd
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port != 0 {
		cfg.Server.Port = port
	}

	logging.Setup(cfg.DevMode)

	database, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB(database)

	srv, err := web.NewServer(database, cfg)
	if err != nil {
		return err
	}

	slog.Info("starting server", "port", cfg.Server.Port, "dev_mode", cfg.DevMode)
	return srv.ListenAndServe()
}
