package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Sakthi-S29/trackwise/internal/config"
	"github.com/Sakthi-S29/trackwise/internal/server"
)

func newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Start the TrackWise HTTP server exposing the ingest and query
endpoints for the configured variant. The server shuts down
gracefully on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return runServe(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")

	return cmd
}

func runServe(cmd *cobra.Command, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	ingestor, err := newIngestor(c)
	if err != nil {
		return err
	}
	query, err := newQueryService(c)
	if err != nil {
		return err
	}

	srv := server.New(ingestor, query, c.index, server.Options{
		Token:   cfg.Auth.Token,
		Local:   cfg.Variant == config.VariantLocal,
		Timeout: cfg.Server.Timeout,
	}, c.log.WithComponent("http"))

	fmt.Printf("TrackWise %s variant listening on %s\n", cfg.Variant, cfg.Server.Addr)
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}
