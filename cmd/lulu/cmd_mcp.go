package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lulu/internal/api"
	mcpserver "github.com/felixgeelhaar/lulu/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the tutoring tools over MCP on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			cfg, store, err := openStore(ctx)
			if err != nil {
				return err
			}

			app, err := api.NewApp(ctx, api.AppConfig{
				Config: cfg,
				Store:  store,
				Logger: slog.Default(),
			})
			if err != nil {
				store.Close()
				return fmt.Errorf("create app: %w", err)
			}
			defer app.Close()

			srv := mcpserver.NewServer(mcpserver.Config{
				Tutor:   app.Tutor,
				Usage:   app.Usage,
				Quota:   app.Limiter,
				Version: Version,
			})
			return srv.ServeStdio(ctx)
		},
	}
}
