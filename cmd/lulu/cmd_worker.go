package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lulu/internal/queue"
)

func newUsageWorkerCmd() *cobra.Command {
	cfg := queue.DefaultConsumerConfig()

	cmd := &cobra.Command{
		Use:   "usage-worker",
		Short: "Drain the usage queue into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			appCfg, store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if appCfg.RabbitMQURL == "" {
				return errors.New("RABBITMQ_URL is required for usage-worker")
			}

			conn, err := queue.NewConnection(appCfg.RabbitMQURL, slog.Default())
			if err != nil {
				return fmt.Errorf("connect usage queue: %w", err)
			}
			defer conn.Close()

			consumer := queue.NewUsageConsumer(conn, store, cfg, slog.Default())
			if err := consumer.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			slog.Info("stopping usage worker")
			consumer.Stop()
			return nil
		},
	}

	cmd.Flags().IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent consumers")
	cmd.Flags().IntVar(&cfg.Prefetch, "prefetch", cfg.Prefetch, "unacknowledged messages per consumer")
	cmd.Flags().DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "deadline for each database write")
	return cmd
}
