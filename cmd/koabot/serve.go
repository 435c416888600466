package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"koabot/internal/api"
	"koabot/internal/report"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetString("port"); v != "" {
				cfg.Port = v
			}
			if v, _ := cmd.Flags().GetString("driver"); v != "" {
				cfg.StoreDriver = v
			}
			if v, _ := cmd.Flags().GetString("sqlite-path"); v != "" {
				cfg.SQLitePath = v
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer a.Close()

			if err := a.db.CreateSchemas(ctx); err != nil {
				return fmt.Errorf("failed to create schema: %w", err)
			}

			srv := api.NewServer(a.svc, a.db.Store, api.Config{
				Port:           cfg.Port,
				APIKeys:        cfg.APIKeys,
				AllowedOrigins: cfg.AllowedOrigins,
			})
			if a.db.Audit != nil {
				srv.WithStats(a.db.Audit)
			}
			if cfg.S3Enabled {
				archive, err := report.NewArchive(archiveConfig(cfg))
				if err != nil {
					return err
				}
				if err := archive.EnsureBucket(ctx); err != nil {
					logrus.WithError(err).Warn("report archive unavailable")
				} else {
					srv.WithArchive(archive)
				}
			}

			return srv.Run(ctx)
		},
	}
	cmd.Flags().String("port", "", "HTTP port (env: PORT)")
	cmd.Flags().String("driver", "", "Store driver, sqlite or postgres (env: STORE_DRIVER)")
	cmd.Flags().String("sqlite-path", "", "SQLite database file (env: SQLITE_PATH)")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.db.CreateSchemas(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schemas are up to date.")
			return nil
		},
	}
}
