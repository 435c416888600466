package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"koabot/internal/ops"
	"koabot/internal/report"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the weekly report to PDF",
		Long: `Render the report over the inclusive days --from..--to. Without
dates the current week, Monday to Sunday, is used.

Example:
  koabot report --from 2025-03-03 --to 2025-03-09 -o semana.pdf --archive`,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")
			outPath, _ := cmd.Flags().GetString("output")
			archive, _ := cmd.Flags().GetBool("archive")

			if from == "" && to == "" {
				from, to = ops.CurrentWeek(time.Now())
			}
			if outPath == "" {
				outPath = report.Filename(from, to)
			}

			ctx := context.Background()
			a, err := openApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			weekly, err := report.WeeklyReport(ctx, a.db.Store, from, to)
			if err != nil {
				return err
			}
			pdf, err := report.Bytes(weekly)
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, pdf, 0o644); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
			logrus.WithFields(logrus.Fields{
				"file":        outPath,
				"receptions":  len(weekly.Receptions),
				"wastages":    len(weekly.Wastages),
				"productions": len(weekly.Productions),
			}).Info("report written")

			if archive {
				arc, err := report.NewArchive(archiveConfig(cfg))
				if err != nil {
					return err
				}
				if err := arc.EnsureBucket(ctx); err != nil {
					return err
				}
				key, err := arc.Put(ctx, from, to, pdf)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Archived as %s/%s\n", cfg.S3Bucket, key)
			}
			return nil
		},
	}
	cmd.Flags().String("from", "", "First day, YYYY-MM-DD")
	cmd.Flags().String("to", "", "Last day, YYYY-MM-DD")
	cmd.Flags().StringP("output", "o", "", "Output PDF (default: reporte-semanal-<from>-<to>.pdf)")
	cmd.Flags().Bool("archive", false, "Also upload the report to S3")
	return cmd
}
