// Command koabot runs the kitchen operations API and its offline tools.
//
// Usage:
//
//	koabot serve   [--port N] [--driver sqlite|postgres] [--sqlite-path FILE]
//	koabot parse   [-i FILE] [--pretty] [--trace] [--kind wastage] [--stats]
//	koabot report  --from YYYY-MM-DD --to YYYY-MM-DD [-o FILE] [--archive]
//	koabot migrate
//
// Settings are read from the environment, after loading .env when present.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"koabot/internal/config"
)

var version = "0.1.0"

// cfg is loaded once before any subcommand runs.
var cfg *config.Config

func main() {
	rootCmd := &cobra.Command{
		Use:   "koabot",
		Short: "Kitchen operations tracker",
		Long: `koabot records receptions, wastage and production typed by kitchen
staff as free-form item lines, and produces weekly reports.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// .env is optional.
			_ = godotenv.Load()
			cfg = config.Load()
			setupLogging(cfg)
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging(c *config.Config) {
	level, err := logrus.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stderr)
	if c.IsProduction() {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}
