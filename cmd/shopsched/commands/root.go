package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/shopsched/shopsched/pkg/infrastructure/telemetry"
)

var (
	// Global flags
	datasetPath string
	logLevel    string
	jsonOutput  bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "shopsched",
		Short: "Shop-floor scheduling engine",
		Long: `shopsched places manufacturing process instances on a machine fleet,
respecting dependencies, working hours, maintenance windows and
customer priority. It reports the resulting schedule, any conflicts,
and machine utilization.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	rootCmd.PersistentFlags().StringVarP(&datasetPath, "file", "f", "", "dataset file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newScheduleCommand())
	rootCmd.AddCommand(newValidateCommand())

	return rootCmd
}

func newLogger() zerolog.Logger {
	return telemetry.NewLogger(telemetry.Config{Level: logLevel, Console: true})
}
