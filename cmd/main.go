package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"placement/internal/config"
	"placement/internal/logging"
)

var (
	// Global flags
	verbose  bool
	envFiles []string

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "placement",
	Short: "Placement evaluation: marks validation, interview results and bulk import",
	Long: `placement validates academic and interview marks, decides the interview
result and keeps the evaluations in a database.

Run "placement demo" for a single console report, "placement import" to load
CSV/XLSX marks sheets, or "placement serve" to start the HTTP API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(envFiles...)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "Dotenv files to load before reading the environment")

	demoCmd.Flags().StringVar(&demoOpts.name, "name", "Satheesh", "Student name")
	demoCmd.Flags().IntVar(&demoOpts.rollNo, "roll", 42, "Roll number")
	demoCmd.Flags().Float64Var(&demoOpts.start, "start", 25, "Start exam mark")
	demoCmd.Flags().Float64Var(&demoOpts.mid, "mid", 30, "Mid exam mark")
	demoCmd.Flags().Float64Var(&demoOpts.end, "end", 35, "End exam mark")
	demoCmd.Flags().Float64Var(&demoOpts.technical, "technical", 30, "Technical interview mark")
	demoCmd.Flags().Float64Var(&demoOpts.hr, "hr", 40, "HR interview mark")

	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(freqCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
