// Package commands implements the deepcompress CLI.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/deepcompress/deepcompress/internal/config"
	"github.com/deepcompress/deepcompress/internal/observability"
)

var (
	cfgFile string
	verbose bool

	cfg    *config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "deepcompress",
	Short: "Compress scanned documents into a token-efficient text encoding",
	Long: `deepcompress turns PDFs into a compact structured text encoding via an
OCR inference server, cutting the token count of the document while keeping
every entity, table, and text block recoverable.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Missing .env is fine, environment may be set directly.
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}

		if verbose {
			cfg.Observability.LogLevel = "debug"
		}
		logger = observability.NewLogger(observability.LogConfig{
			Level:  cfg.Observability.LogLevel,
			Format: cfg.Observability.LogFormat,
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
