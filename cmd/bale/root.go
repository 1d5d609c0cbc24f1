package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/baletool/bale/internal/config"
)

var (
	// Global flags.
	force      bool
	verbosity  int
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "bale",
	Short: "Streaming framed file compression",
	Long: `Bale compresses files into self-delimiting framed streams and
decompresses them again, in constant memory regardless of file size.

The names "stdin", "stdout" and "null" are understood as sentinels for the
standard streams and a discard sink, so bale works in pipelines.

Examples:
  # Compress a file
  bale compress data.bin data.bin.bale

  # Decompress, overwriting without asking
  bale decompress -f data.bin.bale data.bin

  # Pipeline use
  tar -c dir | bale compress stdin stdout > dir.tar.bale

  # Integrity check without output
  bale decompress backup.bale null`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&force, "force", "f", false, "overwrite existing destination files without asking")
	rootCmd.PersistentFlags().IntVarP(&verbosity, "verbosity", "v", 2, "notification level (0-4)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "defaults file (default ~/"+config.DefaultFileName+")")
}

// loadDefaults merges the defaults file with whatever flags were set
// explicitly; a set flag always wins.
func loadDefaults(cmd *cobra.Command) (config.File, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.File{}, err
	}
	if cmd.Flags().Changed("force") {
		cfg.Force = force
	}
	if cmd.Flags().Changed("verbosity") {
		cfg.Verbosity = verbosity
	}
	return cfg, nil
}

// newLogger returns a development logger at the most verbose notification
// level and a silent one otherwise.
func newLogger(verbosity int) *zap.Logger {
	if verbosity >= 4 {
		logger, err := zap.NewDevelopment()
		if err == nil {
			return logger
		}
	}
	return zap.NewNop()
}
