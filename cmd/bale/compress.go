package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/baletool/bale"
)

var compressCmd = &cobra.Command{
	Use:   "compress SRC DST",
	Short: "Compress SRC into a framed stream at DST",
	Long: `Compress a file into a single self-delimiting frame.

SRC may be "stdin" and DST may be "stdout" or "null".

Examples:
  bale compress data.bin data.bin.bale
  bale compress -l 19 data.bin data.bin.bale
  cat data.bin | bale compress stdin stdout > data.bin.bale`,
	Args: cobra.ExactArgs(2),
	RunE: runCompress,
}

var level int

func init() {
	compressCmd.Flags().IntVarP(&level, "level", "l", 0, "compression effort level (default from config)")
	rootCmd.AddCommand(compressCmd)
}

func runCompress(cmd *cobra.Command, args []string) error {
	cfg, err := loadDefaults(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("level") {
		cfg.Level = level
	}

	client, err := bale.New(
		bale.WithLevel(cfg.Level),
		bale.WithOverwrite(cfg.Force),
		bale.WithVerbosity(cfg.Verbosity),
		bale.WithConsole(os.Stderr),
		bale.WithPromptInput(os.Stdin),
		bale.WithLogger(newLogger(cfg.Verbosity)),
	)
	if err != nil {
		return err
	}
	defer client.Close()

	_, err = client.CompressFile(args[1], args[0])
	return err
}
