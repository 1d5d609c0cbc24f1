package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/baletool/bale"
)

var decompressCmd = &cobra.Command{
	Use:     "decompress SRC DST",
	Aliases: []string{"d"},
	Short:   "Decompress the frames of SRC into DST",
	Long: `Decompress a framed stream. Concatenated frames are decoded in
order, including frames written by older format revisions.

SRC may be "stdin" and DST may be "stdout" or "null".

Examples:
  bale decompress data.bin.bale data.bin
  bale decompress backup.bale null
  bale decompress stdin stdout < data.bin.bale > data.bin`,
	Args: cobra.ExactArgs(2),
	RunE: runDecompress,
}

func init() {
	rootCmd.AddCommand(decompressCmd)
}

func runDecompress(cmd *cobra.Command, args []string) error {
	cfg, err := loadDefaults(cmd)
	if err != nil {
		return err
	}

	client, err := bale.New(
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

	_, err = client.DecompressFile(args[1], args[0])
	return err
}
