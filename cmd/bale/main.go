// Package main provides the bale CLI tool for compressing and decompressing
// framed streams.
package main

import (
	"errors"
	"os"

	"github.com/baletool/bale/internal/fileio"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Each fatal driver condition carries its own exit status.
		var fe *fileio.Error
		if errors.As(err, &fe) {
			os.Exit(int(fe.Code))
		}
		os.Exit(1)
	}
}
