package main

import (
	"fmt"
	"os"

	"github.com/arthur-debert/modsync/internal/cli"
	"github.com/arthur-debert/modsync/pkg/style"
)

func main() {
	rootCmd := cli.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, style.NewRenderer(style.DetectFormat(os.Stderr)).RenderError(err))
		os.Exit(1)
	}
}
