package main

import (
	"fmt"

	"github.com/kaskra/MLGV/internal/stereo"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mlgv version %s (SAD kernel: %s)\n", version, stereo.ActiveSADBackend)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
