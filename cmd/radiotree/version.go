package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/radiotree/radiotree-go/pkg/discovery"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("radiotree %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built: %s\n", date)
		fmt.Printf("  protocol: %d\n", discovery.ProtocolVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
