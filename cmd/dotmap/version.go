package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/dotmap"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of dotmap",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "dotmap version %s\n", strings.TrimSpace(dotmap.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
