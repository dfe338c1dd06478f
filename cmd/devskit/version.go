package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/devskit/internal/cli"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of devskit",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "devskit version %s\n", cli.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
