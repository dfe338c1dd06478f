package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/devskit/internal/cli"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <snapshot>",
	Short: "Continue a simulation from a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		opts := cli.RestoreOptions{Name: args[0]}
		opts.Until, _ = flags.GetFloat64("until")
		opts.Restart, _ = flags.GetBool("restart")
		opts.StartDelay, _ = flags.GetFloat64("start")

		r, err := s.Restore(cmd.Context(), opts)

		return finish(cmd, s, r, err)
	},
}

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List the saved snapshots",
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}

		names, err := s.Snapshots(cmd.Context())
		if err != nil {
			return err
		}

		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(snapshotsCmd)

	restoreCmd.Flags().Float64("until", 10, "simulated time to run after the snapshot")
	restoreCmd.Flags().Bool("restart", false, "send a new start signal to the generator")
	restoreCmd.Flags().Float64("start", 0, "delay of the new start signal")
}
