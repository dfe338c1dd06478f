package main

import (
	"github.com/spf13/cobra"

	"github.com/sarchlab/devskit/examples/banksim"
	"github.com/sarchlab/devskit/internal/cli"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bank scenario",
	Long: `Runs a generator feeding a one-slot bank queue and a teller, and
prints the customers that were served. With --snapshot-at the simulation is
saved once the clock reaches that time.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		opts := cli.RunOptions{Scenario: banksim.DefaultConfig}
		opts.Scenario.Period, _ = flags.GetFloat64("period")
		opts.Scenario.ServiceTime, _ = flags.GetFloat64("service-time")
		opts.Scenario.Limit, _ = flags.GetInt("limit")
		opts.StartDelay, _ = flags.GetFloat64("start")
		opts.Until, _ = flags.GetFloat64("until")
		opts.SnapshotAt, _ = flags.GetFloat64("snapshot-at")
		opts.SnapshotName, _ = flags.GetString("snapshot-name")

		r, err := s.Run(cmd.Context(), opts)

		return finish(cmd, s, r, err)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Float64("period", banksim.DefaultConfig.Period, "time between two customers")
	runCmd.Flags().Float64("service-time", banksim.DefaultConfig.ServiceTime, "time the teller needs per customer")
	runCmd.Flags().Int("limit", 0, "number of customers to generate, 0 for no limit")
	runCmd.Flags().Float64("start", 0, "delay before the generator starts")
	runCmd.Flags().Float64("until", 10, "simulated time to run")
	runCmd.Flags().Float64("snapshot-at", -1, "simulated time at which to save a snapshot, negative for none")
	runCmd.Flags().String("snapshot-name", "", "name of the snapshot, a fresh id when empty")
}
