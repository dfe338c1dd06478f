package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/sarchlab/devskit/internal/cli"
)

var traceCmd = &cobra.Command{
	Use:   "trace [file]",
	Short: "Print the messages recorded by a traced run",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		opts := cli.TraceOptions{}
		if len(args) > 0 {
			opts.Path = args[0]
		}

		opts.Query.Kind, _ = flags.GetString("kind")
		opts.Query.Model, _ = flags.GetString("model")
		opts.Query.From, _ = flags.GetFloat64("from")
		opts.Query.Until, _ = flags.GetFloat64("until")
		opts.Query.Limit, _ = flags.GetInt("limit")
		opts.Query.Offset, _ = flags.GetInt("offset")

		t, err := s.ReadTrace(cmd.Context(), opts)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")

		return enc.Encode(t)
	},
}

func init() {
	rootCmd.AddCommand(traceCmd)

	traceCmd.Flags().String("kind", "", "only messages of this kind, such as output or a routing outcome")
	traceCmd.Flags().String("model", "", "only messages sent or received by this model")
	traceCmd.Flags().Float64("from", 0, "earliest simulated time")
	traceCmd.Flags().Float64("until", 0, "simulated time to stop before")
	traceCmd.Flags().Int("limit", 0, "maximum number of messages, 0 for all")
	traceCmd.Flags().Int("offset", 0, "number of matching messages to skip")
}
