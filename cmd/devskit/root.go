package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/devskit/config"
	"github.com/sarchlab/devskit/internal/cli"
)

var rootCmd = &cobra.Command{
	Use:   "devskit",
	Short: "devskit runs discrete-event simulations",
	Long: `devskit runs the bank scenario on a DEVS simulation kernel, saves
snapshots of the simulation and branches new runs from them.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().String("env", ".env", "environment file loaded before DEVSKIT_* variables are read")
	rootCmd.PersistentFlags().String("store", "", "snapshot store kind: dir, sqlite or redis")
	rootCmd.PersistentFlags().String("store-path", "", "snapshot directory or SQLite file")
	rootCmd.PersistentFlags().Bool("monitor", false, "serve the HTTP monitor while simulating")
	rootCmd.PersistentFlags().Bool("trace", false, "record every routed message into SQLite")
}

// newSession loads the configuration and applies the flags on top of it.
func newSession(cmd *cobra.Command) (*cli.Session, error) {
	path, _ := cmd.Flags().GetString("config")
	env, _ := cmd.Flags().GetString("env")

	cfg, err := config.Load(path, env)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("store") {
		cfg.Snapshot.Kind, _ = cmd.Flags().GetString("store")
	}

	if cmd.Flags().Changed("store-path") {
		cfg.Snapshot.Path, _ = cmd.Flags().GetString("store-path")
	}

	if cmd.Flags().Changed("monitor") {
		cfg.Monitor.Enabled, _ = cmd.Flags().GetBool("monitor")
	}

	if cmd.Flags().Changed("trace") {
		cfg.Trace.Enabled, _ = cmd.Flags().GetBool("trace")
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cli.NewSession(cfg), nil
}

// finish closes the session and prints the report.
func finish(cmd *cobra.Command, s *cli.Session, r *cli.Report, err error) error {
	closeErr := s.Close(context.Background())
	if err != nil {
		return err
	}

	if closeErr != nil {
		return closeErr
	}

	return cli.Print(cmd.OutOrStdout(), r)
}
