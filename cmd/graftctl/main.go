// Command graftctl is a read-only inspection CLI for a Graft volume
// store: it opens a store's database directly (no running server
// required) and prints volume state, pending-recovery volumes, and a
// volume's commit log. It never mutates the store — every subcommand
// goes through VolumeState/QueryAllVolumes/LoadCommitRangeForInspection.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/graft-kv/graft/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "graftctl",
	Short:   "graftctl inspects a Graft volume store database",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("graftctl version %s\ncommit: %s\n", Version, Commit))

	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("db", "", "Path to the store's database file (overrides the connection file's db_path)")
	rootCmd.PersistentFlags().String("config", "", "Path to a connection config file (default: $HOME/.graftctl.yaml)")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(volumeCmd)
	rootCmd.AddCommand(recoveryCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	log.Init(log.Config{Level: log.Level(level)})
}
