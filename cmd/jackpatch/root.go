package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "jackpatch",
	Short: "jackpatch restores JACK connections for a session",
	Long: `jackpatch watches a JACK audio/MIDI graph, remembers the connections of a
session and re-creates them as clients appear, one request at a time.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "jackpatch.yaml", "Configuration file (missing file means defaults)")
}
