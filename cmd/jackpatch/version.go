package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/jackpatch"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of jackpatch",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "jackpatch version %s\n", strings.TrimSpace(jackpatch.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
