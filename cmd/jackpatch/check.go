package main

import (
	"github.com/aretw0/jackpatch/internal/cli"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <patch.xml>",
	Short: "Validate a patch file",
	Long:  `Parses a patch file and reports duplicates, unknown elements and malformed port names.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.Check(args[0], cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
