package main

import (
	"fmt"

	"github.com/aretw0/jackpatch/internal/cli"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show [patch.xml]",
	Short: "Print a saved patch or the state of a running patcher",
	Example: `  jackpatch show session/jackpatch.xml
  jackpatch show --format mermaid session/jackpatch.xml
  jackpatch show --from http://localhost:7373`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.ShowOptions{}
		opts.From, _ = cmd.Flags().GetString("from")
		opts.Format, _ = cmd.Flags().GetString("format")
		if len(args) > 0 {
			opts.Path = args[0]
		}
		if opts.Path == "" && opts.From == "" {
			return fmt.Errorf("a patch file or --from is required")
		}
		return cli.Show(cmd.Context(), opts, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().String("from", "", "Base URL of a running patcher's control API")
	showCmd.Flags().StringP("format", "f", cli.FormatTable, "Output format: table, mermaid, xml, json")
}
