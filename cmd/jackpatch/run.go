package main

import (
	"github.com/aretw0/jackpatch/internal/cli"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [project-path]",
	Short: "Run the patcher",
	Long: `Connects to the JACK server and keeps its connections in line with the saved
patch of project-path (the patch lives at project-path.xml).

Send SIGUSR1 to save the current connections. SIGINT and SIGTERM stop the patcher.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.RunOptions{}
		opts.ConfigPath, _ = cmd.Flags().GetString("config")
		opts.Backend, _ = cmd.Flags().GetString("backend")
		opts.Store, _ = cmd.Flags().GetString("store")
		opts.Listen, _ = cmd.Flags().GetString("listen")
		opts.LogLevel, _ = cmd.Flags().GetString("log-level")
		opts.Quiet, _ = cmd.Flags().GetBool("quiet")
		if len(args) > 0 {
			opts.Project = args[0]
		}
		return cli.Execute(cmd.Context(), opts, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("backend", "", "Graph backend: dbus or sim")
	runCmd.Flags().String("store", "", "Patch store: file or redis")
	runCmd.Flags().StringP("listen", "l", "", "Serve the control API on this address (e.g. localhost:7373)")
	runCmd.Flags().String("log-level", "", "Log level: debug, info, warn, error")
	runCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner")
}
