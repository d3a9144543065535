package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:           "arbor",
		Short:         "Incremental parsing and tree queries",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "configuration file (default .arbor.yaml)")
	flags.CountVarP(&a.verbosity, "verbose", "v", "increase log verbosity")
	flags.StringVar(&a.logFile, "log", "", "write logs to this file instead of stderr")
	flags.StringVar(&a.color, "color", "auto", "colorize output (auto, always, never)")

	rootCmd.AddCommand(newParseCmd(a))
	rootCmd.AddCommand(newQueryCmd(a))
	rootCmd.AddCommand(newEditCmd(a))
	rootCmd.AddCommand(newWatchCmd(a))
	rootCmd.AddCommand(newIndexCmd(a))
	rootCmd.AddCommand(newSearchCmd(a))
	rootCmd.AddCommand(newServeCmd(a))
	rootCmd.AddCommand(newTableCmd(a))
	rootCmd.AddCommand(newLanguagesCmd(a))
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
