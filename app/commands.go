package main

import (
	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "1.0.0"

var (
	configFile  string
	exportOut   string
	exportTitle string

	rootCmd = &cobra.Command{
		Use:   "quickplan",
		Short: "QuickPlan task planning backend",
		Long:  "QuickPlan keeps an ordered list of tasks with budgeted subtasks and serves it over HTTP.",
		SilenceUsage: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Write the task list to an .xlsx file",
		Args:  cobra.NoArgs,
		RunE:  runExport,
	}

	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Print aggregate task figures as JSON",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to a YAML config file")
	rootCmd.Version = version

	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default <export.filename>.xlsx)")
	exportCmd.Flags().StringVar(&exportTitle, "title", "", "report title (default export.title)")

	rootCmd.AddCommand(serveCmd, exportCmd, statsCmd)
}
