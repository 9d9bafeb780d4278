// Package commands implements CLI command handlers for pyimports.
package commands

import (
	"github.com/spf13/cobra"
)

// GlobalOptions are the persistent flags shared by every command.
type GlobalOptions struct {
	ConfigPath string
	Verbose    bool
	Quiet      bool
	LogJSON    bool
}

// NewRootCommand creates the pyimports root command with find-imports and
// rename-imports attached.
func NewRootCommand() *cobra.Command {
	globals := &GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "pyimports",
		Short: "Find and rename Python module imports",
		Long: `pyimports locates and rewrites Python import statements across a source tree.

Commands:
  find-imports    List files importing a module
  rename-imports  Rewrite imports of one module to another`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&globals.ConfigPath, "config", "",
		"Config file (default: .pyimports.yaml in the working or home directory)")
	rootCmd.PersistentFlags().BoolVarP(&globals.Verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&globals.Quiet, "quiet", "q", false, "only log errors")
	rootCmd.PersistentFlags().BoolVar(&globals.LogJSON, "log-json", false, "log as JSON")

	rootCmd.AddCommand(NewFindCommand(globals))
	rootCmd.AddCommand(NewRenameCommand(globals))

	return rootCmd
}
