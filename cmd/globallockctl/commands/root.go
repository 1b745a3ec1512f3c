// Package commands implements the globallockctl command tree: a thin
// operational client over pkg/globallock's Azure-backed collaborators, for
// exercising acquire/release/extend/status from a shell.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// cfgFile is the persistent --config flag value.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "globallockctl",
	Short: "globallockctl - distributed lock coordinator client",
	Long: `globallockctl drives the globallock coordinator: it acquires, releases
and extends time-bounded exclusive leases on (resource, scope) pairs backed
by Azure Table Storage and Azure Blob Storage.

Use "globallockctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen once
// to rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/globallock/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(acquireCmd)
	rootCmd.AddCommand(releaseCmd)
	rootCmd.AddCommand(extendCmd)
	rootCmd.AddCommand(statusCmd)
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Printf("globallockctl %s (commit: %s, built: %s)\n", Version, Commit, Date)
		return nil
	},
}
