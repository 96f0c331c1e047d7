package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rpmkit",
		Short: "Build and inspect RPM packages without rpmbuild",
		Long: `Rpmkit writes binary RPM packages from a YAML or TOML manifest and an
optional staging tree, and reads them back.

Commands:
  - build    assemble a package, optionally signed with an OpenPGP key
  - inspect  print the metadata, file list or raw sections of a package
  - verify   check digests and cross-read a package with independent readers`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	rootCmd.AddCommand(NewBuildCmd())
	rootCmd.AddCommand(NewInspectCmd())
	rootCmd.AddCommand(NewVerifyCmd())

	return rootCmd
}
