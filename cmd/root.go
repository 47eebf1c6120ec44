package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var log = logrus.New()

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sdkk",
	Short: "sdkk builds, inspects, and verifies Doors SDKK packages",
	Long: `sdkk is the host-side tool for the Doors SDKK package format.

It assembles application packages from built binaries and data files,
verifies their integrity, and unpacks them again for inspection.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			log.SetLevel(logrus.DebugLevel)
		}
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = "1.0"
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Write detailed information to the terminal")
}
