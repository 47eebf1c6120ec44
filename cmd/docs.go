package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

// docsCmd regenerates the markdown command reference under ./docs/sdkk.
var docsCmd = &cobra.Command{
	Use:    "docs",
	Short:  "Generate markdown docs for the sdkk commands",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll("./docs/sdkk", 0775); err != nil {
			return err
		}
		return doc.GenMarkdownTree(rootCmd, "./docs/sdkk")
	},
}

func init() {
	rootCmd.AddCommand(docsCmd)
}
