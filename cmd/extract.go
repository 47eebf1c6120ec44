package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doors-os/sdkk/sdkk/reader"
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract file.sdkk [module...]",
	Short: "Unpack modules from a package",
	Long: `Extract writes modules out under a destination directory, recreating
their logical paths. With no module arguments, everything is extracted.`,
	Example: `  sdkk extract app.sdkk
  sdkk extract app.sdkk readme.txt -C /tmp/out`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringP("directory", "C", ".", "Destination directory")
}

func runExtract(cmd *cobra.Command, args []string) error {

	dir, _ := cmd.Flags().GetString("directory")

	pkg, err := reader.Open(args[0])
	if err != nil {
		return err
	}
	defer pkg.Close()

	names := args[1:]
	if len(names) == 0 {
		if err := pkg.ExtractAll(dir); err != nil {
			return err
		}
		fmt.Printf("extracted %d modules to %s\n", len(pkg.Entries()), dir)
		return nil
	}

	for _, name := range names {
		if err := pkg.Extract(name, dir); err != nil {
			return err
		}
		log.Debugf("extracted %s", name)
	}
	fmt.Printf("extracted %d modules to %s\n", len(names), dir)
	return nil
}
