package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/doors-os/sdkk/sdkk/ioutil"
)

// decompressCmd represents the decompress command
var decompressCmd = &cobra.Command{
	Use:   "decompress file.sdkk.zst",
	Short: "Undo transport compression",
	Long: `Decompress recovers the original package from a compressed one. The
codec is picked from the file suffix (.zst or .br).`,
	Args: cobra.ExactArgs(1),
	RunE: runDecompress,
}

func init() {
	rootCmd.AddCommand(decompressCmd)
	decompressCmd.Flags().StringP("output", "o", "", "Output path (default: input without its codec suffix)")
}

func runDecompress(cmd *cobra.Command, args []string) error {

	out, _ := cmd.Flags().GetString("output")

	codec, err := ioutil.ByExt(args[0])
	if err != nil {
		return err
	}
	if out == "" {
		out = strings.TrimSuffix(args[0], codec.Ext())
	}

	in, err := os.Open(args[0])
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", args[0])
	}
	defer in.Close()

	dst, err := os.Create(out)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", out)
	}

	n, err := codec.Decompress(dst, in)
	if err != nil {
		dst.Close()
		os.Remove(out)
		return errors.Wrapf(err, "failed to decompress %s", args[0])
	}
	if err := dst.Close(); err != nil {
		os.Remove(out)
		return errors.Wrapf(err, "failed to finish %s", out)
	}

	fmt.Printf("%s: %d bytes\n", out, n)
	return nil
}
