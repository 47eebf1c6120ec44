package cmd

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/doors-os/sdkk/sdkk/ioutil"
)

// compressCmd represents the compress command
var compressCmd = &cobra.Command{
	Use:   "compress file.sdkk",
	Short: "Compress a finished package for shipping",
	Long: `Compress wraps a finished package in a transport codec. The package
bytes themselves are untouched; decompressing yields the identical file,
fingerprint and all.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompress,
}

func init() {
	rootCmd.AddCommand(compressCmd)
	compressCmd.Flags().String("algo", "zstd", "Codec: zstd or brotli")
	compressCmd.Flags().StringP("output", "o", "", "Output path (default: input plus the codec suffix)")
}

func runCompress(cmd *cobra.Command, args []string) error {

	algo, _ := cmd.Flags().GetString("algo")
	out, _ := cmd.Flags().GetString("output")

	codec, err := ioutil.ForAlgo(algo)
	if err != nil {
		return err
	}
	if out == "" {
		out = args[0] + codec.Ext()
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

	n, err := codec.Compress(dst, in)
	if err != nil {
		dst.Close()
		os.Remove(out)
		return errors.Wrapf(err, "failed to compress %s", args[0])
	}
	if err := dst.Close(); err != nil {
		os.Remove(out)
		return errors.Wrapf(err, "failed to finish %s", out)
	}

	fi, err := os.Stat(out)
	if err != nil {
		return err
	}
	if n > 0 {
		fmt.Printf("%s: %d -> %d bytes (%.1f%%)\n", out, n, fi.Size(), float64(fi.Size())/float64(n)*100)
	} else {
		fmt.Printf("%s: %d -> %d bytes\n", out, n, fi.Size())
	}
	return nil
}
