package cmd

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/doors-os/sdkk/sdkk/reader"
)

// inspectCmd prints what a package says about itself. It trusts the
// entry table; use verify to check the payload against the header.
var inspectCmd = &cobra.Command{
	Use:   "inspect file.sdkk...",
	Short: "Show package metadata and the module table",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().Bool("dump", false, "Dump the decoded structures")
	inspectCmd.Flags().Bool("fingerprint", false, "Hash the whole file as well")
}

func runInspect(cmd *cobra.Command, args []string) error {

	dump, _ := cmd.Flags().GetBool("dump")
	withFingerprint, _ := cmd.Flags().GetBool("fingerprint")

	for _, path := range args {
		if err := inspectOne(path, dump, withFingerprint); err != nil {
			return err
		}
	}
	return nil
}

func inspectOne(path string, dump bool, withFingerprint bool) error {

	pkg, err := reader.Open(path)
	if err != nil {
		return err
	}
	defer pkg.Close()

	h := pkg.Header
	fmt.Printf("%s:\n", path)
	fmt.Printf("  name:           %s\n", h.Name)
	fmt.Printf("  version:        %s\n", h.PackageVersion)
	if h.Description != "" {
		fmt.Printf("  description:    %s\n", h.Description)
	}
	fmt.Printf("  modules:        %d\n", h.EntryCount)
	fmt.Printf("  data section:   %d bytes at %d\n", h.DataSize, h.DataOffset)
	fmt.Printf("  payload sha256: %x\n", h.DataSHA256)

	for _, e := range pkg.Entries() {
		fmt.Printf("  %-40s %10d bytes  %-11s %s\n", e.Path, e.Size, e.Type, e.Flags)
	}

	if withFingerprint {
		fp, err := pkg.Fingerprint()
		if err != nil {
			return err
		}
		fmt.Printf("  fingerprint:    %x\n", fp)
	}

	if dump {
		spew.Dump(h)
		spew.Dump(pkg.Entries())
	}
	return nil
}
