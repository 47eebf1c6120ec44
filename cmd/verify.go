package cmd

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/doors-os/sdkk/sdkk/reader"
	"github.com/doors-os/sdkk/sdkk/writer"
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify file.sdkk...",
	Short: "Verify package integrity",
	Long: `Verify checks the header checksum, the entry table, and the payload
digest of each package. With --receipt, the build receipt is checked
against the file as well: the fingerprint, the payload digest, and every
per-module digest have to match.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().String("receipt", "", "Cross-check against a build receipt")
}

func runVerify(cmd *cobra.Command, args []string) error {

	receiptPath, _ := cmd.Flags().GetString("receipt")

	failed := 0
	for _, path := range args {
		if err := verifyOne(path, receiptPath); err != nil {
			log.Errorf("%s: %v", path, err)
			failed++
			continue
		}
		fmt.Printf("%s: OK\n", path)
	}
	if failed > 0 {
		return errors.Errorf("%d of %d packages failed verification", failed, len(args))
	}
	return nil
}

func verifyOne(path string, receiptPath string) error {

	pkg, err := reader.Open(path)
	if err != nil {
		return err
	}
	defer pkg.Close()

	if err := pkg.VerifyPayload(); err != nil {
		return err
	}

	if receiptPath == "" {
		return nil
	}
	rec, err := writer.ReadReceipt(receiptPath)
	if err != nil {
		return err
	}
	return checkReceipt(pkg, rec)
}

// checkReceipt compares a package against the receipt written at build
// time. The receipt carries its own digests, so a stale or swapped file
// shows up even when the package is internally consistent.
func checkReceipt(pkg *reader.Package, rec *writer.Receipt) error {

	h := pkg.Header
	if rec.Name != h.Name || rec.Version != h.PackageVersion {
		return errors.Errorf("receipt is for %s %s, file says %s %s",
			rec.Name, rec.Version, h.Name, h.PackageVersion)
	}
	if rec.EntryCount != h.EntryCount || rec.DataSize != h.DataSize {
		return errors.New("receipt geometry does not match the file")
	}
	if !bytes.Equal(rec.DataSHA256, h.DataSHA256[:]) {
		return errors.New("receipt payload digest does not match the file")
	}

	fp, err := pkg.Fingerprint()
	if err != nil {
		return err
	}
	if !bytes.Equal(rec.Fingerprint, fp) {
		return errors.Errorf("fingerprint mismatch: receipt has %x, file is %x", rec.Fingerprint, fp)
	}

	if len(rec.Entries) != len(pkg.Entries()) {
		return errors.New("receipt entry list does not match the file")
	}
	for _, re := range rec.Entries {
		rc, err := pkg.OpenEntry(re.Path)
		if err != nil {
			return err
		}
		sum := sha256.New()
		if _, err := io.Copy(sum, rc); err != nil {
			return errors.Wrapf(err, "failed to read module %q", re.Path)
		}
		if !bytes.Equal(sum.Sum(nil), re.SHA256) {
			return errors.Errorf("module %q does not match its receipt digest", re.Path)
		}
	}
	return nil
}
