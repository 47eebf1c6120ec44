package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/doors-os/sdkk/sdkk/format"
	"github.com/doors-os/sdkk/sdkk/manifest"
	"github.com/doors-os/sdkk/sdkk/writer"
)

// createCmd represents the create command
var createCmd = &cobra.Command{
	Use:   "create [out.sdkk]",
	Short: "Create an SDKK package",
	Long: `Create assembles a package from a manifest or from --file flags.

With --manifest, the module list comes from a YAML build manifest and the
output path from its output field (a positional argument wins if both are
given). Without one, --name, --pkg-version, and at least one --file are
required. Each --file names a module as LOGICAL=HOST; a bare host path is
stored under its base name.`,
	Example: `  sdkk create --manifest sdkk.yaml
  sdkk create out.sdkk --name MyApplication --pkg-version 1.0 \
      --file app.bin=build/app.bin --file readme.txt=README.md --primary app.bin`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCreate,
}

func init() {
	rootCmd.AddCommand(createCmd)
	createCmd.Flags().String("manifest", "", "Build from a YAML manifest")
	createCmd.Flags().String("name", "", "Package name")
	createCmd.Flags().String("pkg-version", "", "Package version string")
	createCmd.Flags().String("description", "", "Package description")
	createCmd.Flags().StringArray("file", nil, "Module as LOGICAL=HOST (repeatable)")
	createCmd.Flags().String("primary", "", "Logical path of the primary module")
	createCmd.Flags().Bool("receipt", false, "Write a build receipt next to the package")
}

func runCreate(cmd *cobra.Command, args []string) error {

	manifestPath, _ := cmd.Flags().GetString("manifest")

	out := ""
	if len(args) == 1 {
		out = args[0]
	}

	var req *writer.BuildRequest
	if manifestPath != "" {
		build, err := manifest.Load(manifestPath)
		if err != nil {
			return err
		}
		req, err = build.Request()
		if err != nil {
			return err
		}
		if out == "" {
			out = build.OutputPath()
		}
	} else {
		var err error
		req, err = requestFromFlags(cmd)
		if err != nil {
			return err
		}
	}

	if out == "" {
		return errors.New("no output path: give one as an argument or in the manifest")
	}

	res, err := writer.CreateFile(out, req, writer.WithProgress(func(line string) {
		log.Info(line)
	}))
	if err != nil {
		return err
	}

	fmt.Printf("wrote %s: %s %s, %d modules, %d bytes\n", out, res.Name, res.Version, res.EntryCount, res.TotalSize)
	fmt.Printf("fingerprint %x\n", res.Fingerprint)

	if withReceipt, _ := cmd.Flags().GetBool("receipt"); withReceipt {
		rp := writer.ReceiptPath(out)
		if err := writer.NewReceipt(res).WriteFile(rp); err != nil {
			return err
		}
		fmt.Printf("receipt %s\n", rp)
	}
	return nil
}

func requestFromFlags(cmd *cobra.Command) (*writer.BuildRequest, error) {

	name, _ := cmd.Flags().GetString("name")
	version, _ := cmd.Flags().GetString("pkg-version")
	description, _ := cmd.Flags().GetString("description")
	files, _ := cmd.Flags().GetStringArray("file")
	primary, _ := cmd.Flags().GetString("primary")

	req := &writer.BuildRequest{
		Name:        name,
		Version:     version,
		Description: description,
	}

	for _, spec := range files {
		logical, host, found := strings.Cut(spec, "=")
		if !found {
			host = logical
			logical = filepath.Base(host)
		}
		req.Modules = append(req.Modules, writer.Module{
			Path:   logical,
			Source: writer.FileSource(host),
		})
	}

	// A single module package needs no --primary; there is only one candidate.
	if primary == "" && len(req.Modules) == 1 {
		req.Modules[0].Primary = true
		return req, nil
	}

	if primary != "" {
		want := format.NormalizePath(primary)
		found := false
		for i := range req.Modules {
			if format.NormalizePath(req.Modules[i].Path) == want {
				req.Modules[i].Primary = true
				found = true
			}
		}
		if !found {
			return nil, errors.Errorf("--primary %q does not match any --file", primary)
		}
	}

	return req, nil
}
