package manifest

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/doors-os/sdkk/sdkk/format"
	"github.com/doors-os/sdkk/sdkk/writer"
)

// Module is one file listed in a build manifest.
type Module struct {
	// Path inside the package
	Path string `yaml:"path"`
	// Source on the host; relative paths resolve against the manifest
	Source  string `yaml:"source"`
	Primary bool   `yaml:"primary"`
	// data, driver, or update; empty means data
	Type     string `yaml:"type"`
	ReadOnly bool   `yaml:"readonly"`
}

// Build is the YAML description of one package build.
type Build struct {
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version"`
	Description string   `yaml:"description"`
	Output      string   `yaml:"output"`
	Modules     []Module `yaml:"modules"`

	dir string
}

// Load parses a manifest file. Unknown keys are errors; a typo in a build
// manifest should not pass silently.
func Load(path string) (*Build, error) {

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	b := Build{}
	if err := yaml.UnmarshalStrict(raw, &b); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	b.dir = filepath.Dir(path)

	return &b, nil
}

// Request turns the manifest into a build request. Relative sources
// resolve against the manifest's own directory, so a manifest means the
// same thing no matter where the tool runs from.
func (b *Build) Request() (*writer.BuildRequest, error) {

	req := writer.BuildRequest{
		Name:        b.Name,
		Version:     b.Version,
		Description: b.Description,
		Modules:     make([]writer.Module, 0, len(b.Modules)),
	}

	for _, m := range b.Modules {
		mod := writer.Module{
			Path:     m.Path,
			Primary:  m.Primary,
			ReadOnly: m.ReadOnly,
		}
		if m.Type != "" {
			mt, err := format.ParseModuleType(m.Type)
			if err != nil {
				return nil, errors.Wrapf(err, "module %q", m.Path)
			}
			mod.Type = mt
		}
		// a module without a source keeps a nil Source; the builder's
		// validation owns that complaint
		if m.Source != "" {
			src := m.Source
			if !filepath.IsAbs(src) {
				src = filepath.Join(b.dir, src)
			}
			mod.Source = writer.FileSource(src)
		}
		req.Modules = append(req.Modules, mod)
	}

	return &req, nil
}

// OutputPath is where the package lands, resolved against the manifest
// directory. Empty when the manifest names no output.
func (b *Build) OutputPath() string {
	if b.Output == "" {
		return ""
	}
	if filepath.IsAbs(b.Output) {
		return b.Output
	}
	return filepath.Join(b.dir, b.Output)
}
