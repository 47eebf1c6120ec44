package reader

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/doors-os/sdkk/sdkk/format"
)

// Extract writes one module under dir, recreating its logical
// subdirectories. Executables come out 0755, everything else 0644.
func (p *Package) Extract(name string, dir string) error {
	e, err := p.Lookup(name)
	if err != nil {
		return err
	}
	return p.extractEntry(e, dir)
}

// ExtractAll writes every module under dir.
func (p *Package) ExtractAll(dir string) error {
	for i := range p.entries {
		if err := p.extractEntry(&p.entries[i], dir); err != nil {
			return err
		}
	}
	return nil
}

func (p *Package) extractEntry(e *Entry, dir string) error {

	// stored names are untrusted input; nothing gets to escape dir
	name := format.NormalizePath(e.Path)
	if !format.ValidPath(name) {
		return errors.Wrapf(format.ErrMalformedRecord, "refusing to extract %q", e.Path)
	}

	target := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.Wrapf(err, "failed to make directories for %q", name)
	}

	mode := os.FileMode(0644)
	if e.Flags&format.MODULE_FLAG_EXECUTABLE != 0 {
		mode = 0755
	}

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", target)
	}

	sec := io.NewSectionReader(p.r, e.Offset, e.Size)
	buf := make([]byte, format.PAGE_SIZE)

	copied, err := io.CopyBuffer(f, sec, buf)
	if err != nil {
		f.Close()
		return errors.Wrapf(err, "failed to extract %q", name)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %s", target)
	}
	if copied != e.Size {
		return errors.Wrapf(io.ErrUnexpectedEOF, "%q: extracted %d of %d bytes", name, copied, e.Size)
	}

	return nil
}
