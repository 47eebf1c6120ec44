package writer

import (
	"bytes"
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"

	"github.com/doors-os/sdkk/sdkk/format"
)

// Everything wrong with a request is caught before a single byte goes out.
var (
	ErrEmptyRequest    = errors.New("request contains no modules")
	ErrNameRequired    = errors.New("package name is empty")
	ErrVersionRequired = errors.New("package version is empty")
	ErrNoPrimary       = errors.New("request has no primary module")
	ErrMultiplePrimary = errors.New("request has more than one primary module")
	ErrDuplicatePath   = errors.New("duplicate logical path")
	ErrBadPath         = errors.New("unusable logical path")
	ErrBadModuleType   = errors.New("module type not allowed")
	ErrMissingSource   = errors.New("module content is missing")
)

// Source hands the assembler a module's content. Size must be known before
// streaming starts; the entry table is written ahead of the data it
// describes.
type Source interface {
	Size() (int64, error)
	Open() (io.ReadCloser, error)
}

// FileSource reads a file on the host.
type FileSource string

func (s FileSource) Size() (int64, error) {
	fi, err := os.Stat(string(s))
	if err != nil {
		return 0, err
	}
	if fi.IsDir() {
		return 0, errors.Errorf("%s is a directory", string(s))
	}
	return fi.Size(), nil
}

func (s FileSource) Open() (io.ReadCloser, error) {
	return os.Open(string(s))
}

// BytesSource serves content already sitting in memory.
type BytesSource []byte

func (s BytesSource) Size() (int64, error) {
	return int64(len(s)), nil
}

func (s BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s)), nil
}

// Module is one file to pack.
type Module struct {
	// Path is the logical path inside the package. It is normalized
	// before anything compares or stores it.
	Path string
	// Source supplies the content.
	Source Source
	// Primary marks the module the loader starts. Exactly one per
	// request. The primary is always stored as an executable
	// application, so Type and ReadOnly must stay unset on it.
	Primary bool
	// Type of a non-primary module: data, driver, or update. Zero means
	// data.
	Type format.ModuleType
	// ReadOnly marks a non-primary module read-only for the loader.
	ReadOnly bool
}

type BuildRequest struct {
	Name        string
	Version     string
	Description string
	Modules     []Module
}

// Validate runs every build-time check without writing anything: request
// shape, path rules, and that each source is present with a known size.
func (req *BuildRequest) Validate() error {
	mods, err := req.prepare()
	if err != nil {
		return err
	}
	_, err = planLayout(mods)
	return err
}

// prepare normalizes and validates the request, returning the modules in
// the order they will be stored: lexicographic by logical path, byte-wise.
// Primacy travels as a field on its module, so sorting cannot hand it to a
// different file.
func (req *BuildRequest) prepare() ([]Module, error) {

	if req.Name == "" {
		return nil, ErrNameRequired
	}
	if req.Version == "" {
		return nil, ErrVersionRequired
	}
	if len(req.Modules) == 0 {
		return nil, ErrEmptyRequest
	}

	mods := make([]Module, len(req.Modules))
	copy(mods, req.Modules)

	seen := make(map[string]bool, len(mods))
	primaries := 0

	for i := range mods {
		p := format.NormalizePath(mods[i].Path)
		if !format.ValidPath(p) {
			return nil, errors.Wrapf(ErrBadPath, "%q", mods[i].Path)
		}
		if seen[p] {
			return nil, errors.Wrapf(ErrDuplicatePath, "%q", p)
		}
		seen[p] = true
		mods[i].Path = p

		if mods[i].Source == nil {
			return nil, errors.Wrapf(ErrMissingSource, "module %q has no source", p)
		}

		if mods[i].Primary {
			primaries++
			if mods[i].Type != 0 || mods[i].ReadOnly {
				return nil, errors.Wrapf(ErrBadModuleType, "module %q: the primary is always an executable application", p)
			}
			continue
		}
		switch mods[i].Type {
		case 0, format.MODULE_TYPE_DATA, format.MODULE_TYPE_DRIVER, format.MODULE_TYPE_UPDATE:
		default:
			return nil, errors.Wrapf(ErrBadModuleType, "module %q: %s", p, mods[i].Type)
		}
	}

	if primaries == 0 {
		return nil, ErrNoPrimary
	}
	if primaries > 1 {
		return nil, ErrMultiplePrimary
	}

	sort.Slice(mods, func(i, j int) bool { return mods[i].Path < mods[j].Path })

	return mods, nil
}

// plannedModule is a module with its place in the data section decided.
type plannedModule struct {
	Module
	size   uint64
	offset uint64
}

type layout struct {
	mods       []plannedModule
	dataOffset uint64
	dataSize   uint64
}

// planLayout stats every source and fixes the data section geometry,
// entirely before the first write.
func planLayout(mods []Module) (*layout, error) {

	l := layout{
		mods:       make([]plannedModule, 0, len(mods)),
		dataOffset: alignUp(format.HEADER_SIZE+format.ENTRY_SIZE*uint64(len(mods)), format.DATA_ALIGNMENT),
	}

	for _, m := range mods {
		n, err := m.Source.Size()
		if err != nil {
			return nil, errors.Wrapf(ErrMissingSource, "module %q: %v", m.Path, err)
		}
		l.mods = append(l.mods, plannedModule{Module: m, size: uint64(n), offset: l.dataSize})
		l.dataSize += uint64(n)
	}

	return &l, nil
}

func alignUp(n uint64, align uint64) uint64 {
	return (n + align - 1) / align * align
}

// entry fills the table row for a planned module. The primary is always
// an executable application; everything else defaults to plain data.
func (m *plannedModule) entry() format.ModuleEntry {

	e := format.ModuleEntry{
		Name:   m.Path,
		Offset: m.offset,
		Size:   m.size,
	}

	if m.Primary {
		e.Type = format.MODULE_TYPE_APPLICATION
		e.Flags = format.MODULE_FLAG_EXECUTABLE
		return e
	}

	e.Type = m.Type
	if e.Type == 0 {
		e.Type = format.MODULE_TYPE_DATA
	}
	if m.ReadOnly {
		e.Flags |= format.MODULE_FLAG_READONLY
	}
	return e
}
