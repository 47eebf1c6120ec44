package reader

import (
	"bytes"
	"crypto/sha256"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/doors-os/sdkk/sdkk/format"
	"github.com/doors-os/sdkk/sdkk/ioutil"
)

var (
	ErrBadMagic            = errors.New("not an SDKK package")
	ErrUnsupportedVersion  = errors.New("unsupported format version")
	ErrHeaderChecksum      = errors.New("header checksum mismatch")
	ErrTruncatedEntryTable = errors.New("entry table is truncated")
	ErrPayloadHash         = errors.New("payload hash mismatch")
	ErrNotFound            = errors.New("no such module")
)

// Entry is one module of an opened package, with its position resolved to
// absolute file offsets.
type Entry struct {
	Path   string
	Offset int64
	Size   int64
	Type   format.ModuleType
	Flags  format.ModuleFlags
}

// Package is an opened, header-validated package. The payload itself is
// not verified until VerifyPayload says so; integrity of the header and
// the shape of the entry table are established here.
type Package struct {
	Header format.PackageHeader

	r       io.ReaderAt
	size    int64
	closer  io.Closer
	entries []Entry
	byPath  map[string]int
}

// Open opens a package file for reading. Close releases it.
func Open(path string) (*Package, error) {

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "failed to stat %s", path)
	}

	p, err := New(f, fi.Size())
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "%s", path)
	}
	p.closer = f

	return p, nil
}

// New reads and validates the header and entry table from r. No header
// field is trusted before the checksum over it passes.
func New(r io.ReaderAt, size int64) (*Package, error) {

	if size < format.HEADER_SIZE {
		return nil, errors.Wrapf(format.ErrMalformedRecord, "file is %d bytes, the header alone is %d", size, format.HEADER_SIZE)
	}

	hdrBuf := make([]byte, format.HEADER_SIZE)
	if _, err := r.ReadAt(hdrBuf, 0); err != nil {
		return nil, errors.Wrap(err, "failed to read package header")
	}

	hdr, err := format.DecodeHeader(hdrBuf)
	if err != nil {
		return nil, err
	}

	if !bytes.Equal(hdr.Magic[:], format.MAGIC_BYTES) {
		return nil, errors.Wrapf(ErrBadMagic, "magic is % x", hdr.Magic)
	}
	if hdr.Version != format.SDKK_VERSION {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "version %d, this tool reads %d", hdr.Version, format.SDKK_VERSION)
	}
	if computed := format.Checksum32(hdrBuf[:format.HEADER_CHECKSUM_OFFSET]); computed != hdr.Checksum {
		return nil, errors.Wrapf(ErrHeaderChecksum, "stored %#08x, computed %#08x", hdr.Checksum, computed)
	}

	p := Package{
		Header: *hdr,
		r:      r,
		size:   size,
		byPath: make(map[string]int, hdr.EntryCount),
	}

	if err := p.readEntries(); err != nil {
		return nil, err
	}

	if hdr.DataOffset > uint64(size) || hdr.DataSize > uint64(size)-hdr.DataOffset {
		return nil, errors.Wrapf(format.ErrMalformedRecord, "data section of %d bytes at %d runs outside the file (%d bytes)",
			hdr.DataSize, hdr.DataOffset, size)
	}

	return &p, nil
}

func (p *Package) readEntries() error {

	hdr := &p.Header
	need := uint64(hdr.EntryCount) * format.ENTRY_SIZE

	if hdr.EntryTableOffset > uint64(p.size) || need > uint64(p.size)-hdr.EntryTableOffset {
		return errors.Wrapf(ErrTruncatedEntryTable, "%d entries need %d bytes at %d, file is %d bytes",
			hdr.EntryCount, need, hdr.EntryTableOffset, p.size)
	}

	p.entries = make([]Entry, 0, hdr.EntryCount)

	buf := make([]byte, format.ENTRY_SIZE)
	for i := uint32(0); i < hdr.EntryCount; i++ {

		off := int64(hdr.EntryTableOffset) + int64(i)*format.ENTRY_SIZE
		if _, err := p.r.ReadAt(buf, off); err != nil {
			return errors.Wrapf(err, "failed to read entry %d", i)
		}
		e, err := format.DecodeEntry(buf)
		if err != nil {
			return err
		}

		if e.Offset > hdr.DataSize || e.Size > hdr.DataSize-e.Offset {
			return errors.Wrapf(format.ErrMalformedRecord, "module %q: content range [%d,%d) runs outside the data section",
				e.Name, e.Offset, e.Offset+e.Size)
		}

		p.byPath[e.Name] = len(p.entries)
		p.entries = append(p.entries, Entry{
			Path:   e.Name,
			Offset: int64(hdr.DataOffset + e.Offset),
			Size:   int64(e.Size),
			Type:   e.Type,
			Flags:  e.Flags,
		})
	}

	return nil
}

// Close releases the underlying file, if this package owns one.
func (p *Package) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

// Entries lists the modules in stored order.
func (p *Package) Entries() []Entry {
	return p.entries
}

// Lookup finds a module by logical path.
func (p *Package) Lookup(path string) (*Entry, error) {
	if i, ok := p.byPath[format.NormalizePath(path)]; ok {
		return &p.entries[i], nil
	}
	return nil, errors.Wrapf(ErrNotFound, "%q", path)
}

// OpenEntry returns a reader over one module's content.
func (p *Package) OpenEntry(path string) (*io.SectionReader, error) {
	e, err := p.Lookup(path)
	if err != nil {
		return nil, err
	}
	return io.NewSectionReader(p.r, e.Offset, e.Size), nil
}

// VerifyPayload streams the whole data section through SHA-256, page by
// page, and compares the digest with the one the header promised.
func (p *Package) VerifyPayload() error {

	sec := io.NewSectionReader(p.r, int64(p.Header.DataOffset), int64(p.Header.DataSize))

	h := sha256.New()
	buf := make([]byte, format.PAGE_SIZE)
	if _, err := io.CopyBuffer(h, sec, buf); err != nil {
		return errors.Wrap(err, "failed to read data section")
	}

	if computed := h.Sum(nil); !bytes.Equal(computed, p.Header.DataSHA256[:]) {
		return errors.Wrapf(ErrPayloadHash, "stored %x, computed %x", p.Header.DataSHA256, computed)
	}
	return nil
}

// Fingerprint hashes the entire file, header included, with BLAKE2b-256.
func (p *Package) Fingerprint() ([]byte, error) {
	return ioutil.Fingerprint(io.NewSectionReader(p.r, 0, p.size))
}
