package writer

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/doors-os/sdkk/sdkk/format"
	"github.com/doors-os/sdkk/sdkk/ioutil"
)

var (
	ErrMisalignedWrite = errors.New("unexpected number of bytes written")
)

type config struct {
	progress func(string)
	bufSize  int
}

// Option adjusts how a build runs, never what it produces.
type Option func(*config)

// WithProgress streams human-readable progress lines to fn as the build
// moves along. Purely advisory.
func WithProgress(fn func(string)) Option {
	return func(c *config) { c.progress = fn }
}

// WithBufferSize sets the copy buffer for payload streaming. All content
// passes through this one buffer, so peak memory stays put no matter how
// big a package gets.
func WithBufferSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.bufSize = n
		}
	}
}

func (c *config) reportf(f string, args ...any) {
	if c.progress != nil {
		c.progress(fmt.Sprintf(f, args...))
	}
}

// Result describes a finished build.
type Result struct {
	Name       string
	Version    string
	EntryCount uint32
	DataOffset uint64
	DataSize   uint64
	TotalSize  int64
	DataSHA256 [32]byte
	// Fingerprint is BLAKE2b-256 over the entire finished file. CreateFile
	// fills it; Build has no way to re-read its destination.
	Fingerprint []byte
	Entries     []EntryResult
}

// EntryResult is one stored module, with the digest of its content.
type EntryResult struct {
	Path   string
	Offset uint64
	Size   uint64
	Type   format.ModuleType
	Flags  format.ModuleFlags
	SHA256 [32]byte
}

// Build assembles a package into dst. The header goes out first as zeros,
// the payload digest accumulates while content streams through a bounded
// buffer, and the real header lands with one seek back at the end. The
// same ordered inputs produce byte-identical output every time.
func Build(dst io.WriteSeeker, req *BuildRequest, opts ...Option) (*Result, error) {

	cfg := config{bufSize: format.PAGE_SIZE}
	for _, opt := range opts {
		opt(&cfg)
	}

	mods, err := req.prepare()
	if err != nil {
		return nil, err
	}
	plan, err := planLayout(mods)
	if err != nil {
		return nil, err
	}

	cfg.reportf("layout: %d modules, entry table at %d, data section at %d",
		len(plan.mods), format.HEADER_SIZE, plan.dataOffset)

	bw := ioutil.NewBlockWriter(dst, format.DATA_ALIGNMENT)

	// placeholder until the digests are known
	if _, err := bw.Write(make([]byte, format.HEADER_SIZE)); err != nil {
		return nil, errors.Wrap(err, "failed to write header placeholder")
	}

	result := Result{
		Name:       req.Name,
		Version:    req.Version,
		EntryCount: uint32(len(plan.mods)),
		DataOffset: plan.dataOffset,
		DataSize:   plan.dataSize,
		TotalSize:  int64(plan.dataOffset + plan.dataSize),
		Entries:    make([]EntryResult, 0, len(plan.mods)),
	}

	for i := range plan.mods {
		m := &plan.mods[i]
		e := m.entry()
		if _, err := bw.Write(e.ToBytes()); err != nil {
			return nil, errors.Wrapf(err, "failed to write entry for %q", m.Path)
		}
		result.Entries = append(result.Entries, EntryResult{
			Path:   m.Path,
			Offset: m.offset,
			Size:   m.size,
			Type:   e.Type,
			Flags:  e.Flags,
		})
	}

	if err := bw.Align(); err != nil {
		return nil, errors.Wrap(err, "failed to pad out the entry table")
	}
	if got := bw.Offset(); got != int64(plan.dataOffset) {
		return nil, errors.Wrapf(ErrMisalignedWrite, "data section starts at %d, planned %d", got, plan.dataOffset)
	}

	// payload, with the package digest teed off the stream
	payload := ioutil.NewHashWriter(bw, sha256.New())
	buf := make([]byte, cfg.bufSize)

	for i := range plan.mods {
		m := &plan.mods[i]
		sum, err := writeModule(payload, m, buf)
		if err != nil {
			return nil, err
		}
		result.Entries[i].SHA256 = sum
		cfg.reportf("wrote %s (%d bytes)", m.Path, m.size)
	}

	hdr := format.NewPackageHeader(req.Name, req.Version, req.Description)
	hdr.EntryCount = result.EntryCount
	hdr.DataOffset = plan.dataOffset
	hdr.DataSize = plan.dataSize
	copy(hdr.DataSHA256[:], payload.Sum())
	result.DataSHA256 = hdr.DataSHA256

	// encode once with a zero checksum, then patch the four bytes in
	b := hdr.ToBytes()
	binary.LittleEndian.PutUint32(b[format.HEADER_CHECKSUM_OFFSET:],
		format.Checksum32(b[:format.HEADER_CHECKSUM_OFFSET]))

	if _, err := dst.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "failed to seek back to the header")
	}
	if _, err := dst.Write(b); err != nil {
		return nil, errors.Wrap(err, "failed to write the final header")
	}

	cfg.reportf("data section: %d bytes, sha256 %x", plan.dataSize, hdr.DataSHA256)
	cfg.reportf("%s %s: %d modules, %d bytes", req.Name, req.Version, result.EntryCount, result.TotalSize)

	return &result, nil
}

func writeModule(dst io.Writer, m *plannedModule, buf []byte) ([32]byte, error) {

	var sum [32]byte

	src, err := m.Source.Open()
	if err != nil {
		return sum, errors.Wrapf(ErrMissingSource, "module %q: %v", m.Path, err)
	}
	defer src.Close()

	h := sha256.New()
	n, err := io.CopyBuffer(io.MultiWriter(dst, h), src, buf)
	if err != nil {
		return sum, errors.Wrapf(err, "failed to stream %q", m.Path)
	}
	if uint64(n) != m.size {
		// the source changed between planning and streaming; the entry
		// table already promised m.size
		return sum, errors.Wrapf(ErrMisalignedWrite, "module %q: streamed %d bytes, planned %d", m.Path, n, m.size)
	}

	copy(sum[:], h.Sum(nil))
	return sum, nil
}

// CreateFile builds a package at path. The destination only survives a
// full build; any failure removes it, so either a complete valid package
// exists afterwards or nothing does. The result carries the whole-file
// fingerprint.
func CreateFile(path string, req *BuildRequest, opts ...Option) (*Result, error) {

	// reject bad requests before touching the destination
	if err := req.Validate(); err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %s", path)
	}

	res, err := Build(f, req, opts...)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, errors.Wrapf(err, "failed to close %s", path)
	}

	fp, err := ioutil.FingerprintFile(path)
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	res.Fingerprint = fp

	return res, nil
}
