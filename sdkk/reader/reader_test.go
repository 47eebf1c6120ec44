package reader_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"golang.org/x/crypto/blake2b"

	"github.com/doors-os/sdkk/sdkk/format"
	"github.com/doors-os/sdkk/sdkk/reader"
	"github.com/doors-os/sdkk/sdkk/writer"
)

var (
	appContent    = bytes.Repeat([]byte{0xAB}, 42)
	readmeContent = []byte("0123456789")
)

// buildSample assembles the documented two-module package and hands back
// its raw bytes: 512 header + 512 table + 52 payload = 1076.
func buildSample(t *testing.T) []byte {
	t.Helper()

	req := &writer.BuildRequest{
		Name:        "MyApplication",
		Version:     "1.0",
		Description: "A sample Doors application",
		Modules: []writer.Module{
			{Path: "app.bin", Source: writer.BytesSource(appContent), Primary: true},
			{Path: "readme.txt", Source: writer.BytesSource(readmeContent)},
		},
	}

	path := filepath.Join(t.TempDir(), "pkg.sdkk")
	if _, err := writer.CreateFile(path, req); err != nil {
		t.Fatalf("build failed: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func openRaw(raw []byte) (*reader.Package, error) {
	return reader.New(bytes.NewReader(raw), int64(len(raw)))
}

// repatch recomputes the header checksum after a deliberate edit, so the
// edit itself is what the reader gets to judge.
func repatch(b []byte) {
	binary.LittleEndian.PutUint32(b[format.HEADER_CHECKSUM_OFFSET:],
		format.Checksum32(b[:format.HEADER_CHECKSUM_OFFSET]))
}

func TestOpenRoundTrip(t *testing.T) {

	raw := buildSample(t)

	p, err := openRaw(raw)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	h := p.Header
	if h.Name != "MyApplication" || h.PackageVersion != "1.0" || h.Description != "A sample Doors application" {
		t.Errorf("header metadata:\n%s", spew.Sdump(h))
	}
	if h.EntryCount != 2 || h.DataOffset != 1024 || h.DataSize != 52 {
		t.Errorf("header geometry:\n%s", spew.Sdump(h))
	}

	ents := p.Entries()
	if len(ents) != 2 || ents[0].Path != "app.bin" || ents[1].Path != "readme.txt" {
		t.Fatalf("entries:\n%s", spew.Sdump(ents))
	}
	// offsets come back absolute
	if ents[0].Offset != 1024 || ents[0].Size != 42 {
		t.Errorf("app.bin resolved to [%d,+%d)", ents[0].Offset, ents[0].Size)
	}
	if ents[1].Offset != 1066 || ents[1].Size != 10 {
		t.Errorf("readme.txt resolved to [%d,+%d)", ents[1].Offset, ents[1].Size)
	}

	rc, err := p.OpenEntry("readme.txt")
	if err != nil {
		t.Fatal(err)
	}
	got, err := io.ReadAll(rc)
	if err != nil || !bytes.Equal(got, readmeContent) {
		t.Errorf("readme content = %q, %v", got, err)
	}

	if err := p.VerifyPayload(); err != nil {
		t.Errorf("payload verification failed on a clean package: %v", err)
	}

	if _, err := p.Lookup("nope.bin"); !errors.Is(err, reader.ErrNotFound) {
		t.Errorf("missing module: got %v", err)
	}
	// lookup normalizes its argument the same way the builder did
	if _, err := p.Lookup("./readme.txt"); err != nil {
		t.Errorf("normalized lookup failed: %v", err)
	}
}

// Flip every single bit of the header, one at a time. Each flip must make
// the open fail; nothing in those 512 bytes is allowed to drift.
func TestEveryHeaderBitIsLoadBearing(t *testing.T) {

	raw := buildSample(t)

	for off := 0; off < format.HEADER_SIZE; off++ {
		for bit := 0; bit < 8; bit++ {
			corrupt := append([]byte{}, raw...)
			corrupt[off] ^= 1 << bit
			if _, err := openRaw(corrupt); err == nil {
				t.Fatalf("flip of byte %d bit %d went unnoticed", off, bit)
			}
		}
	}
}

func TestPayloadCorruption(t *testing.T) {

	raw := buildSample(t)

	for _, off := range []int{1024, 1024 + 21, len(raw) - 1} {
		corrupt := append([]byte{}, raw...)
		corrupt[off] ^= 0x01

		p, err := openRaw(corrupt)
		if err != nil {
			t.Fatalf("flip at %d: open failed early: %v", off, err)
		}
		if err := p.VerifyPayload(); !errors.Is(err, reader.ErrPayloadHash) {
			t.Errorf("flip at %d: VerifyPayload = %v, expected ErrPayloadHash", off, err)
		}
	}
}

func TestBadMagic(t *testing.T) {

	raw := buildSample(t)
	raw[0] = 'X'
	repatch(raw)

	if _, err := openRaw(raw); !errors.Is(err, reader.ErrBadMagic) {
		t.Errorf("got %v, expected ErrBadMagic", err)
	}
}

func TestUnsupportedVersion(t *testing.T) {

	raw := buildSample(t)
	binary.LittleEndian.PutUint32(raw[4:], format.SDKK_VERSION+1)
	repatch(raw)

	if _, err := openRaw(raw); !errors.Is(err, reader.ErrUnsupportedVersion) {
		t.Errorf("got %v, expected ErrUnsupportedVersion", err)
	}
}

func TestTruncatedFiles(t *testing.T) {

	raw := buildSample(t)

	// not even a whole header
	if _, err := openRaw(raw[:100]); !errors.Is(err, format.ErrMalformedRecord) {
		t.Errorf("tiny file: got %v", err)
	}

	// header intact, table cut off
	if _, err := openRaw(raw[:700]); !errors.Is(err, reader.ErrTruncatedEntryTable) {
		t.Errorf("truncated table: got %v", err)
	}

	// header claims more entries than the file can hold
	corrupt := append([]byte{}, raw...)
	binary.LittleEndian.PutUint32(corrupt[344:], 3)
	repatch(corrupt)
	if _, err := openRaw(corrupt); !errors.Is(err, reader.ErrTruncatedEntryTable) {
		t.Errorf("inflated entry count: got %v", err)
	}
}

func TestExtractAll(t *testing.T) {

	raw := buildSample(t)
	p, err := openRaw(raw)
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	if err := p.ExtractAll(dir); err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "app.bin"))
	if err != nil || !bytes.Equal(got, appContent) {
		t.Errorf("app.bin content mismatch: %v", err)
	}
	got, err = os.ReadFile(filepath.Join(dir, "readme.txt"))
	if err != nil || !bytes.Equal(got, readmeContent) {
		t.Errorf("readme.txt content mismatch: %v", err)
	}

	fi, err := os.Stat(filepath.Join(dir, "app.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode()&0111 == 0 {
		t.Error("the application did not come out executable")
	}
	fi, err = os.Stat(filepath.Join(dir, "readme.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode()&0111 != 0 {
		t.Error("a data file came out executable")
	}
}

func TestExtractRecreatesSubdirectories(t *testing.T) {

	req := &writer.BuildRequest{
		Name:    "pkg",
		Version: "1",
		Modules: []writer.Module{
			{Path: "app.bin", Source: writer.BytesSource([]byte("app")), Primary: true},
			{Path: "docs/guide/readme.txt", Source: writer.BytesSource([]byte("hello"))},
		},
	}

	pkgPath := filepath.Join(t.TempDir(), "pkg.sdkk")
	if _, err := writer.CreateFile(pkgPath, req); err != nil {
		t.Fatal(err)
	}

	p, err := reader.Open(pkgPath)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	dir := t.TempDir()
	if err := p.Extract("docs/guide/readme.txt", dir); err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "docs", "guide", "readme.txt"))
	if err != nil || string(got) != "hello" {
		t.Errorf("nested file = %q, %v", got, err)
	}
}

// Entry names live outside the checksummed header, so a tampered name
// opens fine. Extraction is where it must be stopped.
func TestExtractRefusesHostileName(t *testing.T) {

	raw := buildSample(t)

	name := make([]byte, format.ENTRY_NAME_SIZE)
	copy(name, "../evil")
	copy(raw[512:], name)

	p, err := openRaw(raw)
	if err != nil {
		t.Fatalf("open after name tamper failed: %v", err)
	}

	dir := t.TempDir()
	if err := p.ExtractAll(dir); err == nil {
		t.Fatal("hostile name extracted without complaint")
	}
	if _, err := os.Stat(filepath.Join(dir, "..", "evil")); !os.IsNotExist(err) {
		t.Error("a file escaped the destination directory")
	}
}

func TestFingerprint(t *testing.T) {

	raw := buildSample(t)
	p, err := openRaw(raw)
	if err != nil {
		t.Fatal(err)
	}

	fp, err := p.Fingerprint()
	if err != nil {
		t.Fatal(err)
	}
	want := blake2b.Sum256(raw)
	if !bytes.Equal(fp, want[:]) {
		t.Errorf("fingerprint = %x, expected %x", fp, want)
	}
}

func TestOpenFile(t *testing.T) {

	req := &writer.BuildRequest{
		Name:    "pkg",
		Version: "1",
		Modules: []writer.Module{
			{Path: "app.bin", Source: writer.BytesSource([]byte("app")), Primary: true},
		},
	}

	path := filepath.Join(t.TempDir(), "pkg.sdkk")
	if _, err := writer.CreateFile(path, req); err != nil {
		t.Fatal(err)
	}

	p, err := reader.Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := p.VerifyPayload(); err != nil {
		t.Errorf("verify failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("close failed: %v", err)
	}

	if _, err := reader.Open(filepath.Join(t.TempDir(), "missing.sdkk")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
