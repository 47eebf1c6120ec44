package ioutil

import (
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// Compressor wraps one transport codec. Compression is strictly a
// shipping concern: a finished package is compressed whole, and the round
// trip gives back identical bytes.
type Compressor interface {
	// Compress reads from r until there is no more to read and writes the
	// compressed stream into w. Returns the number of plain bytes consumed.
	Compress(w io.Writer, r io.Reader) (int64, error)
	// Decompress reads a compressed stream from r and writes the plain
	// bytes into w. Returns the number of plain bytes produced.
	Decompress(w io.Writer, r io.Reader) (int64, error)
	// Ext is the filename suffix the codec travels under.
	Ext() string
}

type ZstdCompressor struct{}

func (ZstdCompressor) Compress(w io.Writer, r io.Reader) (int64, error) {

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return 0, errors.Wrap(err, "failed to start zstd stream")
	}

	n, err := zw.ReadFrom(r)
	if err != nil {
		zw.Close()
		return n, errors.Wrap(err, "failed to compress stream")
	}
	return n, zw.Close()
}

func (ZstdCompressor) Decompress(w io.Writer, r io.Reader) (int64, error) {

	zr, err := zstd.NewReader(r)
	if err != nil {
		return 0, errors.Wrap(err, "failed to open zstd stream")
	}
	defer zr.Close()

	return zr.WriteTo(w)
}

func (ZstdCompressor) Ext() string { return ".zst" }

type BrotliCompressor struct{}

func (BrotliCompressor) Compress(w io.Writer, r io.Reader) (int64, error) {

	bw := brotli.NewWriter(w)

	n, err := io.Copy(bw, r)
	if err != nil {
		bw.Close()
		return n, errors.Wrap(err, "failed to compress stream")
	}
	return n, bw.Close()
}

func (BrotliCompressor) Decompress(w io.Writer, r io.Reader) (int64, error) {
	return io.Copy(w, brotli.NewReader(r))
}

func (BrotliCompressor) Ext() string { return ".br" }

// ForAlgo resolves a codec by the name a user would type.
func ForAlgo(name string) (Compressor, error) {
	switch strings.ToLower(name) {
	case "zstd", "zst":
		return ZstdCompressor{}, nil
	case "brotli", "br":
		return BrotliCompressor{}, nil
	}
	return nil, errors.Errorf("unknown compression algorithm %q", name)
}

// ByExt resolves a codec from the suffix of a compressed file.
func ByExt(path string) (Compressor, error) {
	switch {
	case strings.HasSuffix(path, ".zst"):
		return ZstdCompressor{}, nil
	case strings.HasSuffix(path, ".br"):
		return BrotliCompressor{}, nil
	}
	return nil, errors.Errorf("no recognized compression suffix on %q", path)
}
