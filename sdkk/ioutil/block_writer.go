package ioutil

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// BlockWriter counts what goes through it and can pad the stream out to
// the next block boundary with zeros.
type BlockWriter struct {
	writer io.Writer
	offset int64
	bsize  int64
}

func NewBlockWriter(destination io.Writer, blockSize int64) *BlockWriter {
	return &BlockWriter{
		writer: destination,
		bsize:  blockSize,
	}
}

func (k *BlockWriter) Write(p []byte) (n int, err error) {
	written, err := k.writer.Write(p)
	k.offset += int64(written)
	return written, err
}

// Offset is the total number of bytes written through so far, padding
// included.
func (k *BlockWriter) Offset() int64 {
	return k.offset
}

// Align writes zeros up to the next block boundary. On a boundary already,
// it writes nothing.
func (k *BlockWriter) Align() error {

	rem := k.offset % k.bsize
	if rem == 0 {
		return nil
	}

	empty := bytes.Repeat([]byte{0}, int(k.bsize-rem))

	if _, err := k.Write(empty); err != nil {
		return errors.Wrap(err, "failed to finish out block")
	}
	return nil
}
