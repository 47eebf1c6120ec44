package ioutil

import (
	"hash"
	"io"
)

// HashWriter tees everything written through it into a running hash.
type HashWriter struct {
	writer io.Writer
	hasher hash.Hash
}

func NewHashWriter(dest io.Writer, hasher hash.Hash) *HashWriter {
	return &HashWriter{
		writer: dest,
		hasher: hasher,
	}
}

func (w *HashWriter) Write(b []byte) (int, error) {
	w.hasher.Write(b)
	return w.writer.Write(b)
}

func (w *HashWriter) Sum() []byte {
	return w.hasher.Sum(nil)
}
