package ioutil

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

// Fingerprint hashes everything in r with BLAKE2b-256. The package format
// itself hashes only the data section; this identifies the whole artifact,
// header and all.
func Fingerprint(r io.Reader) ([]byte, error) {

	h, err := blake2b.New256(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize BLAKE2b hash")
	}
	if _, err := io.Copy(h, r); err != nil {
		return nil, errors.Wrap(err, "failed to hash stream")
	}
	return h.Sum(nil), nil
}

func FingerprintFile(path string) ([]byte, error) {

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	return Fingerprint(f)
}
