package writer

import (
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"github.com/doors-os/sdkk/sdkk/format"
)

// Receipt is a detached record of one build: what went in, what came out,
// and the digests to prove it. Identical inputs make byte-identical
// packages and therefore identical receipts, which is what makes rebuilds
// checkable. The loader never reads receipts.
type Receipt struct {
	Format      uint32         `cbor:"0,keyasint"`
	Name        string         `cbor:"1,keyasint"`
	Version     string         `cbor:"2,keyasint"`
	EntryCount  uint32         `cbor:"3,keyasint"`
	DataSize    uint64         `cbor:"4,keyasint"`
	TotalSize   int64          `cbor:"5,keyasint"`
	DataSHA256  []byte         `cbor:"6,keyasint"`
	Fingerprint []byte         `cbor:"7,keyasint"`
	Entries     []ReceiptEntry `cbor:"8,keyasint"`
}

type ReceiptEntry struct {
	Path   string `cbor:"0,keyasint"`
	Size   uint64 `cbor:"1,keyasint"`
	Type   uint32 `cbor:"2,keyasint"`
	Flags  uint32 `cbor:"3,keyasint"`
	SHA256 []byte `cbor:"4,keyasint"`
}

func NewReceipt(res *Result) *Receipt {

	r := Receipt{
		Format:      format.SDKK_VERSION,
		Name:        res.Name,
		Version:     res.Version,
		EntryCount:  res.EntryCount,
		DataSize:    res.DataSize,
		TotalSize:   res.TotalSize,
		DataSHA256:  append([]byte{}, res.DataSHA256[:]...),
		Fingerprint: append([]byte{}, res.Fingerprint...),
		Entries:     make([]ReceiptEntry, 0, len(res.Entries)),
	}

	for _, e := range res.Entries {
		r.Entries = append(r.Entries, ReceiptEntry{
			Path:   e.Path,
			Size:   e.Size,
			Type:   uint32(e.Type),
			Flags:  uint32(e.Flags),
			SHA256: append([]byte{}, e.SHA256[:]...),
		})
	}

	return &r
}

// ReceiptPath is where a package's receipt sits by convention.
func ReceiptPath(pkg string) string {
	return pkg + ".receipt"
}

func (r *Receipt) WriteFile(path string) error {

	raw, err := cbor.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "failed to marshal receipt")
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

func ReadReceipt(path string) (*Receipt, error) {

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	r := Receipt{}
	if err := cbor.Unmarshal(raw, &r); err != nil {
		return nil, errors.Wrapf(err, "failed to parse receipt %s", path)
	}
	return &r, nil
}
