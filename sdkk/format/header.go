package format

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Field offsets inside the package header. Each is derived from the width
// of the field before it, so the table reads like the format document.
const (
	hdrOffMagic       = 0
	hdrOffVersion     = hdrOffMagic + 4
	hdrOffName        = hdrOffVersion + 4
	hdrOffPkgVersion  = hdrOffName + NAME_SIZE
	hdrOffDescription = hdrOffPkgVersion + VERSION_SIZE
	hdrOffEntryCount  = hdrOffDescription + DESCRIPTION_SIZE
	hdrOffTableOffset = hdrOffEntryCount + 4
	hdrOffDataOffset  = hdrOffTableOffset + 8
	hdrOffDataSize    = hdrOffDataOffset + 8
	hdrOffDataSHA256  = hdrOffDataSize + 8
	hdrOffReserved    = hdrOffDataSHA256 + 32
	hdrReservedSize   = 104

	// HEADER_CHECKSUM_OFFSET is where the checksum field sits. The
	// checksum covers every byte before it and nothing after.
	HEADER_CHECKSUM_OFFSET = hdrOffReserved + hdrReservedSize

	hdrEncodedSize = HEADER_CHECKSUM_OFFSET + 4
)

// Either line refuses to compile if the field widths stop adding up to
// the fixed header size.
const (
	_ = uint(HEADER_SIZE - hdrEncodedSize)
	_ = uint(hdrEncodedSize - HEADER_SIZE)
)

// PackageHeader is the first 512 bytes of a package.
type PackageHeader struct {
	// Magic value, must be MAGIC_BYTES
	Magic [4]byte
	// Layout revision (SDKK_VERSION for anything we produce)
	Version uint32
	// Human-readable package name
	Name string
	// Free-form version string
	PackageVersion string
	// Free-form description
	Description string
	// Number of entries in the module table
	EntryCount uint32
	// Byte offset of the entry table (always HEADER_SIZE)
	EntryTableOffset uint64
	// Byte offset of the data section, DATA_ALIGNMENT aligned
	DataOffset uint64
	// Total size of the data section in bytes
	DataSize uint64
	// SHA-256 over the whole data section, file order
	DataSHA256 [32]byte
	// Additive checksum over header bytes [0, HEADER_CHECKSUM_OFFSET)
	Checksum uint32
}

func NewPackageHeader(name string, version string, description string) PackageHeader {
	return PackageHeader{
		Magic:            [4]byte{'S', 'D', 'K', 'K'},
		Version:          SDKK_VERSION,
		Name:             name,
		PackageVersion:   version,
		Description:      description,
		EntryTableOffset: HEADER_SIZE,
	}
}

// ToBytes encodes the header into a fresh HEADER_SIZE byte slice. String
// fields are truncated to their field width; the checksum field is written
// as-is, so callers patch it after summing the first
// HEADER_CHECKSUM_OFFSET bytes.
func (h *PackageHeader) ToBytes() []byte {
	b := make([]byte, HEADER_SIZE)

	copy(b[hdrOffMagic:], h.Magic[:])
	binary.LittleEndian.PutUint32(b[hdrOffVersion:], h.Version)
	putFixedString(b[hdrOffName:hdrOffName+NAME_SIZE], h.Name)
	putFixedString(b[hdrOffPkgVersion:hdrOffPkgVersion+VERSION_SIZE], h.PackageVersion)
	putFixedString(b[hdrOffDescription:hdrOffDescription+DESCRIPTION_SIZE], h.Description)
	binary.LittleEndian.PutUint32(b[hdrOffEntryCount:], h.EntryCount)
	binary.LittleEndian.PutUint64(b[hdrOffTableOffset:], h.EntryTableOffset)
	binary.LittleEndian.PutUint64(b[hdrOffDataOffset:], h.DataOffset)
	binary.LittleEndian.PutUint64(b[hdrOffDataSize:], h.DataSize)
	copy(b[hdrOffDataSHA256:], h.DataSHA256[:])
	binary.LittleEndian.PutUint32(b[HEADER_CHECKSUM_OFFSET:], h.Checksum)

	return b
}

// DecodeHeader reads back exactly HEADER_SIZE bytes. It does not judge the
// magic, version, or checksum; that is the reader's job, once it can say
// something useful about where the bytes came from.
func DecodeHeader(b []byte) (*PackageHeader, error) {
	if len(b) != HEADER_SIZE {
		return nil, errors.Wrapf(ErrMalformedRecord, "package header is %d bytes, want %d", len(b), HEADER_SIZE)
	}

	h := PackageHeader{
		Version:          binary.LittleEndian.Uint32(b[hdrOffVersion:]),
		Name:             fixedString(b[hdrOffName : hdrOffName+NAME_SIZE]),
		PackageVersion:   fixedString(b[hdrOffPkgVersion : hdrOffPkgVersion+VERSION_SIZE]),
		Description:      fixedString(b[hdrOffDescription : hdrOffDescription+DESCRIPTION_SIZE]),
		EntryCount:       binary.LittleEndian.Uint32(b[hdrOffEntryCount:]),
		EntryTableOffset: binary.LittleEndian.Uint64(b[hdrOffTableOffset:]),
		DataOffset:       binary.LittleEndian.Uint64(b[hdrOffDataOffset:]),
		DataSize:         binary.LittleEndian.Uint64(b[hdrOffDataSize:]),
		Checksum:         binary.LittleEndian.Uint32(b[HEADER_CHECKSUM_OFFSET:]),
	}
	copy(h.Magic[:], b[hdrOffMagic:])
	copy(h.DataSHA256[:], b[hdrOffDataSHA256:])

	return &h, nil
}
