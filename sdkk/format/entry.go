package format

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	entOffName      = 0
	entOffOffset    = entOffName + ENTRY_NAME_SIZE
	entOffSize      = entOffOffset + 8
	entOffType      = entOffSize + 8
	entOffFlags     = entOffType + 4
	entOffSignature = entOffFlags + 4
	entOffPadding   = entOffSignature + 32
	entPaddingSize  = 136

	entEncodedSize = entOffPadding + entPaddingSize
)

const (
	_ = uint(ENTRY_SIZE - entEncodedSize)
	_ = uint(entEncodedSize - ENTRY_SIZE)
)

// ModuleEntry is one row of the entry table.
type ModuleEntry struct {
	// Logical path of the module, at most ENTRY_NAME_SIZE-1 bytes
	Name string
	// Content offset relative to the header's DataOffset
	Offset uint64
	// Content length in bytes
	Size  uint64
	Type  ModuleType
	Flags ModuleFlags
	// Reserved for a future content signature, zero until one exists
	Signature [32]byte
}

// ToBytes encodes the entry into a fresh ENTRY_SIZE byte slice. A name
// longer than the field truncates to ENTRY_NAME_SIZE-1 bytes, never
// splitting a multi-byte rune.
func (e *ModuleEntry) ToBytes() []byte {
	b := make([]byte, ENTRY_SIZE)

	putFixedString(b[entOffName:entOffName+ENTRY_NAME_SIZE], e.Name)
	binary.LittleEndian.PutUint64(b[entOffOffset:], e.Offset)
	binary.LittleEndian.PutUint64(b[entOffSize:], e.Size)
	binary.LittleEndian.PutUint32(b[entOffType:], uint32(e.Type))
	binary.LittleEndian.PutUint32(b[entOffFlags:], uint32(e.Flags))
	copy(b[entOffSignature:], e.Signature[:])

	return b
}

// DecodeEntry reads back exactly ENTRY_SIZE bytes. Unknown type and flag
// bits pass through untouched.
func DecodeEntry(b []byte) (*ModuleEntry, error) {
	if len(b) != ENTRY_SIZE {
		return nil, errors.Wrapf(ErrMalformedRecord, "module entry is %d bytes, want %d", len(b), ENTRY_SIZE)
	}

	e := ModuleEntry{
		Name:   fixedString(b[entOffName : entOffName+ENTRY_NAME_SIZE]),
		Offset: binary.LittleEndian.Uint64(b[entOffOffset:]),
		Size:   binary.LittleEndian.Uint64(b[entOffSize:]),
		Type:   ModuleType(binary.LittleEndian.Uint32(b[entOffType:])),
		Flags:  ModuleFlags(binary.LittleEndian.Uint32(b[entOffFlags:])),
	}
	copy(e.Signature[:], b[entOffSignature:])

	return &e, nil
}
