package format

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

/*

An SDKK package is a single relocatable file:

	[ header, 512 bytes ][ entry table, 256 bytes per module ][ pad ][ data ]

The data section starts on a 512-byte boundary. Every integer is
little-endian regardless of host.

*/

const (
	MAGIC_STRING = "SDKK"
	SDKK_VERSION = 1
)

var (
	MAGIC_BYTES = []byte{'S', 'D', 'K', 'K'}
)

const (
	// Both record sizes are fixed; the offset constants below must add up
	// to exactly these.
	HEADER_SIZE = 512
	ENTRY_SIZE  = 256

	// The data section begins on the next DATA_ALIGNMENT boundary after
	// the entry table.
	DATA_ALIGNMENT = 512

	// Page size of the kernel loader. Content is streamed in page-sized
	// chunks.
	PAGE_SIZE = 0x1000

	// Longest path the loader will resolve, terminator included.
	MAX_PATH = 256
)

// Widths of the NUL-padded string fields. A field of width W stores at
// most W-1 content bytes.
const (
	NAME_SIZE        = 64
	VERSION_SIZE     = 16
	DESCRIPTION_SIZE = 256
	ENTRY_NAME_SIZE  = 64
)

var (
	ErrMalformedRecord = errors.New("malformed record")
)

type ModuleType uint32
type ModuleFlags uint32

const (
	MODULE_TYPE_APPLICATION ModuleType = 1
	MODULE_TYPE_DRIVER      ModuleType = 2
	MODULE_TYPE_DATA        ModuleType = 4
	MODULE_TYPE_UPDATE      ModuleType = 8
)

const (
	MODULE_FLAG_NONE       ModuleFlags = 0
	MODULE_FLAG_EXECUTABLE ModuleFlags = 1
	MODULE_FLAG_COMPRESSED ModuleFlags = 2
	MODULE_FLAG_SIGNED     ModuleFlags = 4
	MODULE_FLAG_READONLY   ModuleFlags = 8
)

var moduleTypeNames = map[ModuleType]string{
	MODULE_TYPE_APPLICATION: "application",
	MODULE_TYPE_DRIVER:      "driver",
	MODULE_TYPE_DATA:        "data",
	MODULE_TYPE_UPDATE:      "update",
}

func (t ModuleType) String() string {
	if name, ok := moduleTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", uint32(t))
}

// ParseModuleType maps a manifest type name onto its wire value.
func ParseModuleType(name string) (ModuleType, error) {
	switch strings.ToLower(name) {
	case "application", "app":
		return MODULE_TYPE_APPLICATION, nil
	case "driver":
		return MODULE_TYPE_DRIVER, nil
	case "data":
		return MODULE_TYPE_DATA, nil
	case "update":
		return MODULE_TYPE_UPDATE, nil
	}
	return 0, errors.Errorf("unknown module type %q", name)
}

func (f ModuleFlags) String() string {
	if f == MODULE_FLAG_NONE {
		return "none"
	}
	known := []struct {
		bit  ModuleFlags
		name string
	}{
		{MODULE_FLAG_EXECUTABLE, "executable"},
		{MODULE_FLAG_COMPRESSED, "compressed"},
		{MODULE_FLAG_SIGNED, "signed"},
		{MODULE_FLAG_READONLY, "readonly"},
	}
	parts := []string{}
	rest := f
	for _, k := range known {
		if rest&k.bit != 0 {
			parts = append(parts, k.name)
			rest &^= k.bit
		}
	}
	if rest != 0 {
		// Unknown bits are preserved and displayed, never rejected.
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, ",")
}

// Checksum32 is the header checksum algorithm: the unsigned 32-bit sum of
// every byte, wrapping on overflow.
func Checksum32(p []byte) uint32 {
	sum := uint32(0)
	for _, b := range p {
		sum += uint32(b)
	}
	return sum
}
