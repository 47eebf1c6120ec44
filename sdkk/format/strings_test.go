package format

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestFixedStringTruncation(t *testing.T) {

	long := strings.Repeat("a", 100)
	dst := make([]byte, ENTRY_NAME_SIZE)

	putFixedString(dst, long)

	if dst[ENTRY_NAME_SIZE-1] != 0 {
		t.Error("last byte of the field is not a terminator")
	}
	if got := fixedString(dst); got != long[:ENTRY_NAME_SIZE-1] {
		t.Errorf("stored %q (%d bytes), expected the first %d bytes", got, len(got), ENTRY_NAME_SIZE-1)
	}
}

func TestFixedStringMultibyteBoundary(t *testing.T) {

	// 40 two-byte runes is 80 bytes. Byte 63 would land in the middle of
	// the 32nd rune, so the cut has to back off to byte 62.
	long := strings.Repeat("ä", 40)
	dst := make([]byte, ENTRY_NAME_SIZE)

	putFixedString(dst, long)

	got := fixedString(dst)
	if !utf8.ValidString(got) {
		t.Fatalf("stored name is not valid UTF-8: % x", got)
	}
	if want := strings.Repeat("ä", 31); got != want {
		t.Errorf("stored %d bytes (%q), expected %d", len(got), got, len(want))
	}
}

func TestFixedStringReusedBuffer(t *testing.T) {

	dst := bytes.Repeat([]byte{0xFF}, 16)
	putFixedString(dst, "hi")

	want := append([]byte("hi"), make([]byte, 14)...)
	if !bytes.Equal(dst, want) {
		t.Errorf("dirty buffer not fully padded: % x", dst)
	}
}

func TestFixedStringIgnoresTrailingGarbage(t *testing.T) {

	if got := fixedString([]byte{'h', 'i', 0, 0xFF, 0xFF}); got != "hi" {
		t.Errorf("got %q, expected %q", got, "hi")
	}
	// no terminator at all means the whole field is content
	if got := fixedString([]byte{'h', 'i'}); got != "hi" {
		t.Errorf("got %q, expected %q", got, "hi")
	}
}
