package format

import (
	"io/fs"
	"path"
	"strings"
)

// NormalizePath canonicalizes a logical module path: backslashes become
// forward slashes, redundant separators and dot segments collapse, and a
// leading slash drops. "a\\b" and "a//b" both come out as "a/b", so the
// builder can catch them as duplicates instead of storing both.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = path.Clean(p)
	return strings.TrimPrefix(p, "/")
}

// ValidPath reports whether a normalized logical path may be stored in a
// package. Empty paths and paths that escape upward ("..") are rejected;
// they could not be recreated under a destination directory.
func ValidPath(p string) bool {
	return p != "." && fs.ValidPath(p)
}
