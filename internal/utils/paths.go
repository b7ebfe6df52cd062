package utils

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ResolvePath anchors a relative path at baseDir. Absolute and empty
// paths are returned unchanged.
func ResolvePath(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// SanitizeFileName maps an identifier to a name safe for use as a single
// path element. Letters, digits, '-', '_' and '.' are kept; every other
// byte is written as %XX, so distinct ids always map to distinct names.
func SanitizeFileName(id string) string {
	switch id {
	case "":
		return "%"
	case ".", "..":
		return strings.Repeat("%2E", len(id))
	}
	var b strings.Builder
	for i := 0; i < len(id); {
		r, size := utf8.DecodeRuneInString(id[i:])
		if r == '-' || r == '_' || r == '.' || (r != utf8.RuneError && (unicode.IsLetter(r) || unicode.IsDigit(r))) {
			b.WriteString(id[i : i+size])
		} else {
			for j := i; j < i+size; j++ {
				fmt.Fprintf(&b, "%%%02X", id[j])
			}
		}
		i += size
	}
	return b.String()
}
