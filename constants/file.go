package constants

import "strings"

// InputFormats holds the accepted source document formats.
var InputFormats = []string{"PDF", "TXT"}

// AllowedExtensions holds the default allowed file extensions for input documents.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
	"txt": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat maps a file extension to its canonical format name,
// or "" when the extension is not supported.
func MapExtToFormat(ext string) string {
	e := NormalizeExt(ext)
	if _, ok := AllowedExtensions[e]; !ok {
		return ""
	}
	return strings.ToUpper(e)
}
