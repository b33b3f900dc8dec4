package mediatype

import (
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
)

const Fallback = "application/octet-stream"

var extensionAliases = map[string]string{
	"jpeg": "jpg",
	"tiff": "tif",
}

// FromFilename resolves a media type from the file extension alone.
func FromFilename(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if alias, ok := extensionAliases[ext]; ok {
		ext = alias
	}
	if ext == "" {
		return Fallback
	}
	kind := filetype.GetType(ext)
	if kind == filetype.Unknown || kind.MIME.Value == "" {
		return Fallback
	}
	return kind.MIME.Value
}

// Resolve keeps a declared media type and falls back to the extension when
// the client sent none or a generic one.
func Resolve(declared, name string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && !strings.EqualFold(declared, Fallback) {
		return declared
	}
	return FromFilename(name)
}
