package remotestore

import (
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const defaultContentType = "application/octet-stream"

// detectContentType sniffs a local file, falling back to its extension.
func detectContentType(path string) string {
	file, err := os.Open(path)
	if err == nil {
		defer file.Close()
		buf := make([]byte, 512)
		n, _ := file.Read(buf)
		if n > 0 {
			if mt := mimetype.Detect(buf[:n]); mt != nil && mt.String() != defaultContentType {
				return mt.String()
			}
		}
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".tsv" {
		return "text/tab-separated-values"
	}
	if ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return byExt
		}
	}
	return defaultContentType
}
