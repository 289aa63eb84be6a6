package util

import (
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FilenameFromURL builds a deterministic local filename for a remote file:
// the given id plus the extension of the URL path. Falls back to .img when
// the URL carries no extension.
func FilenameFromURL(id, rawURL string) string {
	ext := ".img"
	if u, err := url.Parse(rawURL); err == nil {
		if e := path.Ext(u.Path); e != "" {
			ext = strings.ToLower(e)
		}
	}
	return id + ext
}

// Stem returns the file name without its directory or extension.
func Stem(p string) string {
	base := filepath.Base(p)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// PathExists reports whether the given path exists.
func PathExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
