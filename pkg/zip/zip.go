// Package zip bundles stored images into a downloadable archive.
package zip

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

type Asset struct {
	Filename string
	MIME     string
	Data     []byte
	Modified time.Time
}

// WriteArchive streams assets into w as a zip archive. Filenames get an
// extension from their MIME type when they lack one, and duplicates are
// suffixed so no entry is shadowed.
func WriteArchive(w io.Writer, assets []Asset) error {
	zw := zip.NewWriter(w)
	seen := make(map[string]int, len(assets))
	for _, asset := range assets {
		name := entryName(asset)
		if n := seen[name]; n > 0 {
			ext := path.Ext(name)
			name = fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), n+1, ext)
		}
		seen[entryName(asset)]++

		hdr := &zip.FileHeader{Name: name, Method: zip.Store}
		if !asset.Modified.IsZero() {
			hdr.Modified = asset.Modified
		}
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("zip: create %s: %w", name, err)
		}
		if _, err := fw.Write(asset.Data); err != nil {
			return fmt.Errorf("zip: write %s: %w", name, err)
		}
	}
	return zw.Close()
}

func entryName(asset Asset) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(asset.Filename), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "image"
	}
	if path.Ext(name) == "" {
		name += extensionFor(asset.MIME)
	}
	return name
}

func extensionFor(mime string) string {
	switch strings.ToLower(mime) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "image/png":
		return ".png"
	default:
		return ".bin"
	}
}
