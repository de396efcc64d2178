package zip

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Entry is one file added to an archive under Name.
type Entry struct {
	Name string
	Path string
}

// WriteFiles streams entries into w as a zip archive. Missing files are
// skipped and reported back by name; any other error aborts.
func WriteFiles(w io.Writer, entries []Entry, modified time.Time) ([]string, error) {
	zw := zip.NewWriter(w)
	var skipped []string
	for _, entry := range entries {
		name := entry.Name
		if name == "" {
			name = filepath.Base(entry.Path)
		}
		if err := addFile(zw, name, entry.Path, modified); err != nil {
			if os.IsNotExist(err) {
				skipped = append(skipped, name)
				continue
			}
			_ = zw.Close()
			return skipped, err
		}
	}
	if err := zw.Close(); err != nil {
		return skipped, fmt.Errorf("zip: finalize: %w", err)
	}
	return skipped, nil
}

func addFile(zw *zip.Writer, name, path string, modified time.Time) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	header := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified}
	dst, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("zip: create %s: %w", name, err)
	}
	if _, err := io.Copy(dst, f); err != nil {
		return fmt.Errorf("zip: copy %s: %w", name, err)
	}
	return nil
}
