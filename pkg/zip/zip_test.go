package zip

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	if err := os.WriteFile(a, []byte("alpha"), 0o644); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	skipped, err := WriteFiles(&buf, []Entry{
		{Name: "letters/a.png", Path: a},
		{Path: filepath.Join(dir, "gone.pdf")},
	}, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("WriteFiles error: %v", err)
	}
	if len(skipped) != 1 || skipped[0] != "gone.pdf" {
		t.Fatalf("skipped = %v", skipped)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("NewReader error: %v", err)
	}
	if len(zr.File) != 1 || zr.File[0].Name != "letters/a.png" {
		t.Fatalf("entries = %v", zr.File)
	}
	rc, _ := zr.File[0].Open()
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "alpha" {
		t.Fatalf("data = %q", data)
	}
}
