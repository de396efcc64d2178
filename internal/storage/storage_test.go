package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	path, err := store.Write(context.Background(), "letter_banner_x/a.png", []byte("png"))
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if want := filepath.Join(store.BasePath(), "letter_banner_x", "a.png"); path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
	key, err := store.Key(path)
	if err != nil || key != "letter_banner_x/a.png" {
		t.Fatalf("Key = %q, %v", key, err)
	}
	rc, err := store.Open(key)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "png" {
		t.Fatalf("data = %q, want png", data)
	}
	if err := store.RemoveAll("letter_banner_x"); err != nil {
		t.Fatalf("RemoveAll error: %v", err)
	}
	if _, err := store.Open(key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Open after RemoveAll err = %v, want ErrNotFound", err)
	}
	if err := store.Remove(key); err != nil {
		t.Fatalf("Remove of missing file should succeed, got %v", err)
	}
}

func TestSanitizeKey(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "a/b.png", want: "a/b.png"},
		{in: "/abs/x.png", want: "abs/x.png"},
		{in: "./a\\b.png", want: "a/b.png"},
		{in: "../escape", wantErr: true},
		{in: "a/../../escape", wantErr: true},
		{in: "  ", wantErr: true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			got, err := sanitizeKey(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("sanitizeKey(%q) = %q, want error", tc.in, got)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Fatalf("sanitizeKey(%q) = %q, %v, want %q", tc.in, got, err, tc.want)
			}
		})
	}
}

type fakePutObject struct {
	inputs []*s3.PutObjectInput
	err    error
}

func (f *fakePutObject) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.inputs = append(f.inputs, params)
	return &s3.PutObjectOutput{}, f.err
}

func TestS3MirrorUpload(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	local := filepath.Join(dir, "printable_banner_1.png")
	if err := os.WriteFile(local, []byte("\x89PNG\r\n\x1a\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	fake := &fakePutObject{}
	mirror := &S3Mirror{Client: fake, Bucket: "banners", Prefix: "/out/"}
	key, err := mirror.Upload(context.Background(), "job-1", local)
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}
	if key != "out/job-1/printable_banner_1.png" {
		t.Fatalf("key = %q", key)
	}
	in := fake.inputs[0]
	if aws.ToString(in.Bucket) != "banners" || aws.ToString(in.ContentType) != "image/png" {
		t.Fatalf("bucket = %q content type = %q", aws.ToString(in.Bucket), aws.ToString(in.ContentType))
	}

	fake.err = errors.New("denied")
	if _, err := mirror.Upload(context.Background(), "job-1", local); err == nil {
		t.Fatal("expected upload error")
	}
}
