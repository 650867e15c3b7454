package artifacts

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func TestLocalStoreSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "output")
	store := NewLocalStore(dir)

	got, err := store.Save(context.Background(), "../../processed.mp4", strings.NewReader("video"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(got) != "processed.mp4" || filepath.Dir(got) != mustAbs(t, dir) {
		t.Errorf("path = %q, want file inside %q", got, dir)
	}
	data, err := os.ReadFile(got)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "video" {
		t.Errorf("content = %q", data)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the artifact in %s, found %d entries", dir, len(entries))
	}
}

func TestLocalStoreInvalidName(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	if _, err := store.Save(context.Background(), "  ", strings.NewReader("x")); err == nil {
		t.Error("expected error for blank name")
	}
}

func TestLocalStoreCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := t.TempDir()
	if _, err := NewLocalStore(dir).Save(ctx, "a.mp4", strings.NewReader("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.mp4")); !os.IsNotExist(err) {
		t.Error("cancelled save should not leave a file")
	}
}

type fakePutter struct {
	bucket, key, contentType string
	body                     string
	err                      error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket, f.key = *in.Bucket, *in.Key
	if in.ContentType != nil {
		f.contentType = *in.ContentType
	}
	data, _ := io.ReadAll(in.Body)
	f.body = string(data)
	return &s3.PutObjectOutput{}, nil
}

func TestS3StoreSave(t *testing.T) {
	putter := &fakePutter{}
	store := NewS3Store(putter, nil, "media-out", "processed")

	got, err := store.Save(context.Background(), "clip.mp4", strings.NewReader("video"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "s3://media-out/processed/clip.mp4" {
		t.Errorf("location = %q", got)
	}
	if putter.key != "processed/clip.mp4" || putter.body != "video" {
		t.Errorf("put = %+v", putter)
	}
	if putter.contentType != "video/mp4" {
		t.Errorf("content type = %q", putter.contentType)
	}
}

func TestS3StoreSaveError(t *testing.T) {
	store := NewS3Store(&fakePutter{err: errors.New("denied")}, nil, "b", "")
	if _, err := store.Save(context.Background(), "clip.mp4", strings.NewReader("x")); err == nil {
		t.Error("expected error")
	}
}

func mustAbs(t *testing.T, p string) string {
	t.Helper()
	abs, err := filepath.Abs(p)
	if err != nil {
		t.Fatal(err)
	}
	return abs
}
