package artifacts

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/chatcut/chatcut/internal/filehandler"
)

type fakeGetter struct {
	objects map[string]string
	err     error
}

func (f *fakeGetter) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		in          string
		bucket, key string
		ok          bool
	}{
		{"s3://media/uploads/clip.mp4", "media", "uploads/clip.mp4", true},
		{"s3://media/clip.mp4", "media", "clip.mp4", true},
		{"s3://media/", "", "", false},
		{"s3://media", "", "", false},
		{"s3://media/dir/", "", "", false},
		{"/local/clip.mp4", "", "", false},
	}
	for _, tt := range tests {
		bucket, key, ok := ParseS3URI(tt.in)
		if bucket != tt.bucket || key != tt.key || ok != tt.ok {
			t.Errorf("ParseS3URI(%q) = %q, %q, %v", tt.in, bucket, key, ok)
		}
	}
}

func TestLocalize(t *testing.T) {
	getter := &fakeGetter{objects: map[string]string{"media/a/clip.mp4": "video"}}
	f := NewS3Fetcher(getter, t.TempDir())

	local, cleanup, err := f.Localize(context.Background(), []string{"/keep/me.mp4", "s3://media/a/clip.mp4"})
	if err != nil {
		t.Fatal(err)
	}
	if local[0] != "/keep/me.mp4" {
		t.Errorf("local path rewritten: %q", local[0])
	}
	if !strings.HasSuffix(local[1], "clip.mp4") {
		t.Errorf("download path %q lost its extension", local[1])
	}
	data, err := os.ReadFile(local[1])
	if err != nil || string(data) != "video" {
		t.Fatalf("downloaded = %q, %v", data, err)
	}
	cleanup()
	if _, err := os.Stat(local[1]); !os.IsNotExist(err) {
		t.Error("cleanup left the download behind")
	}
}

func TestLocalizeErrors(t *testing.T) {
	tests := []struct {
		name   string
		getter *fakeGetter
		path   string
		kind   filehandler.FileErrorKind
	}{
		{"missing key", &fakeGetter{}, "s3://media/nope.mp4", filehandler.ErrKindNotFound},
		{"malformed", &fakeGetter{}, "s3://media/", filehandler.ErrKindNotFound},
		{"denied", &fakeGetter{err: errors.New("AccessDenied")}, "s3://media/clip.mp4", filehandler.ErrKindAccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, cleanup, err := NewS3Fetcher(tt.getter, t.TempDir()).Localize(context.Background(), []string{tt.path})
			cleanup()
			var fe *filehandler.FileError
			if !errors.As(err, &fe) || fe.Kind != tt.kind || fe.Path != tt.path {
				t.Errorf("err = %v", err)
			}
		})
	}
}
