package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"

	"github.com/chatcut/chatcut/internal/filehandler"
)

// ObjectGetter is the subset of *s3.Client used by S3Fetcher.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Fetcher copies s3://bucket/key media references to local files so they
// can be validated and sent to a provider like any other path.
type S3Fetcher struct {
	client ObjectGetter
	dir    string
}

// NewS3Fetcher downloads into temporary directories under dir. An empty dir
// uses the system temp directory.
func NewS3Fetcher(client ObjectGetter, dir string) *S3Fetcher {
	return &S3Fetcher{client: client, dir: dir}
}

// ParseS3URI splits an s3://bucket/key URI.
func ParseS3URI(uri string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(uri, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", false
	}
	return bucket, key, true
}

// Localize returns paths with every s3:// reference replaced by a local
// copy. Other paths pass through unchanged. cleanup removes the copies and
// is never nil. Download failures are *filehandler.FileError values.
func (f *S3Fetcher) Localize(ctx context.Context, paths []string) (local []string, cleanup func(), err error) {
	cleanup = func() {}
	var tmp string
	local = make([]string, 0, len(paths))
	for _, p := range paths {
		if !strings.HasPrefix(p, "s3://") {
			local = append(local, p)
			continue
		}
		bucket, key, ok := ParseS3URI(p)
		if !ok {
			return nil, cleanup, &filehandler.FileError{Kind: filehandler.ErrKindNotFound, Path: p, Err: errors.New("malformed s3 URI")}
		}
		if tmp == "" {
			if tmp, err = os.MkdirTemp(f.dir, "chatcut-media-*"); err != nil {
				return nil, cleanup, fmt.Errorf("create download dir: %w", err)
			}
			dir := tmp
			cleanup = func() {
				if err := os.RemoveAll(dir); err != nil {
					log.Warn().Err(err).Str("dir", dir).Msg("Failed to remove downloaded media")
				}
			}
		}
		dst := filepath.Join(tmp, fmt.Sprintf("%d-%s", len(local), path.Base(key)))
		if err := f.download(ctx, bucket, key, dst); err != nil {
			cleanup()
			return nil, func() {}, &filehandler.FileError{Kind: fetchErrorKind(err), Path: p, Err: err}
		}
		local = append(local, dst)
	}
	return local, cleanup, nil
}

func (f *S3Fetcher) download(ctx context.Context, bucket, key, dst string) error {
	log.Debug().Str("bucket", bucket).Str("key", key).Str("localPath", dst).Msg("Downloading media from S3")
	result, err := f.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		return fmt.Errorf("S3 GetObject: %w", err)
	}
	defer result.Body.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(out, result.Body); err != nil {
		out.Close()
		return fmt.Errorf("download: %w", err)
	}
	return out.Close()
}

func fetchErrorKind(err error) filehandler.FileErrorKind {
	var noKey *types.NoSuchKey
	var noBucket *types.NoSuchBucket
	if errors.As(err, &noKey) || errors.As(err, &noBucket) {
		return filehandler.ErrKindNotFound
	}
	return filehandler.ErrKindAccess
}
