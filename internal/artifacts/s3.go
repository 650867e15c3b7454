package artifacts

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/chatcut/chatcut/internal/filehandler"
	"github.com/rs/zerolog/log"
)

// ObjectPutter is the subset of *s3.Client used by S3Store.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads artifacts to Bucket under Prefix. When a presigner is set
// Save returns a time-limited GET URL, otherwise an s3:// URI.
type S3Store struct {
	client    ObjectPutter
	presigner *s3.PresignClient
	bucket    string
	prefix    string
	expiry    time.Duration
}

// NewS3Store creates an S3Store. presigner may be nil.
func NewS3Store(client ObjectPutter, presigner *s3.PresignClient, bucket, prefix string) *S3Store {
	return &S3Store{
		client:    client,
		presigner: presigner,
		bucket:    bucket,
		prefix:    prefix,
		expiry:    24 * time.Hour,
	}
}

// Save uploads r as prefix/name. Pass a seekable reader such as *os.File
// so the SDK can sign the payload.
func (s *S3Store) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}
	key := path.Join(s.prefix, name)

	input := &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
		Body:   r,
	}
	if ct, err := filehandler.GetMIMEType(path.Ext(name)); err == nil {
		input.ContentType = &ct
	}

	log.Debug().Str("bucket", s.bucket).Str("key", key).Msg("Uploading artifact to S3")
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload artifact to S3: %w", err)
	}
	log.Info().Str("bucket", s.bucket).Str("key", key).Msg("Artifact uploaded to S3")

	if s.presigner == nil {
		return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket, Key: &key,
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.expiry
	})
	if err != nil {
		return "", fmt.Errorf("presign GetObject: %w", err)
	}
	return req.URL, nil
}
