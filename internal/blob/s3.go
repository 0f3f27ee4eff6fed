package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog/log"

	"github.com/fpang/synthetic-patients/internal/retry"
)

// projectTag is the URL-encoded S3 object tagging string for cost allocation.
const projectTag = "Project=synthetic-patients"

// ProjectTagging returns a pointer to the URL-encoded S3 object tagging string.
func ProjectTagging() *string {
	t := projectTag
	return &t
}

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Presigner is the subset of the S3 presign client used by S3Store.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Options configures an S3Store.
type S3Options struct {
	Bucket string
	// PublicBaseURL, when set, is joined with the key instead of presigning.
	PublicBaseURL string
	PresignExpiry time.Duration
}

// S3Store implements Store on an S3 bucket.
type S3Store struct {
	client    S3API
	presigner Presigner
	opts      S3Options
	policy    retry.Policy
}

var _ Store = (*S3Store)(nil)

// NewS3Store creates an S3Store. presigner may be nil when PublicBaseURL is set.
func NewS3Store(client S3API, presigner Presigner, opts S3Options, policy retry.Policy) *S3Store {
	if opts.PresignExpiry <= 0 {
		opts.PresignExpiry = 24 * time.Hour
	}
	return &S3Store{client: client, presigner: presigner, opts: opts, policy: policy}
}

// Bucket returns the configured bucket name.
func (s *S3Store) Bucket() string { return s.opts.Bucket }

// Exists issues HeadObject. A missing key is (false, nil).
func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := retry.Do(ctx, s.policy.Named("s3.head"), func(ctx context.Context) (*s3.HeadObjectOutput, error) {
		return s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: &s.opts.Bucket,
			Key:    &key,
		})
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("HeadObject %s: %w", key, err)
}

// Put uploads obj with its metadata and the project cost-allocation tag.
func (s *S3Store) Put(ctx context.Context, obj Object) error {
	start := time.Now()
	_, err := retry.Do(ctx, s.policy.Named("s3.put"), func(ctx context.Context) (*s3.PutObjectOutput, error) {
		input := &s3.PutObjectInput{
			Bucket:   &s.opts.Bucket,
			Key:      &obj.Key,
			Body:     bytes.NewReader(obj.Body),
			Metadata: obj.Metadata,
			Tagging:  ProjectTagging(),
		}
		if obj.ContentType != "" {
			input.ContentType = &obj.ContentType
		}
		if obj.ContentEncoding != "" {
			input.ContentEncoding = &obj.ContentEncoding
		}
		return s.client.PutObject(ctx, input)
	})
	if err != nil {
		return fmt.Errorf("PutObject %s: %w", obj.Key, err)
	}
	log.Debug().
		Str("bucket", s.opts.Bucket).
		Str("key", obj.Key).
		Int("bytes", len(obj.Body)).
		Dur("duration", time.Since(start)).
		Msg("S3 object written")
	return nil
}

// URL returns the public URL for key, or a presigned GET URL.
func (s *S3Store) URL(ctx context.Context, key string) (string, error) {
	if s.opts.PublicBaseURL != "" {
		return strings.TrimRight(s.opts.PublicBaseURL, "/") + "/" + key, nil
	}
	if s.presigner == nil {
		return fmt.Sprintf("s3://%s/%s", s.opts.Bucket, key), nil
	}
	result, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.opts.Bucket,
		Key:    &key,
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.opts.PresignExpiry
	})
	if err != nil {
		return "", fmt.Errorf("presign GetObject: %w", err)
	}
	return result.URL, nil
}

// isNotFound recognises HeadObject's 404 in its several shapes.
func isNotFound(err error) bool {
	var nf *s3types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return retry.StatusCode(err) == http.StatusNotFound
}
