// Package s3 mirrors provisioned artifacts into S3-compatible object storage.
package s3

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ochairo/jarfetch/internal/domain/entities"
)

const jarContentType = "application/java-archive"

// ObjectAPI is the subset of the S3 client used by the mirror
type ObjectAPI interface {
	manager.UploadAPIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Config holds S3-compatible storage configuration
type Config struct {
	// Endpoint of an S3-compatible service such as MinIO; empty means AWS
	Endpoint        string
	Bucket          string
	Prefix          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// PathStyle addressing is required by MinIO
	PathStyle bool
}

// Mirror uploads artifacts using the Maven repository layout, so the
// bucket can later serve as a repository base URL itself.
type Mirror struct {
	client   ObjectAPI
	uploader *manager.Uploader
	bucket   string
	prefix   string
	runID    string
}

// NewMirror creates a mirror backed by a real S3 client
func NewMirror(ctx context.Context, cfg Config, runID string) (*Mirror, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("mirror bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return NewMirrorWithClient(client, cfg.Bucket, cfg.Prefix, runID), nil
}

// NewMirrorWithClient creates a mirror around an existing client
func NewMirrorWithClient(client ObjectAPI, bucket, prefix, runID string) *Mirror {
	return &Mirror{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		runID:    runID,
	}
}

// Key returns the object key of an artifact
func (m *Mirror) Key(entry entities.ManifestEntry) string {
	return path.Join(m.prefix, entry.RelativePath())
}

// MirrorArtifact uploads filePath unless an object of the same size already exists
func (m *Mirror) MirrorArtifact(ctx context.Context, entry entities.ManifestEntry, filePath string) (bool, error) {
	key := m.Key(entry)

	//nolint:gosec // G304: filePath is a provisioned artifact
	f, err := os.Open(filePath)
	if err != nil {
		return false, fmt.Errorf("failed to open artifact: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("failed to stat artifact: %w", err)
	}

	head, err := m.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	switch {
	case err == nil:
		if head.ContentLength != nil && *head.ContentLength == info.Size() {
			return false, nil
		}
	case !isNotFound(err):
		return false, fmt.Errorf("failed to inspect s3://%s/%s: %w", m.bucket, key, err)
	}

	_, err = m.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(jarContentType),
		Metadata: map[string]string{
			"coordinate": entry.Coordinate.String(),
			"source-url": entry.URL(),
			"run-id":     m.runID,
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to upload s3://%s/%s: %w", m.bucket, key, err)
	}

	return true, nil
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var respErr *awshttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound
}
