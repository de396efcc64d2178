package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PutObjectAPI is the slice of the S3 client the mirror needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Mirror copies finished artifacts into a bucket under <prefix>/<job>/<file>.
type S3Mirror struct {
	Client PutObjectAPI
	Bucket string
	Prefix string
}

// NewS3Mirror builds a mirror from the default AWS credential chain.
func NewS3Mirror(ctx context.Context, bucket, prefix, region string) (*S3Mirror, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("storage: s3 bucket is required")
	}
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}
	return &S3Mirror{Client: s3.NewFromConfig(cfg), Bucket: bucket, Prefix: prefix}, nil
}

// ObjectKey returns the bucket key for a job artifact.
func (m *S3Mirror) ObjectKey(jobID, filename string) string {
	parts := []string{}
	if p := strings.Trim(m.Prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, jobID, path.Base(filepath.ToSlash(filename)))
	return strings.Join(parts, "/")
}

// Upload reads localPath and stores it for jobID. It returns the object key.
func (m *S3Mirror) Upload(ctx context.Context, jobID, localPath string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("storage: read artifact: %w", err)
	}
	key := m.ObjectKey(jobID, localPath)
	_, err = m.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(http.DetectContentType(data)),
		Body:        bytes.NewReader(data),
		Metadata:    map[string]string{"job-id": jobID},
	})
	if err != nil {
		return "", fmt.Errorf("storage: put object %s: %w", key, err)
	}
	return key, nil
}
