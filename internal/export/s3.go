package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds the settings for the optional artifact upload.
type S3Config struct {
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Uploader pushes finished artifacts to an S3 bucket.
type Uploader struct {
	client *s3.Client
	bucket string
	logger *slog.Logger
}

// NewUploader creates an Uploader. With empty AccessKey/SecretKey the
// default AWS credential chain (environment, IAM role) is used.
func NewUploader(ctx context.Context, cfg S3Config, logger *slog.Logger) (*Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("export: s3 bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("export: load aws config: %w", err)
	}

	return &Uploader{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		logger: logger,
	}, nil
}

// UploadFile stores one local file under prefix/<basename> in the bucket.
func (u *Uploader) UploadFile(ctx context.Context, prefix, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("export: open %s: %w", localPath, err)
	}
	defer func() { _ = f.Close() }()

	key := path.Join(prefix, filepath.Base(localPath))
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentTypeForArtifact(localPath)),
	})
	if err != nil {
		return "", fmt.Errorf("export: upload %s: %w", key, err)
	}
	u.logger.Info("artifact uploaded", "bucket", u.bucket, "key", key)
	return key, nil
}

// UploadAll uploads every file, stopping on the first failure.
func (u *Uploader) UploadAll(ctx context.Context, prefix string, paths []string) error {
	for _, p := range paths {
		if _, err := u.UploadFile(ctx, prefix, p); err != nil {
			return err
		}
	}
	return nil
}

func contentTypeForArtifact(localPath string) string {
	switch filepath.Ext(localPath) {
	case ".json", ".jsonl":
		return "application/json"
	case ".csv":
		return "text/csv"
	case ".db":
		return "application/vnd.sqlite3"
	default:
		return "application/octet-stream"
	}
}
