package statements

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"mobility-finance/ledger-backend/internal/config"
)

// ObjectAPI is the subset of the S3 client the archive uses
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Presigner issues time limited download links
type Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Archive keeps rendered statements in an S3 bucket
type Archive struct {
	client  ObjectAPI
	presign Presigner
	bucket  string
	prefix  string
	ttl     time.Duration
}

// Archived describes a stored statement
type Archived struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	URL    string `json:"url,omitempty"`
}

// NewArchive creates an archive. presign may be nil, in which case no
// download links are issued.
func NewArchive(client ObjectAPI, presign Presigner, cfg config.StatementsConfig) *Archive {
	return &Archive{
		client:  client,
		presign: presign,
		bucket:  cfg.Bucket,
		prefix:  cfg.Prefix,
		ttl:     cfg.URLTTL,
	}
}

// NewS3Archive builds an archive on the default AWS credential chain.
// A custom endpoint switches to static local credentials and path style
// addressing for S3 compatible stores.
func NewS3Archive(ctx context.Context, cfg config.StatementsConfig) (*Archive, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("statements.bucket is not configured")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewArchive(client, s3.NewPresignClient(client), cfg), nil
}

// Key returns the object key a statement is stored under
func (a *Archive) Key(name string, format Format) string {
	return path.Join(a.prefix, name+"."+string(format))
}

// Store renders st and uploads it, returning a download link when a
// presigner is configured
func (a *Archive) Store(ctx context.Context, name string, format Format, st *Statement) (*Archived, error) {
	var buf bytes.Buffer
	if err := Render(&buf, format, st); err != nil {
		return nil, err
	}

	key := a.Key(name, format)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(format.ContentType()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", key, err)
	}

	out := &Archived{Bucket: a.bucket, Key: key}
	if a.presign == nil {
		return out, nil
	}

	req, err := a.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(a.ttl))
	if err != nil {
		return nil, fmt.Errorf("failed to presign %s: %w", key, err)
	}
	out.URL = req.URL
	return out, nil
}
