package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config holds explicit construction parameters. Endpoint and PathStyle
// exist for S3-compatible stores (MinIO) and tests; credentials come from
// the default AWS chain.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	PathStyle bool
}

// S3Target mirrors snapshots into a single S3 bucket. Keys map to object
// keys directly.
type S3Target struct {
	client *s3.Client
	bucket string
}

// NewS3 creates an S3 target from cfg.
func NewS3(ctx context.Context, cfg S3Config) (*S3Target, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive: s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &S3Target{client: client, bucket: cfg.Bucket}, nil
}

func (t *S3Target) Store(ctx context.Context, key string, r io.Reader, size int64) error {
	// An earlier attempt may have completed; a mirrored snapshot never
	// changes under its key, so presence means done.
	_, err := t.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &t.bucket, Key: &key})
	if err == nil {
		return nil
	}
	input := &s3.PutObjectInput{Bucket: &t.bucket, Key: &key, Body: r}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := t.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("archive: put %s: %w", key, err)
	}
	return nil
}

func (t *S3Target) List(ctx context.Context, prefix string) ([]Object, error) {
	var objects []Object
	var token *string
	for {
		out, err := t.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &t.bucket,
			Prefix:            &prefix,
			ContinuationToken: token,
		})
		if err != nil {
			return nil, err
		}
		for _, obj := range out.Contents {
			var size int64
			if obj.Size != nil {
				size = *obj.Size
			}
			objects = append(objects, Object{
				Key:          aws.ToString(obj.Key),
				Size:         size,
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
		if out.IsTruncated != nil && *out.IsTruncated && out.NextContinuationToken != nil {
			token = out.NextContinuationToken
			continue
		}
		break
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

func (t *S3Target) Delete(ctx context.Context, key string) error {
	_, err := t.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &t.bucket, Key: &key})
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return nil
	}
	return err
}

var _ Target = (*S3Target)(nil)
var _ Target = (*FSTarget)(nil)

// KeyJoin builds an object key from a configured prefix and a file name.
func KeyJoin(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
