package mediaservice

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3 stores images in an S3-compatible bucket. Storage ids are object keys and
// URLs are built from publicURL.
type S3 struct {
	client    s3API
	bucket    string
	folder    string
	publicURL string
}

func NewS3(ctx context.Context, region, bucket, endpoint, folder, publicURL string) (*S3, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}

	return &S3{
		client:    client,
		bucket:    bucket,
		folder:    folder,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

func (s *S3) Upload(ctx context.Context, img Image) (Asset, error) {
	if len(img.Data) == 0 {
		return Asset{}, ErrEmptyImage
	}

	contentType := img.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}

	key := s.objectKey(contentType)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(img.Data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return Asset{}, fmt.Errorf("s3 put object: %w", err)
	}

	return Asset{URL: s.publicURL + "/" + key, ID: key}, nil
}

func (s *S3) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyAssetID
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		return fmt.Errorf("s3 delete object: %w", err)
	}

	return nil
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

func (s *S3) objectKey(contentType string) string {
	ext, ok := imageExtensions[contentType]
	if !ok {
		ext = ".bin"
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	return path.Join(s.folder, uuid.NewString()+ext)
}
