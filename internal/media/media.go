// Package media stores project thumbnails in an S3-compatible bucket and
// hands back public URLs for listing cards.
package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aquanexus/credits-cli/internal/config"
)

// allowedExtensions lists the image formats accepted for thumbnails.
var allowedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// ObjectPutter is the S3 surface Uploader depends on.
type ObjectPutter interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader writes thumbnails under thumbnails/ in a single bucket.
type Uploader struct {
	client  ObjectPutter
	bucket  string
	region  string
	baseURL string
}

// NewUploader creates an Uploader from media configuration, resolving AWS
// credentials from the default chain.
func NewUploader(ctx context.Context, cfg config.MediaConfig) (*Uploader, error) {
	if cfg.Bucket == "" {
		return nil, eris.New("media: bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, eris.Wrap(err, "media: load aws config")
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &Uploader{
		client:  client,
		bucket:  cfg.Bucket,
		region:  region,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

// NewUploaderWithClient wraps an existing client. Used by tests.
func NewUploaderWithClient(client ObjectPutter, bucket, region, baseURL string) *Uploader {
	return &Uploader{client: client, bucket: bucket, region: region, baseURL: strings.TrimRight(baseURL, "/")}
}

// UploadThumbnail stores an image under a fresh random key and returns its
// public URL. The original filename only contributes its extension.
func (u *Uploader) UploadThumbnail(ctx context.Context, filename string, body io.Reader) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	contentType, ok := allowedExtensions[ext]
	if !ok {
		return "", eris.Errorf("media: unsupported image type %q", ext)
	}

	key := "thumbnails/" + uuid.New().String() + ext
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", eris.Wrapf(err, "media: put %s", key)
	}

	url := u.PublicURL(key)
	zap.L().Info("thumbnail stored", zap.String("key", key), zap.String("url", url))
	return url, nil
}

// PublicURL renders the externally reachable URL for an object key.
func (u *Uploader) PublicURL(key string) string {
	if u.baseURL != "" {
		return u.baseURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.bucket, u.region, key)
}
