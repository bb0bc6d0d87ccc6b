// Package s3 provides an S3-backed object gateway (AWS S3, MinIO, or any
// S3-compatible endpoint).
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/edulib/media-backend/pkg/medialib"
)

// Config holds the gateway configuration.
type Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string

	// Endpoint overrides the AWS endpoint for S3-compatible services.
	Endpoint     string
	UsePathStyle bool

	// CDNBaseURL, when set, is the public base canonical asset URLs are built
	// on instead of the raw bucket endpoint.
	CDNBaseURL string

	CreateBucketIfNotExist bool
}

// Gateway implements medialib.ObjectGateway on an S3 bucket.
type Gateway struct {
	client   *awss3.Client
	uploader *manager.Uploader
	cfg      Config
}

// New creates the gateway and optionally ensures the bucket exists.
func New(ctx context.Context, cfg Config) (*Gateway, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	g := &Gateway{
		client:   client,
		uploader: manager.NewUploader(client),
		cfg:      cfg,
	}

	if cfg.CreateBucketIfNotExist {
		if err := g.ensureBucket(ctx); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (g *Gateway) ensureBucket(ctx context.Context) error {
	_, err := g.client.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(g.cfg.Bucket)})
	if err == nil {
		return nil
	}
	_, err = g.client.CreateBucket(ctx, &awss3.CreateBucketInput{Bucket: aws.String(g.cfg.Bucket)})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("s3: create bucket %s: %w", g.cfg.Bucket, err)
	}
	slog.Info("Created bucket", "bucket", g.cfg.Bucket)
	return nil
}

// Put streams the object into the bucket and returns its canonical URL plus
// a derived thumbnail URL where the resource type supports one.
func (g *Gateway) Put(ctx context.Context, key string, r io.Reader, contentType string, kind medialib.ContentKind) (*medialib.PutResult, error) {
	_, err := g.uploader.Upload(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(g.cfg.Bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("s3: put %s: %w", key, err)
	}

	url := g.objectURL(key)
	return &medialib.PutResult{
		Key:          key,
		URL:          url,
		ThumbnailURL: g.thumbnailURL(key, kind, url),
	}, nil
}

// Describe returns object metadata without fetching the body.
func (g *Gateway) Describe(ctx context.Context, key string) (*medialib.ObjectInfo, error) {
	out, err := g.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(g.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3: head %s: %w", key, err)
	}

	info := &medialib.ObjectInfo{
		Key:         key,
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
		ETag:        strings.Trim(aws.ToString(out.ETag), `"`),
	}
	if out.LastModified != nil {
		info.UpdatedAt = *out.LastModified
	}
	return info, nil
}

// Delete removes the object. Deleting a missing key is not an error.
func (g *Gateway) Delete(ctx context.Context, key string) error {
	_, err := g.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(g.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3: delete %s: %w", key, err)
	}
	return nil
}

// KeyFromURL recovers the object key from a canonical URL this gateway
// produced. Foreign URLs report false.
func (g *Gateway) KeyFromURL(url string) (string, bool) {
	for _, base := range []string{g.cfg.CDNBaseURL, g.bucketBaseURL()} {
		if base == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(url, strings.TrimSuffix(base, "/")+"/"); ok && rest != "" {
			return rest, true
		}
	}
	return "", false
}

func (g *Gateway) objectURL(key string) string {
	if g.cfg.CDNBaseURL != "" {
		return strings.TrimSuffix(g.cfg.CDNBaseURL, "/") + "/" + key
	}
	return g.bucketBaseURL() + "/" + key
}

func (g *Gateway) bucketBaseURL() string {
	if g.cfg.Endpoint != "" {
		return strings.TrimSuffix(g.cfg.Endpoint, "/") + "/" + g.cfg.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", g.cfg.Bucket, g.cfg.Region)
}

// thumbnailURL derives a thumbnail for kinds that can have one: an image is
// its own thumbnail, a video points at the thumbs/ sidecar its processing
// pipeline writes. Raw resource kinds get none and fall back to placeholders.
func (g *Gateway) thumbnailURL(key string, kind medialib.ContentKind, canonical string) string {
	switch medialib.KindResourceType(kind) {
	case medialib.ResourceImage:
		return canonical
	case medialib.ResourceVideo:
		base := strings.TrimSuffix(path.Base(key), path.Ext(key))
		return g.objectURL("thumbs/" + base + ".jpg")
	default:
		return ""
	}
}
