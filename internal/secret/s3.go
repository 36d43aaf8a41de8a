package secret

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// maxSecretObjectSize caps how much of an object is read as a secret.
const maxSecretObjectSize = 64 << 10

type objectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Options configures the client behind S3Provider. Empty credentials fall
// back to the default AWS chain; BaseEndpoint targets S3-compatible stores
// such as MinIO.
type S3Options struct {
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
}

// S3Provider reads a secret from an object: secretref:s3:<bucket>/<key>.
type S3Provider struct {
	client objectGetter
}

var loadDefaultAWSConfig = config.LoadDefaultConfig

func NewS3Provider(ctx context.Context, opts S3Options) (*S3Provider, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Provider{client: client}, nil
}

func (p *S3Provider) Name() string { return "s3" }

func (p *S3Provider) Resolve(ctx context.Context, ref string) (string, error) {
	bucket, key, ok := strings.Cut(ref, "/")
	if !ok || bucket == "" || key == "" {
		return "", errors.New("s3 secret ref must be <bucket>/<key>")
	}

	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("get object: %w", err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(io.LimitReader(out.Body, maxSecretObjectSize))
	if err != nil {
		return "", fmt.Errorf("read object: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func (p *S3Provider) Close() error { return nil }
