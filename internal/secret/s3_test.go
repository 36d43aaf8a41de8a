package secret

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGetter struct {
	body   string
	err    error
	bucket string
	key    string
}

func (f *fakeGetter) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestS3Provider_Resolve(t *testing.T) {
	g := &fakeGetter{body: "object-secret\n"}
	p := &S3Provider{client: g}

	got, err := p.Resolve(context.Background(), "config/keys/jwt-v1")
	require.NoError(t, err)
	assert.Equal(t, "object-secret", got)
	assert.Equal(t, "config", g.bucket)
	assert.Equal(t, "keys/jwt-v1", g.key)
}

func TestS3Provider_Errors(t *testing.T) {
	p := &S3Provider{client: &fakeGetter{err: errors.New("no such key")}}

	_, err := p.Resolve(context.Background(), "bucket/key")
	require.Error(t, err)

	_, err = p.Resolve(context.Background(), "bucket-only")
	require.Error(t, err)
}

func TestNewS3Provider_UsesStaticCredentials(t *testing.T) {
	p, err := NewS3Provider(context.Background(), S3Options{
		Region:       "us-east-1",
		BaseEndpoint: "http://127.0.0.1:9000",
		AccessKey:    "minio",
		SecretKey:    "minio-secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "s3", p.Name())
	assert.NotNil(t, p.client)
	assert.NoError(t, p.Close())
}
