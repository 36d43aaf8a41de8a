package secret

import (
	"context"
	"os"
	"strings"
)

// FileProvider reads a secret from a file (docker/k8s secret mounts):
// secretref:file:/run/secrets/jwt. Surrounding whitespace is trimmed.
type FileProvider struct{}

func NewFileProvider() *FileProvider { return &FileProvider{} }

func (p *FileProvider) Name() string { return "file" }

func (p *FileProvider) Resolve(_ context.Context, ref string) (string, error) {
	b, err := os.ReadFile(ref)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func (p *FileProvider) Close() error { return nil }
