package secret

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const refPrefix = "secretref:"

var ErrEmptySecret = errors.New("secret resolved to an empty value")

// Resolver dispatches secret references to registered providers.
// Values without the secretref: prefix are returned unchanged.
type Resolver struct {
	providers map[string]Provider
}

func NewResolver(providers ...Provider) *Resolver {
	r := &Resolver{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Name()] = p
		}
	}
	return r
}

// ParseSecretRef splits secretref:<provider>:<ref>.
func ParseSecretRef(value string) (provider string, ref string, ok bool) {
	if !strings.HasPrefix(value, refPrefix) {
		return "", "", false
	}
	parts := strings.SplitN(strings.TrimPrefix(value, refPrefix), ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	if !strings.HasPrefix(value, refPrefix) {
		return value, nil
	}

	name, ref, ok := ParseSecretRef(value)
	if !ok {
		return "", errors.New("malformed secret reference")
	}

	p, ok := r.providers[name]
	if !ok {
		return "", fmt.Errorf("secret provider %q is not registered", name)
	}

	out, err := p.Resolve(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("secret provider %q: %w", name, err)
	}
	if out == "" {
		return "", fmt.Errorf("secret provider %q: %w", name, ErrEmptySecret)
	}
	return out, nil
}

// Close closes every provider and joins their errors.
func (r *Resolver) Close() error {
	var errs []error
	for _, p := range r.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
