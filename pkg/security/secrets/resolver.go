package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Resolver expands "scheme:name" references through registered providers.
type Resolver struct {
	providers map[string]Provider
}

// NewResolver registers providers by scheme. A later provider replaces an
// earlier one with the same scheme.
func NewResolver(providers ...Provider) *Resolver {
	r := &Resolver{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Scheme()] = p
		}
	}
	return r
}

// IsReference reports whether value names a registered scheme.
func (r *Resolver) IsReference(value string) bool {
	_, _, ok := r.split(value)
	return ok
}

// Resolve returns the secret value refers to. Values that are not references
// are returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, value string) (string, error) {
	p, name, ok := r.split(value)
	if !ok {
		return value, nil
	}

	secret, err := p.GetSecret(ctx, name)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s secret: %w", p.Scheme(), err)
	}
	return secret, nil
}

// ResolveAll resolves each field in place. Every field is attempted and the
// errors are joined. Fields that fail keep their reference.
func (r *Resolver) ResolveAll(ctx context.Context, fields ...*string) error {
	var errs []error
	for _, field := range fields {
		if field == nil || *field == "" {
			continue
		}
		value, err := r.Resolve(ctx, *field)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		*field = value
	}
	return errors.Join(errs...)
}

func (r *Resolver) split(value string) (Provider, string, bool) {
	scheme, name, found := strings.Cut(value, ":")
	if !found {
		return nil, "", false
	}
	p, ok := r.providers[scheme]
	if !ok {
		return nil, "", false
	}
	return p, name, true
}
