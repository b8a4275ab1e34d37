package secrets

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a referenced secret does not exist.
var ErrNotFound = errors.New("secret not found")

// Provider retrieves secrets from one backend.
type Provider interface {
	// Scheme is the reference prefix the provider answers to, without the
	// colon.
	Scheme() string

	// GetSecret returns the secret called name.
	GetSecret(ctx context.Context, name string) (string, error)
}
