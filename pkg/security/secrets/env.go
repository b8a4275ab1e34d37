package secrets

import (
	"context"
	"fmt"
	"os"
)

// EnvProvider reads secrets from environment variables.
type EnvProvider struct {
	lookup func(string) (string, bool)
}

// NewEnvProvider returns a provider over the process environment.
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{lookup: os.LookupEnv}
}

// Scheme returns "env".
func (p *EnvProvider) Scheme() string { return "env" }

// GetSecret returns the value of the environment variable name. An unset or
// empty variable is ErrNotFound.
func (p *EnvProvider) GetSecret(_ context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("environment variable name cannot be empty")
	}
	value, ok := p.lookup(name)
	if !ok || value == "" {
		return "", fmt.Errorf("%w: environment variable %s is not set", ErrNotFound, name)
	}
	return value, nil
}
