/*
Package secrets resolves secret references in configuration values.

A configuration field holding a credential may carry the secret itself or a
reference of the form "scheme:name". Two schemes are built in:

  - env:NAME reads the environment variable NAME
  - file:/path/to/secret reads a file, trimming surrounding whitespace

Files must be regular files readable only by their owner (0600 or 0400), the
convention for mounted Kubernetes and Docker secrets.

# Usage

	r := secrets.NewResolver(secrets.NewEnvProvider(), secrets.NewFileProvider())
	if err := r.ResolveAll(ctx, &cfg.Reasoner.APIKey, &cfg.Policy.Git.Auth.Token); err != nil {
		return err
	}

Values without a registered scheme are returned unchanged, so plain literals
keep working.
*/
package secrets
