package source

import (
	"fmt"
	"os"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

// Git authentication types.
const (
	AuthNone  = "none"
	AuthToken = "token"
	AuthSSH   = "ssh"
)

// AuthConfig selects how a GitSource authenticates against its remote.
type AuthConfig struct {
	// Type is one of "none", "token" or "ssh". Empty means "none".
	Type string

	// Token is a personal access token used over HTTPS.
	Token string

	// SSHKeyPath is the private key used over SSH.
	SSHKeyPath string

	// SSHKeyPassphrase unlocks an encrypted key.
	SSHKeyPassphrase string
}

// authMethod returns the go-git transport auth for the config. Public
// repositories return nil.
func (c AuthConfig) authMethod() (transport.AuthMethod, error) {
	switch c.Type {
	case AuthNone, "":
		return nil, nil

	case AuthToken:
		if c.Token == "" {
			return nil, fmt.Errorf("token auth requires a non-empty token")
		}
		// Any username works for token auth.
		return &http.BasicAuth{Username: "git", Password: c.Token}, nil

	case AuthSSH:
		if c.SSHKeyPath == "" {
			return nil, fmt.Errorf("ssh auth requires ssh_key_path")
		}
		info, err := os.Stat(c.SSHKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to access SSH key file: %w", err)
		}
		if mode := info.Mode().Perm(); mode&0o077 != 0 {
			return nil, fmt.Errorf("SSH key file permissions too open (%o), should be 0600", mode)
		}
		auth, err := ssh.NewPublicKeysFromFile("git", c.SSHKeyPath, c.SSHKeyPassphrase)
		if err != nil {
			return nil, fmt.Errorf("failed to load SSH key: %w", err)
		}
		return auth, nil

	default:
		return nil, fmt.Errorf("unknown git auth type: %s", c.Type)
	}
}
