package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"mercator-hq/verdict/pkg/policy"
)

// GitConfig configures a GitSource.
type GitConfig struct {
	// URL of the repository (HTTPS, SSH or a local path).
	URL string

	// Branch to track. Default: "main".
	Branch string

	// File is the policy file path relative to the repository root.
	File string

	// LocalPath is where the repository is cloned.
	// Default: <tmp>/verdict-policies.
	LocalPath string

	// Depth limits clone history. Zero clones everything.
	Depth int

	// Timeout bounds each clone or pull. Default: 30s.
	Timeout time.Duration

	// PollInterval is how often Watch pulls. Default: 1m.
	PollInterval time.Duration

	Auth AuthConfig
}

// GitSource loads rules from a file tracked in a Git repository. The
// snapshot revision is the HEAD commit hash.
type GitSource struct {
	cfg    GitConfig
	logger *slog.Logger

	mu   sync.Mutex
	repo *gogit.Repository
}

// NewGitSource validates cfg and returns a source. Nothing is cloned until
// the first Load.
func NewGitSource(cfg GitConfig, logger *slog.Logger) (*GitSource, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("repository URL cannot be empty")
	}
	if cfg.File == "" {
		return nil, fmt.Errorf("policy file path cannot be empty")
	}
	if _, err := cfg.Auth.authMethod(); err != nil {
		return nil, fmt.Errorf("invalid git auth: %w", err)
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.LocalPath == "" {
		cfg.LocalPath = filepath.Join(os.TempDir(), "verdict-policies")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &GitSource{
		cfg:    cfg,
		logger: logger.With("component", "policy.git_source", "repository", cfg.URL),
	}, nil
}

// Load brings the local clone up to date and parses the policy file at HEAD.
func (s *GitSource) Load(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sync(ctx); err != nil {
		return nil, err
	}

	head, err := s.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}

	rules, err := policy.LoadFile(filepath.Join(s.cfg.LocalPath, s.cfg.File))
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Engine:   policy.NewEngine(rules),
		Revision: head.Hash().String(),
		Origin:   s.cfg.URL,
		LoadedAt: time.Now(),
	}, nil
}

// Watch pulls on every poll interval and calls onChange when HEAD moved.
func (s *GitSource) Watch(ctx context.Context, onChange func()) error {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	s.logger.Info("Policy repository poller started", "interval", s.cfg.PollInterval.String())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Policy repository poller stopped")
			return nil
		case <-ticker.C:
			changed, err := s.pull(ctx)
			if err != nil {
				s.logger.Warn("Policy repository pull failed", "error", err)
				continue
			}
			if changed {
				onChange()
			}
		}
	}
}

// pull fetches the tracked branch and reports whether HEAD changed.
func (s *GitSource) pull(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo == nil {
		if err := s.sync(ctx); err != nil {
			return false, err
		}
		return true, nil
	}

	before, err := s.repo.Head()
	if err != nil {
		return false, fmt.Errorf("failed to get HEAD: %w", err)
	}
	if err := s.pullLocked(ctx); err != nil {
		return false, err
	}
	after, err := s.repo.Head()
	if err != nil {
		return false, fmt.Errorf("failed to get HEAD: %w", err)
	}

	if before.Hash() != after.Hash() {
		s.logger.Info("Policy repository updated",
			"from", before.Hash().String(),
			"to", after.Hash().String(),
		)
		return true, nil
	}
	return false, nil
}

// sync clones the repository, or opens and pulls an existing clone.
func (s *GitSource) sync(ctx context.Context) error {
	if s.repo != nil {
		return s.pullLocked(ctx)
	}

	if _, err := os.Stat(filepath.Join(s.cfg.LocalPath, ".git")); err == nil {
		repo, err := gogit.PlainOpen(s.cfg.LocalPath)
		if err != nil {
			return fmt.Errorf("failed to open existing repo: %w", err)
		}
		s.repo = repo
		return s.pullLocked(ctx)
	}

	if err := os.MkdirAll(s.cfg.LocalPath, 0o755); err != nil {
		return fmt.Errorf("failed to create repository directory: %w", err)
	}

	auth, err := s.cfg.Auth.authMethod()
	if err != nil {
		return err
	}

	cloneCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	repo, err := gogit.PlainCloneContext(cloneCtx, s.cfg.LocalPath, false, &gogit.CloneOptions{
		URL:           s.cfg.URL,
		ReferenceName: plumbing.NewBranchReferenceName(s.cfg.Branch),
		SingleBranch:  true,
		Depth:         s.cfg.Depth,
		Auth:          auth,
	})
	if err != nil {
		return fmt.Errorf("failed to clone repository: %w", err)
	}

	s.logger.Info("Policy repository cloned", "branch", s.cfg.Branch, "path", s.cfg.LocalPath)
	s.repo = repo
	return nil
}

func (s *GitSource) pullLocked(ctx context.Context) error {
	worktree, err := s.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	auth, err := s.cfg.Auth.authMethod()
	if err != nil {
		return err
	}

	pullCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	err = worktree.PullContext(pullCtx, &gogit.PullOptions{
		RemoteName:    "origin",
		ReferenceName: plumbing.NewBranchReferenceName(s.cfg.Branch),
		SingleBranch:  true,
		Auth:          auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to pull: %w", err)
	}
	return nil
}
