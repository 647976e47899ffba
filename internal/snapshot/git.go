package snapshot

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/hashicorp/go-hclog"

	log "github.com/solguard-dev/solguard/pkg/shared/logger"
)

// GitProvider materializes a snapshot by cloning a repository and checking out
// a pinned commit, so repeated runs see the exact same sources.
type GitProvider struct {
	URL       string
	Commit    string
	TargetDir string
	logger    hclog.Logger
}

func NewGitProvider(url, commit, targetDir string, logger hclog.Logger) *GitProvider {
	return &GitProvider{
		URL:       url,
		Commit:    commit,
		TargetDir: targetDir,
		logger:    logger,
	}
}

func (p *GitProvider) Snapshot(ctx context.Context) (*Snapshot, error) {
	output := log.GetLoggerOutput(p.logger)

	p.logger.Debug("cloning project", "url", p.URL, "commit", p.Commit, "target", p.TargetDir)
	repo, err := git.PlainCloneContext(ctx, p.TargetDir, false, &git.CloneOptions{
		URL:      p.URL,
		Progress: output,
	})
	if err != nil {
		if err != git.ErrRepositoryAlreadyExists {
			return nil, fmt.Errorf("error occurred during clone: %w", err)
		}
		repo, err = git.PlainOpen(p.TargetDir)
		if err != nil {
			return nil, fmt.Errorf("cannot open existing repository: %w", err)
		}
	}

	if p.Commit != "" {
		worktree, err := repo.Worktree()
		if err != nil {
			return nil, fmt.Errorf("cannot get worktree: %w", err)
		}
		if err := worktree.Checkout(&git.CheckoutOptions{
			Hash: plumbing.NewHash(p.Commit),
		}); err != nil {
			return nil, fmt.Errorf("cannot checkout commit %q: %w", p.Commit, err)
		}
	}

	commit := p.Commit
	if commit == "" {
		head, err := repo.Head()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve HEAD: %w", err)
		}
		commit = head.Hash().String()
	}

	p.logger.Info("project snapshot materialized", "url", p.URL, "commit", commit)
	return buildSnapshot(p.TargetDir, commit)
}
