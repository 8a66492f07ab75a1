package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/sethvargo/go-retry"

	"github.com/bricoler/bricoler/pkg/logger"
)

// GitRepository is the output handle produced by the git-checkout task. A
// URL that is a filesystem path refers to an existing local clone which is
// used in place, never fetched.
type GitRepository struct {
	URL    string `json:"url"`
	Branch string `json:"branch,omitempty"`
	// Dir is the absolute path of the working tree.
	Dir string `json:"dir"`

	local bool
	skip  bool
}

func NewGitRepository(url, branch string, skip bool) *GitRepository {
	return &GitRepository{
		URL:    url,
		Branch: branch,
		local:  strings.HasPrefix(url, "/"),
		skip:   skip,
	}
}

// Update clones the repository into dir or refreshes an existing clone.
// With the skip flag set an existing clone is used as-is.
func (g *GitRepository) Update(ctx context.Context, dir string) error {
	if g.local {
		if _, err := git.PlainOpen(g.URL); err != nil {
			return fmt.Errorf("repository path %q does not exist or is not a repo clone: %w", g.URL, err)
		}
		g.Dir = g.URL
		return nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	g.Dir = abs
	repo, err := git.PlainOpen(abs)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		if g.skip {
			return fmt.Errorf("no existing clone at %q to reuse with skip enabled", abs)
		}
		return g.clone(ctx, abs)
	}
	if err != nil {
		return err
	}
	if g.skip {
		return nil
	}
	return g.refresh(ctx, repo)
}

// Head returns the hash of the commit the working tree is at.
func (g *GitRepository) Head() (string, error) {
	repo, err := git.PlainOpen(g.Dir)
	if err != nil {
		return "", err
	}
	head, err := repo.Head()
	if err != nil {
		return "", err
	}
	return head.Hash().String(), nil
}

func (g *GitRepository) clone(ctx context.Context, dir string) error {
	opts := &git.CloneOptions{URL: g.URL, Depth: 1}
	if g.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(g.Branch)
		opts.SingleBranch = true
	}
	logger.Info("cloning repository", "url", g.URL, "branch", g.Branch, "dir", dir)
	return retry.Do(ctx, fetchBackoff(), func(ctx context.Context) error {
		// A failed attempt can leave a partial clone behind.
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
		if _, err := git.PlainCloneContext(ctx, dir, false, opts); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (g *GitRepository) refresh(ctx context.Context, repo *git.Repository) error {
	remotes, err := repo.Remotes()
	if err != nil {
		return err
	}
	remoteName := ""
	for _, r := range remotes {
		for _, u := range r.Config().URLs {
			if u == g.URL {
				remoteName = r.Config().Name
			}
		}
	}
	if remoteName == "" {
		return fmt.Errorf("clone at %q has no remote corresponding to %q", g.Dir, g.URL)
	}
	logger.Info("fetching repository", "url", g.URL, "remote", remoteName)
	err = retry.Do(ctx, fetchBackoff(), func(ctx context.Context) error {
		fetchErr := repo.FetchContext(ctx, &git.FetchOptions{RemoteName: remoteName})
		if fetchErr != nil && !errors.Is(fetchErr, git.NoErrAlreadyUpToDate) {
			return retry.RetryableError(fetchErr)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if g.Branch == "" {
		return nil
	}
	ref, err := repo.Reference(plumbing.NewRemoteReferenceName(remoteName, g.Branch), true)
	if err != nil {
		return fmt.Errorf("remote %q has no branch %q: %w", remoteName, g.Branch, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	return wt.Checkout(&git.CheckoutOptions{Hash: ref.Hash()})
}

func fetchBackoff() retry.Backoff {
	return retry.WithMaxRetries(3, retry.NewExponential(2*time.Second))
}
