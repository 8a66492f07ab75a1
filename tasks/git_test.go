package tasks

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initRepo creates a local repository with a single commit and returns its
// path and the commit hash.
func initRepo(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("hello\n"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README")
	require.NoError(t, err)
	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return dir, hash.String()
}

func Test_GitRepository_Update(t *testing.T) {
	t.Run("Should use a local clone in place without fetching", func(t *testing.T) {
		dir, hash := initRepo(t)
		repo := NewGitRepository(dir, "", false)
		require.NoError(t, repo.Update(t.Context(), "src"))
		assert.Equal(t, dir, repo.Dir)
		head, err := repo.Head()
		require.NoError(t, err)
		assert.Equal(t, hash, head)
	})
	t.Run("Should fail when a local path is not a repository clone", func(t *testing.T) {
		repo := NewGitRepository(t.TempDir(), "", false)
		err := repo.Update(t.Context(), "src")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a repo clone")
	})
	t.Run("Should fail when skip is set and no clone exists", func(t *testing.T) {
		t.Chdir(t.TempDir())
		repo := NewGitRepository("https://example.com/src.git", "main", true)
		err := repo.Update(t.Context(), "src")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no existing clone")
	})
	t.Run("Should reuse an existing clone as-is when skip is set", func(t *testing.T) {
		dir, hash := initRepo(t)
		// The remote URL is unreachable; skip must prevent any fetch.
		repo := NewGitRepository("https://example.invalid/src.git", "main", true)
		require.NoError(t, repo.Update(t.Context(), dir))
		head, err := repo.Head()
		require.NoError(t, err)
		assert.Equal(t, hash, head)
	})
	t.Run("Should fail to refresh a clone with no matching remote", func(t *testing.T) {
		dir, _ := initRepo(t)
		repo := NewGitRepository("https://example.invalid/src.git", "", false)
		err := repo.Update(t.Context(), dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no remote")
	})
}

func Test_GitRepository_Head(t *testing.T) {
	t.Run("Should fail on a directory that is not a clone", func(t *testing.T) {
		repo := &GitRepository{Dir: t.TempDir()}
		_, err := repo.Head()
		assert.Error(t, err)
	})
}
