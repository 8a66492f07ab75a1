// Package tasks declares the builtin task definitions shipped with the
// bricoler binary.
package tasks

import (
	"context"

	"github.com/bricoler/bricoler/engine/core"
	"github.com/bricoler/bricoler/engine/task"
)

// RepositoryType is the value type of outputs carrying a git clone handle.
var RepositoryType = task.ValueOf[*GitRepository]("git-repository")

// Register declares the builtin tasks in the given registry. It is called
// once at process start.
func Register(r *task.Registry) error {
	gitCheckout, err := r.Define(task.Spec{
		Name:        "git-checkout",
		Description: "Clone a git repository, or update an existing clone",
		Parameters: map[string]task.ParameterSpec{
			"url": {
				Description: "URL of the git repository to clone, or a filesystem path to an existing clone",
				Required:    true,
			},
			"branch": {
				Description: "Branch to check out",
			},
		},
		Outputs: map[string]task.ValueType{
			"repo": RepositoryType,
		},
		Run: runGitCheckout,
	})
	if err != nil {
		return err
	}
	_, err = r.Define(task.Spec{
		Name:        "freebsd-src-git-checkout",
		Description: "Clone the FreeBSD src tree, or update an existing clone",
		Extends:     []*task.Definition{gitCheckout},
		Overrides: map[string]any{
			"url":    "https://git.freebsd.org/src.git",
			"branch": "main",
		},
	})
	return err
}

func runGitCheckout(ctx context.Context, t *task.Instance) (core.Output, error) {
	repo := NewGitRepository(t.String("url"), t.String("branch"), t.Skip())
	if err := repo.Update(ctx, "src"); err != nil {
		return nil, err
	}
	return core.Output{"repo": repo}, nil
}
