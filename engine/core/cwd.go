package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

type PathCWD struct {
	Path string `json:"path"`
}

// CWDFromPath normalizes a path into an absolute directory. An empty path
// resolves to the process working directory; a file path resolves to its
// containing directory.
func CWDFromPath(path string) (*PathCWD, error) {
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		return &PathCWD{Path: cwd}, nil
	}
	absPath := path
	if !filepath.IsAbs(path) {
		var err error
		absPath, err = filepath.Abs(path)
		if err != nil {
			return nil, err
		}
	}
	info, err := os.Stat(absPath)
	if err == nil && !info.IsDir() {
		absPath = filepath.Dir(absPath)
	}
	return &PathCWD{Path: absPath}, nil
}

func (c *PathCWD) PathStr() string {
	if c == nil {
		return ""
	}
	return c.Path
}

func (c *PathCWD) Validate() error {
	if c == nil || c.Path == "" {
		return errors.New("current working directory not set")
	}
	return nil
}

// EnterDir creates dir if it does not exist, changes into it, and returns a
// restore function that returns to the previous working directory. The
// restore function must run on every exit path, including failure.
func EnterDir(dir string) (func() error, error) {
	prev, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to record working directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %q: %w", dir, err)
	}
	if err := os.Chdir(dir); err != nil {
		return nil, fmt.Errorf("failed to enter directory %q: %w", dir, err)
	}
	return func() error {
		return os.Chdir(prev)
	}, nil
}
