// Package fileutil copies untracked files matching the configured
// include patterns (spec.md §6.2 [include]) from the main checkout into
// a freshly created worktree, since `git worktree add` only materializes
// tracked files and a fresh worktree otherwise starts without the
// agent's .env/.vscode local files. Grounded on the teacher's
// DetergentSubdir-style path helpers, generalized from a fixed
// .detergent/.claude layout to an arbitrary configured pattern list.
package fileutil

import (
	"io"
	"os"
	"path/filepath"

	"github.com/kildhq/kild/internal/kilderr"
)

// EnsureDir creates a directory and all parent directories with 0755 permissions.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// CopyIncluded copies each pattern in patterns from srcRoot to dstRoot
// if present, preserving its relative path. Patterns are plain relative
// paths (files or directories), not globs — matching config's
// [include].patterns contract. Missing sources are skipped, not errors:
// a fresh checkout may simply not have a given local file yet.
func CopyIncluded(srcRoot, dstRoot string, patterns []string) error {
	for _, pattern := range patterns {
		src := filepath.Join(srcRoot, pattern)
		info, err := os.Lstat(src)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return kilderr.IO("stat %s", src).Wrap(err)
		}
		dst := filepath.Join(dstRoot, pattern)
		if err := copyPath(src, dst, info); err != nil {
			return kilderr.IO("copying %s into worktree", pattern).Wrap(err)
		}
	}
	return nil
}

func copyPath(src, dst string, info os.FileInfo) error {
	if info.IsDir() {
		return copyDir(src, dst)
	}
	return copyFile(src, dst, info.Mode())
}

func copyDir(src, dst string) error {
	if err := os.MkdirAll(dst, 0755); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		childSrc := filepath.Join(src, e.Name())
		childDst := filepath.Join(dst, e.Name())
		info, err := e.Info()
		if err != nil {
			return err
		}
		if err := copyPath(childSrc, childDst, info); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
