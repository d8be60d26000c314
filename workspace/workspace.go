// Package workspace resolves safe names to on-disk paths and enumerates
// safes within the per-user workspace directory.
//
// A workspace is a directory tree rooted at $HOME/.kickpass by default.
// Safe names are workspace-relative paths; the workspace never
// canonicalizes or rejects ".." segments (spec.md §4.6) — that's the
// caller's responsibility.
package workspace

import (
	"os"
	"path/filepath"
	"syscall"

	kperrors "kickpass/errors"
)

// PathMax mirrors the C PATH_MAX the original implementation enforces
// on safe names.
const PathMax = 4096

// DefaultDir returns $HOME/.kickpass, failing NoHome if $HOME is unset.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", kperrors.New(kperrors.NoHome, "default workspace dir", "$HOME is not set")
	}
	return filepath.Join(home, ".kickpass"), nil
}

// Workspace is a directory tree containing safes and per-subtree
// .config files.
type Workspace struct {
	Root string
}

// Open returns a Workspace rooted at root, creating it with mode 0700
// if it does not already exist. Fails ERRNO(EEXIST) if root exists but
// is not a directory.
func Open(root string) (*Workspace, error) {
	info, err := os.Stat(root)
	if err == nil {
		if !info.IsDir() {
			return nil, &kperrors.Error{Op: "open workspace", Kind: kperrors.Errno, Detail: "workspace path exists and is not a directory", Errno: syscall.EEXIST}
		}
		return &Workspace{Root: root}, nil
	}
	if !os.IsNotExist(err) {
		return nil, kperrors.FromErrno(err, "stat workspace")
	}

	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, kperrors.FromErrno(err, "create workspace")
	}
	return &Workspace{Root: root}, nil
}

// Init creates root with mode 0700. Unlike Open, it fails
// ERRNO(EEXIST) if root already exists, matching the "init" CLI
// subcommand's one-shot semantics (spec.md §4.3).
func Init(root string) (*Workspace, error) {
	if _, err := os.Stat(root); err == nil {
		return nil, &kperrors.Error{Op: "init workspace", Kind: kperrors.Errno, Detail: "workspace already exists", Errno: syscall.EEXIST}
	} else if !os.IsNotExist(err) {
		return nil, kperrors.FromErrno(err, "stat workspace")
	}
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, kperrors.FromErrno(err, "create workspace")
	}
	return &Workspace{Root: root}, nil
}

// Path resolves a workspace-relative safe name to an absolute path.
// Fails ERRNO(ENAMETOOLONG) if the result would exceed PathMax.
func (w *Workspace) Path(name string) (string, error) {
	if name == "" {
		return "", kperrors.ErrEmptyName
	}
	p := filepath.Join(w.Root, name)
	if len(p) > PathMax {
		return "", kperrors.ErrNameTooLong
	}
	return p, nil
}

// List recursively enumerates every regular file under the workspace
// whose basename does not start with '.', returning names relative to
// the workspace root. Directories whose name starts with '.' are not
// descended into, so nothing beneath them is listed. Emission order is
// unspecified; callers sort.
func (w *Workspace) List() ([]string, error) {
	var names []string
	err := filepath.WalkDir(w.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == w.Root {
			return nil
		}
		base := d.Name()
		if len(base) > 0 && base[0] == '.' {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(w.Root, path)
		if err != nil {
			return nil
		}
		names = append(names, rel)
		return nil
	})
	if err != nil {
		return nil, kperrors.FromErrno(err, "list workspace")
	}
	return names, nil
}
