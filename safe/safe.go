// Package safe implements the in-memory safe object: open, save,
// close, delete, rename and the agent-cache store operation, plus the
// agent-first-then-storage-engine fallback chain of spec.md §4.6.
package safe

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"kickpass/buffer"
	"kickpass/config"
	kperrors "kickpass/errors"
	"kickpass/logging"
	"kickpass/storage"
)

// OpenFlag modifies Open's behavior.
type OpenFlag int

const (
	// Create marks a safe to be newly created rather than opened; the
	// backing file is written on the next Save.
	Create OpenFlag = 1 << iota
	// Force bypasses the agent cache and always reads the safe from
	// disk, decrypting it with the context's passphrase.
	Force
)

// Safe is a single credential record: its workspace-relative name and,
// while open, its decrypted password/metadata held in sensitive
// buffers (spec.md §3).
type Safe struct {
	Name     string
	open     bool
	password *buffer.Buffer
	metadata *buffer.Buffer
}

// New initializes a Safe for name. Fails ErrNameTooLong if name
// exceeds PATH_MAX.
func New(name string) (*Safe, error) {
	if name == "" {
		return nil, kperrors.ErrEmptyName
	}
	if len(name) > workspacePathMax {
		return nil, kperrors.ErrNameTooLong
	}
	return &Safe{Name: name}, nil
}

// workspacePathMax mirrors workspace.PathMax without importing
// workspace (safe names are validated against the same limit the
// workspace enforces on resolved paths).
const workspacePathMax = 4096

// IsOpen reports whether the safe currently holds decrypted buffers.
func (s *Safe) IsOpen() bool {
	return s.open
}

// Password returns the safe's decrypted password. The returned slice
// aliases the safe's buffer and is valid only while the safe stays
// open.
func (s *Safe) Password() []byte {
	if !s.open {
		return nil
	}
	return s.password.Bytes()
}

// Metadata returns the safe's decrypted metadata. The returned slice
// aliases the safe's buffer and is valid only while the safe stays
// open.
func (s *Safe) Metadata() []byte {
	if !s.open {
		return nil
	}
	return s.metadata.Bytes()
}

// Open opens the safe per spec.md §4.6: it allocates both sensitive
// buffers, then either prepares a brand-new safe (Create), or tries
// the agent cache before falling through to the storage engine.
func (s *Safe) Open(ctx *Context, flags OpenFlag) error {
	if s.open {
		return kperrors.ErrSafeOpen
	}

	path, err := ctx.Workspace.Path(s.Name)
	if err != nil {
		return err
	}

	pw, err := buffer.NewPassword()
	if err != nil {
		return err
	}
	md, err := buffer.NewMetadata()
	if err != nil {
		pw.Close()
		return err
	}
	s.password, s.metadata = pw, md

	if flags&Create != 0 {
		if _, err := os.Stat(path); err == nil {
			s.closeBuffers()
			return kperrors.ErrSafeExists
		} else if !os.IsNotExist(err) {
			s.closeBuffers()
			return kperrors.FromErrno(err, "stat safe")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			s.closeBuffers()
			return kperrors.FromErrno(err, "mkdir safe parent")
		}
		s.open = true
		return nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		s.closeBuffers()
		return kperrors.ErrSafeNotFound
	} else if err != nil {
		s.closeBuffers()
		return kperrors.FromErrno(err, "stat safe")
	}

	if flags&Force == 0 && ctx.agentConnected() {
		password, metadata, err := ctx.Agent.Search(s.Name)
		if err == nil {
			if setErr := s.setPlaintext(password, metadata); setErr != nil {
				s.closeBuffers()
				return setErr
			}
			s.open = true
			return nil
		}
		// Agent miss or disconnect: fall through to the storage
		// engine (spec.md §4.6 step 5).
	}

	if err := ctx.ensurePassword(false, s.Name); err != nil {
		s.closeBuffers()
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		s.closeBuffers()
		return kperrors.FromErrno(err, "open safe file")
	}
	defer f.Close()

	plaintext, err := storage.Open(f, ctx.Password.Bytes())
	if err != nil {
		s.closeBuffers()
		return err
	}
	defer storage.Wipe(plaintext)

	password, metadata, err := storage.SplitPlaintext(plaintext)
	if err != nil {
		s.closeBuffers()
		return err
	}
	if setErr := s.setPlaintext(password, metadata); setErr != nil {
		s.closeBuffers()
		return setErr
	}

	s.open = true
	return nil
}

// Save writes the safe's current plaintext to disk, truncating and
// rewriting the whole cipher file from offset 0 (spec.md §4.5 step 6).
// If an agent is connected, it best-effort refreshes the cached entry;
// a refresh failure is only logged, never returned (spec.md §4.6).
func (s *Safe) Save(ctx *Context) error {
	if !s.open {
		return kperrors.ErrSafeNotOpen
	}
	if err := ctx.ensurePassword(false, s.Name); err != nil {
		return err
	}

	path, err := ctx.Workspace.Path(s.Name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return kperrors.FromErrno(err, "mkdir safe parent")
	}

	if ctx.agentConnected() {
		if err := ctx.Agent.Store(s.Name, s.password.Bytes(), s.metadata.Bytes(), 0); err != nil {
			opLogger(s.Name, "save").Warn("agent cache refresh failed", "error", err)
		}
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return kperrors.FromErrno(err, "open safe file for save")
	}
	defer f.Close()

	plaintext := storage.JoinPlaintext(s.password.Bytes(), s.metadata.Bytes())
	defer storage.Wipe(plaintext)

	storageCtx, err := governingStorageContext(ctx, path)
	if err != nil {
		return err
	}

	return storage.Save(storageCtx, f, ctx.Password.Bytes(), plaintext)
}

// Close wipes and releases the safe's buffers (spec.md §3: "close
// transitions open → false and releases both buffers").
func (s *Safe) Close() error {
	if !s.open {
		return nil
	}
	s.closeBuffers()
	s.open = false
	return nil
}

// Delete removes the safe's cipher file, discarding any agent-cached
// entry first. The safe must be open.
func (s *Safe) Delete(ctx *Context) error {
	if !s.open {
		return kperrors.ErrSafeNotOpen
	}

	if ctx.agentConnected() {
		if err := ctx.Agent.Discard(s.Name); err != nil && !kperrors.IsKind(err, kperrors.Errno) {
			opLogger(s.Name, "delete").Warn("agent discard failed", "error", err)
		}
	}

	path, err := ctx.Workspace.Path(s.Name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return kperrors.FromErrno(err, "delete safe file")
	}
	return nil
}

// Rename moves the safe to newName. Per spec.md §9's pinned ordering,
// the agent-side discard/store happens before the on-disk rename: a
// currently cached entry moves with the safe even if the disk rename
// subsequently fails.
func (s *Safe) Rename(ctx *Context, newName string) error {
	if !s.open {
		return kperrors.ErrSafeNotOpen
	}
	if newName == "" {
		return kperrors.ErrEmptyName
	}

	oldPath, err := ctx.Workspace.Path(s.Name)
	if err != nil {
		return err
	}
	newPath, err := ctx.Workspace.Path(newName)
	if err != nil {
		return err
	}

	if ctx.agentConnected() {
		if err := ctx.Agent.Discard(s.Name); err != nil && !kperrors.IsKind(err, kperrors.Errno) {
			opLogger(s.Name, "rename").Warn("agent discard failed", "error", err)
		}
		if err := ctx.Agent.Store(newName, s.password.Bytes(), s.metadata.Bytes(), 0); err != nil {
			opLogger(newName, "rename").Warn("agent store failed", "error", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(newPath), 0700); err != nil {
		return kperrors.FromErrno(err, "mkdir rename target parent")
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return kperrors.FromErrno(err, "rename safe file")
	}
	s.Name = newName
	return nil
}

// Store pushes the safe's current plaintext into the agent's cache
// with the given expiry (timeout <= 0 means "never"). Fails EInput if
// no agent is connected, per spec.md §4.6.
func (s *Safe) Store(ctx *Context, timeout time.Duration) error {
	if !s.open {
		return kperrors.ErrSafeNotOpen
	}
	if !ctx.agentConnected() {
		return kperrors.ErrNoAgent
	}
	return ctx.Agent.Store(s.Name, s.password.Bytes(), s.metadata.Bytes(), timeout)
}

// SetPassword overwrites the safe's in-memory password field. The
// safe must be open.
func (s *Safe) SetPassword(password []byte) error {
	if !s.open {
		return kperrors.ErrSafeNotOpen
	}
	return s.password.Set(password)
}

// SetMetadata overwrites the safe's in-memory metadata field. The safe
// must be open.
func (s *Safe) SetMetadata(metadata []byte) error {
	if !s.open {
		return kperrors.ErrSafeNotOpen
	}
	return s.metadata.Set(metadata)
}

func (s *Safe) setPlaintext(password, metadata []byte) error {
	if err := s.password.Set(password); err != nil {
		return err
	}
	return s.metadata.Set(metadata)
}

// opLogger scopes the default logger to a safe name and the operation
// acting on it, for the best-effort agent-sync warnings that Save,
// Delete and Rename never escalate to a returned error.
func opLogger(name, op string) *slog.Logger {
	return logging.WithOperation(logging.WithSafe(logging.Default(), name), op)
}

func (s *Safe) closeBuffers() {
	if s.password != nil {
		s.password.Close()
		s.password = nil
	}
	if s.metadata != nil {
		s.metadata.Close()
		s.metadata = nil
	}
}

// loadGoverningConfig finds and loads the nearest ".config" safe
// governing path, for callers that want to surface its cost
// parameters; unlocking it requires no passphrase beyond ctx.Password
// since config safes are sealed under the same master passphrase.
func loadGoverningConfig(ctx *Context, path string) (*config.Config, error) {
	dir, err := config.Find(ctx.Workspace.Root, filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(dir, ctx.Password.Bytes())
	if err != nil {
		// A config safe that can't be opened under the same passphrase
		// is surprising but not fatal to saving an unrelated safe;
		// fall back to defaults.
		return config.Default(), nil
	}
	return cfg, nil
}

// governingStorageContext builds a storage.Context from the nearest
// governing .config safe's cost parameters, defaulting if none exists.
func governingStorageContext(ctx *Context, path string) (*storage.Context, error) {
	cfg, err := loadGoverningConfig(ctx, path)
	if err != nil {
		return nil, err
	}
	return &storage.Context{OpsLimit: cfg.OpsLimit, MemLimit: cfg.MemLimit}, nil
}
