// Package config implements ".config" safes: degenerate safes that
// store key/value metadata overriding the KDF cost parameters for every
// safe beneath the directory they govern, rather than a password.
package config

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	kperrors "kickpass/errors"
	"kickpass/storage"
)

// Name is the reserved file name of a config safe within a directory.
const Name = ".config"

// Config holds the KDF cost parameters a directory's ".config" safe
// overrides for every safe beneath it.
type Config struct {
	OpsLimit uint64
	MemLimit uint64
}

// Default returns a Config seeded with the storage engine's own
// defaults, used when no governing ".config" safe exists.
func Default() *Config {
	return &Config{OpsLimit: storage.DefaultOpsLimit, MemLimit: storage.DefaultMemLimit}
}

// Create writes a fresh ".config" safe at dir/.config, sealed under
// passphrase, recording cfg's cost parameters as plaintext metadata.
// It fails EInput if a config safe already exists at dir.
func Create(dir string, passphrase []byte, cfg *Config) error {
	path := filepath.Join(dir, Name)
	if _, err := os.Stat(path); err == nil {
		return kperrors.New(kperrors.EInput, "config create", "config already exists")
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return kperrors.FromErrno(err, "open config")
	}
	defer f.Close()

	plaintext := storage.JoinPlaintext(nil, marshal(cfg))
	defer storage.Wipe(plaintext)
	ctx := storage.NewContext()
	if err := storage.Save(ctx, f, passphrase, plaintext); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

// Load opens and decrypts the ".config" safe at dir/.config, parsing
// its key/value metadata. Lines that are malformed or name an unknown
// key are silently skipped, per the safe metadata grammar.
func Load(dir string, passphrase []byte) (*Config, error) {
	path := filepath.Join(dir, Name)
	f, err := os.Open(path)
	if err != nil {
		return nil, kperrors.FromErrno(err, "open config")
	}
	defer f.Close()

	plaintext, err := storage.Open(f, passphrase)
	if err != nil {
		return nil, err
	}
	defer storage.Wipe(plaintext)

	_, metadata, err := storage.SplitPlaintext(plaintext)
	if err != nil {
		return nil, err
	}
	return unmarshal(metadata), nil
}

// Find walks upward from dir looking for the nearest ancestor (dir
// itself included) that contains a ".config" safe, stopping at root.
// It returns "" with no error if no ancestor has one.
func Find(root, dir string) (string, error) {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return "", kperrors.Wrap(err, kperrors.EInput, "relativize config search path")
	}
	if strings.HasPrefix(rel, "..") {
		return "", kperrors.New(kperrors.EInput, "config find", "path escapes workspace root")
	}

	cur := dir
	for {
		if _, err := os.Stat(filepath.Join(cur, Name)); err == nil {
			return cur, nil
		}
		if cur == root {
			return "", nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", nil
		}
		cur = parent
	}
}

func marshal(cfg *Config) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "opslimit: %d\n", cfg.OpsLimit)
	fmt.Fprintf(&buf, "memlimit: %d\n", cfg.MemLimit)
	return buf.Bytes()
}

func unmarshal(plaintext []byte) *Config {
	cfg := Default()
	scanner := bufio.NewScanner(bytes.NewReader(plaintext))
	for scanner.Scan() {
		line := scanner.Text()
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			continue
		}
		switch key {
		case "opslimit":
			cfg.OpsLimit = n
		case "memlimit":
			cfg.MemLimit = n
		}
	}
	return cfg
}
