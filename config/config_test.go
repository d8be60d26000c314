package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCreateLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	passphrase := []byte("test")
	want := &Config{OpsLimit: 4, MemLimit: 1 << 16}

	if err := Create(dir, passphrase, want); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := Load(dir, passphrase)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.OpsLimit != want.OpsLimit || got.MemLimit != want.MemLimit {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestCreate_AlreadyExists(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{OpsLimit: 4, MemLimit: 1 << 16}
	if err := Create(dir, []byte("test"), cfg); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := Create(dir, []byte("test"), cfg); err == nil {
		t.Error("Create() over existing config should fail")
	}
}

func TestUnmarshal_SkipsMalformedAndUnknownLines(t *testing.T) {
	plaintext := []byte("opslimit: 4\nnotaline\nmemlimit: 65536\nbogus: 99\nmemlimit: notanumber\n")
	cfg := unmarshal(plaintext)
	if cfg.OpsLimit != 4 {
		t.Errorf("OpsLimit = %d, want 4", cfg.OpsLimit)
	}
	if cfg.MemLimit != 65536 {
		t.Errorf("MemLimit = %d, want 65536", cfg.MemLimit)
	}
}

func TestFind(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "a", "b", "c"), 0700); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	cfg := &Config{OpsLimit: 4, MemLimit: 1 << 16}
	if err := Create(filepath.Join(root, "a"), []byte("test"), cfg); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := Find(root, filepath.Join(root, "a", "b", "c"))
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	want := filepath.Join(root, "a")
	if got != want {
		t.Errorf("Find() = %q, want %q", got, want)
	}
}

func TestFind_NoneFound(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "a", "b"), 0700); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	got, err := Find(root, filepath.Join(root, "a", "b"))
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got != "" {
		t.Errorf("Find() = %q, want empty", got)
	}
}
