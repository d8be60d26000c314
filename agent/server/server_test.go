package server

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"kickpass/agent/client"
)

func startTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	sockPath := filepath.Join(t.TempDir(), "agent.test")
	l, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	s := New(l)
	go s.Run()
	t.Cleanup(func() {
		s.Shutdown()
		os.Remove(sockPath)
	})
	return s, sockPath
}

func TestServer_StoreSearchDiscard(t *testing.T) {
	_, sockPath := startTestServer(t)

	c, err := client.Dial(sockPath)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer c.Close()

	if err := c.Store("a/b", []byte("p1"), []byte("m1"), 0); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	password, metadata, err := c.Search("a/b")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if string(password) != "p1" || string(metadata) != "m1" {
		t.Errorf("Search() = (%q, %q), want (%q, %q)", password, metadata, "p1", "m1")
	}

	if err := c.Discard("a/b"); err != nil {
		t.Fatalf("Discard() error = %v", err)
	}
	if _, _, err := c.Search("a/b"); err == nil {
		t.Error("Search() after discard succeeded, want ENOENT")
	}
}

func TestServer_CacheReplace(t *testing.T) {
	// Invariant 5 (cache replace): STORE(name, p1, m1); STORE(name, p2, m2);
	// SEARCH(name) returns (p2, m2).
	_, sockPath := startTestServer(t)

	c, err := client.Dial(sockPath)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer c.Close()

	if err := c.Store("a", []byte("p1"), []byte("m1"), 0); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if err := c.Store("a", []byte("p2"), []byte("m2"), 0); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	password, metadata, err := c.Search("a")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if string(password) != "p2" || string(metadata) != "m2" {
		t.Errorf("Search() = (%q, %q), want (%q, %q)", password, metadata, "p2", "m2")
	}
}

func TestServer_CacheExpiry(t *testing.T) {
	// Scenario S6: STORE(name, ..., timeout=1); sleep(2); SEARCH returns
	// not-found. The wire timeout is in whole seconds.
	_, sockPath := startTestServer(t)

	c, err := client.Dial(sockPath)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer c.Close()

	if err := c.Store("a", []byte("p"), []byte("m"), 1*time.Second); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	time.Sleep(2 * time.Second)

	if _, _, err := c.Search("a"); err == nil {
		t.Error("Search() after expiry succeeded, want ENOENT")
	}
}

func TestServer_RenameCarriesCache(t *testing.T) {
	// Scenario S7: STORE("a", p, m, inf); rename via DISCARD+STORE;
	// SEARCH("a") -> not found; SEARCH("b") -> (p, m).
	_, sockPath := startTestServer(t)

	c, err := client.Dial(sockPath)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer c.Close()

	if err := c.Store("a", []byte("p"), []byte("m"), 0); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if err := c.Discard("a"); err != nil {
		t.Fatalf("Discard() error = %v", err)
	}
	if err := c.Store("b", []byte("p"), []byte("m"), 0); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	if _, _, err := c.Search("a"); err == nil {
		t.Error("Search(\"a\") after rename succeeded, want ENOENT")
	}
	password, metadata, err := c.Search("b")
	if err != nil {
		t.Fatalf("Search(\"b\") error = %v", err)
	}
	if string(password) != "p" || string(metadata) != "m" {
		t.Errorf("Search(\"b\") = (%q, %q), want (%q, %q)", password, metadata, "p", "m")
	}
}
