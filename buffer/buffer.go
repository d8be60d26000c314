// Package buffer provides sensitive, fixed-capacity byte buffers for
// plaintext secrets.
//
// Every buffer is backed by an anonymous, page-locked memory mapping
// rather than a plain Go slice: Go's garbage collector can relocate and
// copy ordinary heap memory, so a []byte holding a passphrase would
// leave stale copies behind it can't be asked to scrub. Buffer instead
// allocates outside the Go heap with golang.org/x/sys/unix.Mmap, best-
// effort mlock(2)s the region to keep it from being paged to swap, and
// overwrites it before releasing it on Close.
package buffer

import (
	"golang.org/x/sys/unix"

	kperrors "kickpass/errors"
)

const (
	// PasswordMax is the maximum length of a safe's password field.
	PasswordMax = 4096
	// MetadataMax is the maximum length of a safe's metadata field.
	MetadataMax = 4096
)

// Buffer is a fixed-capacity, NUL-terminated byte region allocated from
// locked, wipe-on-close memory.
type Buffer struct {
	mem    []byte
	locked bool
	closed bool
}

// NewPassword allocates a buffer sized for a password field.
func NewPassword() (*Buffer, error) {
	return newBuffer(PasswordMax)
}

// NewMetadata allocates a buffer sized for a metadata field.
func NewMetadata() (*Buffer, error) {
	return newBuffer(MetadataMax)
}

func newBuffer(size int) (*Buffer, error) {
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, kperrors.FromErrno(err, "mmap sensitive buffer")
	}

	b := &Buffer{mem: mem}
	// Best-effort: mlock can fail under RLIMIT_MEMLOCK; the buffer is
	// still usable, just not guaranteed to stay out of swap.
	if err := unix.Mlock(mem); err == nil {
		b.locked = true
	}
	return b, nil
}

// Cap returns the buffer's fixed capacity.
func (b *Buffer) Cap() int {
	return len(b.mem)
}

// Bytes returns the buffer's NUL-terminated contents as a slice up to
// (and not including) the first NUL byte. The returned slice aliases
// the buffer's memory and is only valid until the next Set or Close.
func (b *Buffer) Bytes() []byte {
	for i, c := range b.mem {
		if c == 0 {
			return b.mem[:i]
		}
	}
	return b.mem
}

// String returns the buffer's contents as a string (a copy).
func (b *Buffer) String() string {
	return string(b.Bytes())
}

// Set copies data into the buffer, NUL-terminates it, and zeroes any
// trailing bytes from a previous, longer value. Fails EInput if data
// doesn't leave room for the terminating NUL.
func (b *Buffer) Set(data []byte) error {
	if len(data) >= len(b.mem) {
		return kperrors.New(kperrors.EInput, "set buffer", "value too long")
	}
	n := copy(b.mem, data)
	for i := n; i < len(b.mem); i++ {
		b.mem[i] = 0
	}
	return nil
}

// Wipe overwrites the buffer's contents with zero bytes.
func (b *Buffer) Wipe() {
	for i := range b.mem {
		b.mem[i] = 0
	}
}

// Close wipes and releases the buffer's backing memory. Safe to call
// more than once.
func (b *Buffer) Close() error {
	if b.closed {
		return nil
	}
	b.Wipe()
	if b.locked {
		unix.Munlock(b.mem)
	}
	err := unix.Munmap(b.mem)
	b.closed = true
	b.mem = nil
	if err != nil {
		return kperrors.FromErrno(err, "munmap sensitive buffer")
	}
	return nil
}
