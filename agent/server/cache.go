package server

import (
	"sort"
	"time"

	"kickpass/buffer"
)

// entry is one cached safe's plaintext, held in locked, wipe-on-release
// buffers exactly like the core's own in-process representation
// (spec.md §4.2), plus the discard timer guarding its expiry.
type entry struct {
	name     string
	password *buffer.Buffer
	metadata *buffer.Buffer
	timer    *time.Timer
}

func (e *entry) release() {
	if e.timer != nil {
		e.timer.Stop()
	}
	if e.password != nil {
		e.password.Close()
	}
	if e.metadata != nil {
		e.metadata.Close()
	}
}

// cache is a process-wide, name-sorted slice of cached safes. It is
// touched only from the server's single event-loop goroutine (spec.md
// §5), so it needs no locking of its own.
type cache struct {
	entries []*entry
}

func newCache() *cache {
	return &cache{}
}

func (c *cache) search(i int, name string) bool {
	return c.entries[i].name >= name
}

func (c *cache) indexOf(name string) (int, bool) {
	i := sort.Search(len(c.entries), func(i int) bool { return c.search(i, name) })
	if i < len(c.entries) && c.entries[i].name == name {
		return i, true
	}
	return i, false
}

// find returns a copy of the cached password/metadata for name, or
// ok == false. It copies rather than aliasing the entry's mmap'd
// buffers: the returned slices cross the reply channel to a connection
// goroutine and can outlive a concurrent discard/expire on this
// goroutine that would otherwise munmap them out from under the reader.
func (c *cache) find(name string) (password, metadata []byte, ok bool) {
	i, found := c.indexOf(name)
	if !found {
		return nil, nil, false
	}
	password = append([]byte(nil), c.entries[i].password.Bytes()...)
	metadata = append([]byte(nil), c.entries[i].metadata.Bytes()...)
	return password, metadata, true
}

// store inserts or replaces the cached entry for name. A duplicate key
// replaces and wipes the prior entry's buffers before release (spec.md
// §8 invariant 5). newTimer is nil for entries that never expire.
func (c *cache) store(name string, password, metadata []byte, newTimer *time.Timer) error {
	pwBuf, err := buffer.NewPassword()
	if err != nil {
		return err
	}
	if err := pwBuf.Set(password); err != nil {
		pwBuf.Close()
		return err
	}
	mdBuf, err := buffer.NewMetadata()
	if err != nil {
		pwBuf.Close()
		return err
	}
	if err := mdBuf.Set(metadata); err != nil {
		pwBuf.Close()
		mdBuf.Close()
		return err
	}

	e := &entry{name: name, password: pwBuf, metadata: mdBuf, timer: newTimer}

	i, found := c.indexOf(name)
	if found {
		c.entries[i].release()
		c.entries[i] = e
		return nil
	}

	c.entries = append(c.entries, nil)
	copy(c.entries[i+1:], c.entries[i:])
	c.entries[i] = e
	return nil
}

// discard removes name from the cache, releasing its buffers. It
// reports whether an entry was present.
func (c *cache) discard(name string) bool {
	i, found := c.indexOf(name)
	if !found {
		return false
	}
	c.entries[i].release()
	c.entries = append(c.entries[:i], c.entries[i+1:]...)
	return true
}

// closeAll releases every cached entry's buffers, used on shutdown.
func (c *cache) closeAll() {
	for _, e := range c.entries {
		e.release()
	}
	c.entries = nil
}
