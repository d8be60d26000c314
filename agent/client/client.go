// Package client implements the agent protocol client: it dials the
// socket named by KP_AGENT_SOCK and funnels STORE/SEARCH/DISCARD
// requests through agent/proto, one in flight per connection.
package client

import (
	"net"
	"os"
	"sync"
	"syscall"
	"time"

	"kickpass/agent/proto"
	kperrors "kickpass/errors"
)

// SockEnv is the environment variable an agent writes its socket path
// to and a client reads it from.
const SockEnv = "KP_AGENT_SOCK"

// Client is a connection to a running agent. The zero value is not
// connected; use Dial or DialEnv to obtain one.
type Client struct {
	mu        sync.Mutex
	conn      net.Conn
	connected bool
	nextID    uint64
}

// Connected reports whether the client has a live agent connection.
// Every safe-level agent integration branch is gated on this flag, per
// spec.md §4.9.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// DialEnv dials the socket path named by KP_AGENT_SOCK. It returns a
// disconnected, usable *Client (Connected() == false) rather than an
// error if the variable is unset or the dial fails, since a missing
// agent is a normal, expected condition (spec.md §4.6 step 4's "agent
// miss or disconnect" fallthrough).
func DialEnv() *Client {
	path := os.Getenv(SockEnv)
	if path == "" {
		return &Client{}
	}
	c, err := Dial(path)
	if err != nil {
		return &Client{}
	}
	return c
}

// Dial connects to the agent stream socket at path.
func Dial(path string) (*Client, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, kperrors.FromErrno(err, "dial agent socket")
	}
	return &Client{conn: conn, connected: true}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil
	}
	c.connected = false
	return c.conn.Close()
}

// Store caches a safe's plaintext in the agent with the given expiry
// (timeout <= 0 means "never expires"). The wire carries whole seconds,
// so a positive timeout is rounded up to the next second.
func (c *Client) Store(name string, password, metadata []byte, timeout time.Duration) error {
	secs := int64(timeout / time.Second)
	if timeout > 0 && timeout%time.Second != 0 {
		secs++
	}
	payload, err := proto.EncodeStorePayload(&proto.StorePayload{
		Timeout:  secs,
		Name:     name,
		Password: password,
		Metadata: metadata,
	})
	if err != nil {
		return err
	}

	reply, err := c.roundTrip(proto.Store, payload)
	if err != nil {
		return err
	}
	if reply.Type == proto.Error {
		return c.decodeError(reply.Payload)
	}
	return nil
}

// Search looks up a cached safe's plaintext by name.
func (c *Client) Search(name string) (password, metadata []byte, err error) {
	payload, err := proto.EncodeSearchPayload(name)
	if err != nil {
		return nil, nil, err
	}

	reply, err := c.roundTrip(proto.Search, payload)
	if err != nil {
		return nil, nil, err
	}
	if reply.Type == proto.Error {
		return nil, nil, c.decodeError(reply.Payload)
	}
	if reply.Type != proto.Search {
		c.Close()
		return nil, nil, kperrors.ErrUnexpectedReply
	}

	store, err := proto.DecodeStorePayload(reply.Payload)
	if err != nil {
		return nil, nil, err
	}
	return store.Password, store.Metadata, nil
}

// Discard evicts a cached safe by name, tolerating ENOENT.
func (c *Client) Discard(name string) error {
	payload, err := proto.EncodeDiscardPayload(name)
	if err != nil {
		return err
	}

	reply, err := c.roundTrip(proto.Discard, payload)
	if err != nil {
		return err
	}
	if reply.Type == proto.Error {
		err := c.decodeError(reply.Payload)
		var e *kperrors.Error
		if kperrors.As(err, &e) && e.Kind == kperrors.Errno && e.Errno == syscall.ENOENT {
			return nil
		}
		return err
	}
	if reply.Type != proto.Discard {
		c.Close()
		return kperrors.ErrUnexpectedReply
	}
	return nil
}

// roundTrip sends one request frame and blocks for exactly one reply,
// per spec.md §4.7's half-duplex-per-request contract.
func (c *Client) roundTrip(t proto.Type, payload []byte) (*proto.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil, kperrors.ErrNoAgent
	}

	c.nextID++
	id := c.nextID

	if err := proto.WriteFrame(c.conn, t, id, 0, payload); err != nil {
		c.connected = false
		return nil, err
	}

	reply, err := proto.ReadFrame(c.conn, true)
	if err != nil {
		c.connected = false
		return nil, err
	}
	return reply, nil
}

// decodeError unpacks an ERROR payload and restores it as the client's
// own error type, including the captured errno (spec.md §4.7:
// "ERROR(ERRNO, err_no) restores errno = err_no on the client side").
func (c *Client) decodeError(payload []byte) error {
	ep, err := proto.DecodeErrorPayload(payload)
	if err != nil {
		return err
	}
	e := &kperrors.Error{Op: "agent reply", Kind: ep.Kind}
	if ep.Kind == kperrors.Errno {
		e.Errno = syscall.Errno(ep.Errno)
	}
	return e
}
