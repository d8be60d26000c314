// Package server implements the agent's accept loop and the
// single-goroutine cache that backs SEARCH/STORE/DISCARD requests.
package server

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
	"time"

	"kickpass/agent/proto"
	kperrors "kickpass/errors"
	"kickpass/logging"
)

// enoent is the errno value returned for SEARCH/DISCARD misses, per
// spec.md §4.8 ("reply SEARCH|ERROR(ENOENT)").
const enoent = int32(syscall.ENOENT)

// opKind identifies which cache operation an event-loop request asks
// for.
type opKind int

const (
	opStore opKind = iota
	opSearch
	opDiscard
	opExpire
)

// op is a closure-free request sent over the event loop's channel so
// every cache mutation happens on a single goroutine (spec.md §5),
// whether it originates from a connection handler or a discard timer.
type op struct {
	kind     opKind
	name     string
	password []byte
	metadata []byte
	timeout  time.Duration
	reply    chan opResult // nil for timer-triggered expiry (silent)
}

type opResult struct {
	password []byte
	metadata []byte
	found    bool
	err      error
}

// Server runs the agent's event loop: it accepts connections and
// serializes every cache mutation through a single channel so the
// cache (§4.8) is touched from one goroutine only.
type Server struct {
	listener net.Listener
	cache    *cache
	ops      chan *op
	done     chan struct{}
}

// New wraps an already-bound listener (typically from Listen, below)
// in a Server ready to Run.
func New(listener net.Listener) *Server {
	return &Server{
		listener: listener,
		cache:    newCache(),
		ops:      make(chan *op),
		done:     make(chan struct{}),
	}
}

// Run drives the event loop until the listener is closed or Shutdown
// is called. It accepts connections on the caller's goroutine and
// spawns one goroutine per connection to read frames; those goroutines
// never touch the cache directly, only through s.ops.
func (s *Server) Run() error {
	go s.loop()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return nil
			default:
				return kperrors.FromErrno(err, "accept")
			}
		}
		go s.handleConn(conn)
	}
}

// Shutdown stops the accept loop and the event loop, releasing every
// cached entry's buffers.
func (s *Server) Shutdown() {
	select {
	case <-s.done:
		return
	default:
		close(s.done)
	}
	s.listener.Close()
}

// loop is the single goroutine that owns the cache.
func (s *Server) loop() {
	for {
		select {
		case o := <-s.ops:
			s.apply(o)
		case <-s.done:
			s.cache.closeAll()
			return
		}
	}
}

func (s *Server) apply(o *op) {
	switch o.kind {
	case opStore:
		var timer *time.Timer
		if o.timeout > 0 {
			name := o.name
			timer = time.AfterFunc(o.timeout, func() {
				s.ops <- &op{kind: opExpire, name: name}
			})
		}
		err := s.cache.store(o.name, o.password, o.metadata, timer)
		if o.reply != nil {
			o.reply <- opResult{err: err}
		}
	case opSearch:
		password, metadata, found := s.cache.find(o.name)
		if o.reply != nil {
			o.reply <- opResult{password: password, metadata: metadata, found: found}
		}
	case opDiscard:
		found := s.cache.discard(o.name)
		if o.reply != nil {
			o.reply <- opResult{found: found}
		}
	case opExpire:
		// Timer-driven discard is silent: no reply channel, per
		// spec.md §4.8.
		s.cache.discard(o.name)
	}
}

// handleConn reads frames off conn until it's closed or a malformed
// frame is seen, dispatching each to the event loop and writing back
// whatever reply the loop produces. Every log line for this connection
// carries its peer address via a connection-scoped logger installed in
// ctx.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	connLogger := logging.WithConn(logging.Default(), conn.RemoteAddr().String())
	ctx := logging.ContextWithLogger(context.Background(), connLogger)

	for {
		frame, err := proto.ReadFrame(conn, false)
		if err != nil {
			if errors.Is(err, io.EOF) || kperrors.IsKind(err, kperrors.Errno) {
				return
			}
			s.writeError(ctx, conn, 0, kperrors.InvalidMsg, 0)
			return
		}

		if !s.dispatch(ctx, conn, frame) {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, conn net.Conn, frame *proto.Frame) bool {
	switch frame.Type {
	case proto.Store:
		ctx := logging.ContextWithLogger(ctx, logging.WithOperation(logging.FromContext(ctx), "store"))
		store, err := proto.DecodeStorePayload(frame.Payload)
		if err != nil {
			s.writeError(ctx, conn, frame.ID, kperrors.InvalidMsg, 0)
			return false
		}
		reply := make(chan opResult, 1)
		var timeout time.Duration
		if store.Timeout > 0 {
			timeout = time.Duration(store.Timeout) * time.Second
		}
		s.ops <- &op{kind: opStore, name: store.Name, password: store.Password, metadata: store.Metadata, timeout: timeout, reply: reply}
		res := <-reply
		if res.err != nil {
			s.writeError(ctx, conn, frame.ID, kperrors.EInternal, 0)
			return false
		}
		return s.writeOK(ctx, conn, proto.Store, frame.ID, frame.Payload)

	case proto.Search:
		ctx := logging.ContextWithLogger(ctx, logging.WithOperation(logging.FromContext(ctx), "search"))
		name, err := proto.DecodeSearchPayload(frame.Payload)
		if err != nil {
			s.writeError(ctx, conn, frame.ID, kperrors.InvalidMsg, 0)
			return false
		}
		reply := make(chan opResult, 1)
		s.ops <- &op{kind: opSearch, name: name, reply: reply}
		res := <-reply
		if !res.found {
			return s.writeENOENT(ctx, conn, frame.ID)
		}
		payload, err := proto.EncodeStorePayload(&proto.StorePayload{Name: name, Password: res.password, Metadata: res.metadata})
		if err != nil {
			s.writeError(ctx, conn, frame.ID, kperrors.EInternal, 0)
			return false
		}
		return s.writeOK(ctx, conn, proto.Search, frame.ID, payload)

	case proto.Discard:
		ctx := logging.ContextWithLogger(ctx, logging.WithOperation(logging.FromContext(ctx), "discard"))
		name, err := proto.DecodeDiscardPayload(frame.Payload)
		if err != nil {
			s.writeError(ctx, conn, frame.ID, kperrors.InvalidMsg, 0)
			return false
		}
		reply := make(chan opResult, 1)
		s.ops <- &op{kind: opDiscard, name: name, reply: reply}
		res := <-reply
		if !res.found {
			return s.writeENOENT(ctx, conn, frame.ID)
		}
		return s.writeOK(ctx, conn, proto.Discard, frame.ID, proto.EncodeDiscardReply(true))

	default:
		s.writeError(ctx, conn, frame.ID, kperrors.InvalidMsg, 0)
		return false
	}
}

func (s *Server) writeOK(ctx context.Context, conn net.Conn, t proto.Type, id uint64, payload []byte) bool {
	if err := proto.WriteFrame(conn, t, id, 0, payload); err != nil {
		logging.ErrorContext(ctx, "agent write reply failed", "error", err)
		return false
	}
	return true
}

func (s *Server) writeENOENT(ctx context.Context, conn net.Conn, id uint64) bool {
	return s.writeOK(ctx, conn, proto.Error, id, proto.EncodeErrorPayload(&proto.ErrorPayload{Kind: kperrors.Errno, Errno: enoent}))
}

func (s *Server) writeError(ctx context.Context, conn net.Conn, id uint64, kind kperrors.Kind, errno int32) {
	s.writeOK(ctx, conn, proto.Error, id, proto.EncodeErrorPayload(&proto.ErrorPayload{Kind: kind, Errno: errno}))
}
