// Package proto implements the agent's stream-oriented framed wire
// protocol: a small fixed header (type, length, id, peer) followed by
// a type-specific, fixed-size payload.
package proto

import (
	"encoding/binary"
	"io"

	kperrors "kickpass/errors"
)

// Fixed field widths, matching the storage engine's buffer caps so a
// cached safe round-trips through the wire without truncation.
const (
	PathMax     = 4096
	PasswordMax = 4096
	MetadataMax = 4096
)

// Type identifies a frame's payload shape.
type Type uint8

const (
	// Store asks the agent to cache a safe's plaintext.
	Store Type = iota + 1
	// Search asks the agent for a cached safe's plaintext.
	Search
	// Discard asks the agent to evict a cached safe.
	Discard
	// Error carries a failure in place of the expected reply.
	Error
)

// frameHeaderSize is the wire size of a frame's fixed header:
// type(1) + length(4) + id(8) + peer(4).
const frameHeaderSize = 1 + 4 + 8 + 4

// storePayloadSize is the fixed wire size of a STORE payload and of a
// SEARCH reply, which shares its shape: timeout(8) + name + password +
// metadata.
const storePayloadSize = 8 + PathMax + PasswordMax + MetadataMax

// searchPayloadSize is the fixed wire size of a SEARCH request.
const searchPayloadSize = PathMax

// discardPayloadSize is the fixed wire size of a DISCARD request.
const discardPayloadSize = PathMax

// discardReplyPayloadSize is the fixed wire size of a DISCARD reply.
const discardReplyPayloadSize = 1

// errorPayloadSize is the fixed wire size of an ERROR payload:
// err(4) + err_no(4).
const errorPayloadSize = 4 + 4

// expectedPayloadSize returns the payload size required for a frame of
// the given type, or false if the type is unknown.
func expectedPayloadSize(t Type, isReply bool) (int, bool) {
	switch t {
	case Store:
		return storePayloadSize, true
	case Search:
		if isReply {
			return storePayloadSize, true
		}
		return searchPayloadSize, true
	case Discard:
		if isReply {
			return discardReplyPayloadSize, true
		}
		return discardPayloadSize, true
	case Error:
		return errorPayloadSize, true
	default:
		return 0, false
	}
}

// Frame is a decoded wire message: its header fields plus the raw,
// still-undecoded payload bytes.
type Frame struct {
	Type   Type
	ID     uint64
	Peer   uint32
	Payload []byte
}

// StorePayload is the STORE request payload and the SEARCH reply
// payload (spec.md §4.7: "reply: same shape as STORE payload").
type StorePayload struct {
	Timeout  int64
	Name     string
	Password []byte
	Metadata []byte
}

// ErrorPayload carries a core error kind plus the captured OS errno.
type ErrorPayload struct {
	Kind  kperrors.Kind
	Errno int32
}

// WriteFrame encodes and writes a complete frame: header plus payload.
func WriteFrame(w io.Writer, t Type, id uint64, peer uint32, payload []byte) error {
	header := make([]byte, frameHeaderSize)
	header[0] = byte(t)
	binary.BigEndian.PutUint32(header[1:5], uint32(len(payload)))
	binary.BigEndian.PutUint64(header[5:13], id)
	binary.BigEndian.PutUint32(header[13:17], peer)

	if _, err := w.Write(header); err != nil {
		return kperrors.FromErrno(err, "write frame header")
	}
	if _, err := w.Write(payload); err != nil {
		return kperrors.FromErrno(err, "write frame payload")
	}
	return nil
}

// ReadFrame reads one complete frame from r. isReply indicates whether
// the caller is reading a reply (affects SEARCH/DISCARD's expected
// payload size, since their request and reply shapes differ). A
// payload-size mismatch for the decoded type fails InvalidMsg, per
// spec.md §4.7.
func ReadFrame(r io.Reader, isReply bool) (*Frame, error) {
	header := make([]byte, frameHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, kperrors.FromErrno(err, "read frame header")
	}

	t := Type(header[0])
	length := binary.BigEndian.Uint32(header[1:5])
	id := binary.BigEndian.Uint64(header[5:13])
	peer := binary.BigEndian.Uint32(header[13:17])

	want, ok := expectedPayloadSize(t, isReply)
	if !ok || int(length) != want {
		return nil, kperrors.ErrPayloadSize
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, kperrors.FromErrno(err, "read frame payload")
	}

	return &Frame{Type: t, ID: id, Peer: peer, Payload: payload}, nil
}

// EncodeStorePayload packs a StorePayload into its fixed wire shape.
// Fails EInput if Name, Password, or Metadata overflow their field.
func EncodeStorePayload(p *StorePayload) ([]byte, error) {
	buf := make([]byte, storePayloadSize)
	binary.BigEndian.PutUint64(buf[0:8], uint64(p.Timeout))

	if err := putNulString(buf[8:8+PathMax], p.Name); err != nil {
		return nil, err
	}
	off := 8 + PathMax
	if err := putNulBytes(buf[off:off+PasswordMax], p.Password); err != nil {
		return nil, err
	}
	off += PasswordMax
	if err := putNulBytes(buf[off:off+MetadataMax], p.Metadata); err != nil {
		return nil, err
	}
	return buf, nil
}

// DecodeStorePayload unpacks a STORE/SEARCH-reply payload. Fails
// InvalidMsg if any field lacks a terminating NUL.
func DecodeStorePayload(buf []byte) (*StorePayload, error) {
	if len(buf) != storePayloadSize {
		return nil, kperrors.ErrPayloadSize
	}
	timeout := int64(binary.BigEndian.Uint64(buf[0:8]))

	name, err := getNulString(buf[8 : 8+PathMax])
	if err != nil {
		return nil, err
	}
	off := 8 + PathMax
	password, err := getNulBytes(buf[off : off+PasswordMax])
	if err != nil {
		return nil, err
	}
	off += PasswordMax
	metadata, err := getNulBytes(buf[off : off+MetadataMax])
	if err != nil {
		return nil, err
	}

	return &StorePayload{Timeout: timeout, Name: name, Password: password, Metadata: metadata}, nil
}

// EncodeSearchPayload packs a SEARCH request (a single NUL-terminated
// name field).
func EncodeSearchPayload(name string) ([]byte, error) {
	buf := make([]byte, searchPayloadSize)
	if err := putNulString(buf, name); err != nil {
		return nil, err
	}
	return buf, nil
}

// DecodeSearchPayload unpacks a SEARCH request.
func DecodeSearchPayload(buf []byte) (string, error) {
	if len(buf) != searchPayloadSize {
		return "", kperrors.ErrPayloadSize
	}
	return getNulString(buf)
}

// EncodeDiscardPayload packs a DISCARD request.
func EncodeDiscardPayload(name string) ([]byte, error) {
	buf := make([]byte, discardPayloadSize)
	if err := putNulString(buf, name); err != nil {
		return nil, err
	}
	return buf, nil
}

// DecodeDiscardPayload unpacks a DISCARD request.
func DecodeDiscardPayload(buf []byte) (string, error) {
	if len(buf) != discardPayloadSize {
		return "", kperrors.ErrPayloadSize
	}
	return getNulString(buf)
}

// EncodeDiscardReply packs a DISCARD reply's single bool.
func EncodeDiscardReply(ok bool) []byte {
	if ok {
		return []byte{1}
	}
	return []byte{0}
}

// DecodeDiscardReply unpacks a DISCARD reply.
func DecodeDiscardReply(buf []byte) (bool, error) {
	if len(buf) != discardReplyPayloadSize {
		return false, kperrors.ErrPayloadSize
	}
	return buf[0] != 0, nil
}

// EncodeErrorPayload packs an ERROR payload.
func EncodeErrorPayload(p *ErrorPayload) []byte {
	buf := make([]byte, errorPayloadSize)
	binary.BigEndian.PutUint32(buf[0:4], uint32(p.Kind))
	binary.BigEndian.PutUint32(buf[4:8], uint32(p.Errno))
	return buf
}

// DecodeErrorPayload unpacks an ERROR payload.
func DecodeErrorPayload(buf []byte) (*ErrorPayload, error) {
	if len(buf) != errorPayloadSize {
		return nil, kperrors.ErrPayloadSize
	}
	return &ErrorPayload{
		Kind:  kperrors.Kind(binary.BigEndian.Uint32(buf[0:4])),
		Errno: int32(binary.BigEndian.Uint32(buf[4:8])),
	}, nil
}

func putNulString(field []byte, s string) error {
	return putNulBytes(field, []byte(s))
}

func putNulBytes(field []byte, data []byte) error {
	if len(data) >= len(field) {
		return kperrors.New(kperrors.EInput, "encode wire field", "value too long")
	}
	n := copy(field, data)
	for i := n; i < len(field); i++ {
		field[i] = 0
	}
	return nil
}

func getNulString(field []byte) (string, error) {
	data, err := getNulBytes(field)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// getNulBytes returns the bytes of field up to its first NUL, failing
// InvalidMsg if no NUL terminator is present (spec.md §4.7: "servers
// MUST enforce terminal NUL").
func getNulBytes(field []byte) ([]byte, error) {
	for i, c := range field {
		if c == 0 {
			out := make([]byte, i)
			copy(out, field[:i])
			return out, nil
		}
	}
	return nil, kperrors.New(kperrors.InvalidMsg, "decode wire field", "missing NUL terminator")
}
