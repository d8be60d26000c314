// Package storage implements the safe container format: header
// pack/unpack, scrypt key derivation, and chacha20poly1305 AEAD
// encrypt/decrypt of a safe's composite plaintext.
package storage

import (
	"encoding/binary"

	kperrors "kickpass/errors"
)

const (
	// SaltSize is the scrypt salt size carried in the header.
	SaltSize = 32
	// NonceSize is the on-disk AEAD nonce size carried in the header.
	NonceSize = 8
	// HeaderSize is the packed, fixed size of a storage header.
	HeaderSize = 2 + 2 + 8 + 8 + SaltSize + NonceSize

	// Version is the only container version this engine writes.
	Version uint16 = 0x0001
	// SodiumVersion is a build-time constant recorded for diagnostics;
	// it plays no role in key derivation or authentication.
	SodiumVersion uint16 = 0x0a08
)

// Header is the packed, big-endian header preceding every safe's
// ciphertext. It is fed to the AEAD as associated data, so any edit to
// its fields invalidates the ciphertext it precedes.
type Header struct {
	Version       uint16
	SodiumVersion uint16
	OpsLimit      uint64
	MemLimit      uint64
	Salt          [SaltSize]byte
	Nonce         [NonceSize]byte
}

// Pack encodes the header to its 60-byte on-disk representation.
func (h *Header) Pack() []byte {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint16(buf[0:2], h.Version)
	binary.BigEndian.PutUint16(buf[2:4], h.SodiumVersion)
	binary.BigEndian.PutUint64(buf[4:12], h.OpsLimit)
	binary.BigEndian.PutUint64(buf[12:20], h.MemLimit)
	copy(buf[20:20+SaltSize], h.Salt[:])
	copy(buf[20+SaltSize:20+SaltSize+NonceSize], h.Nonce[:])
	return buf
}

// Unpack decodes a 60-byte on-disk header. Fails InvalidStorage if buf
// is shorter than HeaderSize.
func Unpack(buf []byte) (*Header, error) {
	if len(buf) < HeaderSize {
		return nil, kperrors.ErrShortHeader
	}
	h := &Header{
		Version:       binary.BigEndian.Uint16(buf[0:2]),
		SodiumVersion: binary.BigEndian.Uint16(buf[2:4]),
		OpsLimit:      binary.BigEndian.Uint64(buf[4:12]),
		MemLimit:      binary.BigEndian.Uint64(buf[12:20]),
	}
	copy(h.Salt[:], buf[20:20+SaltSize])
	copy(h.Nonce[:], buf[20+SaltSize:20+SaltSize+NonceSize])
	return h, nil
}
