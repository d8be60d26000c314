package storage

import (
	"io"
	"os"

	kperrors "kickpass/errors"
)

// PlainMax is the maximum size of the composite plaintext this engine
// will accept on open (PasswordMax + MetadataMax, mirrored here to
// avoid an import cycle with the buffer package).
const PlainMax = 4096 + 4096

// Context carries the KDF cost parameters used for newly written safes.
// A fresh Context defaults to DefaultOpsLimit/DefaultMemLimit; callers
// (the config store) may override both fields before calling Save.
type Context struct {
	OpsLimit uint64
	MemLimit uint64
}

// NewContext returns a Context seeded with the engine's default KDF
// cost parameters.
func NewContext() *Context {
	return &Context{OpsLimit: DefaultOpsLimit, MemLimit: DefaultMemLimit}
}

// Save writes plaintext to file as a fresh header followed by its AEAD
// ciphertext, sealed under passphrase. The file is truncated to 0 and
// rewritten from offset 0; a crash mid-write can leave a file that
// later fails InvalidStorage on open (spec.md §9 accepts this — no
// write-temp-then-rename strengthening is applied, see DESIGN.md).
func Save(ctx *Context, file *os.File, passphrase, plaintext []byte) error {
	salt, err := randomSalt()
	if err != nil {
		return err
	}
	nonce, err := randomNonce()
	if err != nil {
		return err
	}

	h := &Header{
		Version:       Version,
		SodiumVersion: SodiumVersion,
		OpsLimit:      ctx.OpsLimit,
		MemLimit:      ctx.MemLimit,
		Salt:          salt,
		Nonce:         nonce,
	}
	headerBytes := h.Pack()

	ciphertext, err := seal(passphrase, h, headerBytes, plaintext)
	if err != nil {
		return kperrors.New(kperrors.EEncrypt, "seal", "")
	}

	if err := file.Truncate(0); err != nil {
		return kperrors.FromErrno(err, "truncate")
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return kperrors.FromErrno(err, "seek")
	}
	if _, err := file.Write(headerBytes); err != nil {
		return kperrors.FromErrno(err, "write header")
	}
	if _, err := file.Write(ciphertext); err != nil {
		return kperrors.FromErrno(err, "write ciphertext")
	}
	return nil
}

// Open reads and authenticates a cipher file, returning its plaintext.
// A short or malformed header/ciphertext fails InvalidStorage; a
// ciphertext exceeding PlainMax+ABytes fails Errno(ENOMEM)-shaped;
// authentication failure (wrong passphrase or tampering) fails
// EDecrypt, indistinguishable by design (spec.md §7).
func Open(file *os.File, passphrase []byte) ([]byte, error) {
	headerBytes := make([]byte, HeaderSize)
	if _, err := io.ReadFull(file, headerBytes); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, kperrors.ErrShortHeader
		}
		return nil, kperrors.FromErrno(err, "read header")
	}

	h, err := Unpack(headerBytes)
	if err != nil {
		return nil, err
	}

	ciphertext, err := io.ReadAll(io.LimitReader(file, PlainMax+ABytes+1))
	if err != nil {
		return nil, kperrors.FromErrno(err, "read ciphertext")
	}
	if len(ciphertext) <= ABytes {
		return nil, kperrors.ErrShortCiphertext
	}
	if len(ciphertext) > PlainMax+ABytes {
		return nil, kperrors.ErrLongCiphertext
	}

	plaintext, err := open(passphrase, h, headerBytes, ciphertext)
	if err != nil {
		return nil, err
	}
	return plaintext, nil
}
