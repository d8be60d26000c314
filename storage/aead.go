package storage

import (
	"crypto/rand"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	kperrors "kickpass/errors"
)

// Default KDF cost parameters. The "sensitive" scrypt profile divided
// by 5, per spec.md §4.5, approximating the original's balance between
// interactive responsiveness and brute-force resistance.
const (
	OpsLimitSensitive = 33554432
	MemLimitSensitive = 1 << 30 // 1 GiB

	DefaultOpsLimit = OpsLimitSensitive / 5
	DefaultMemLimit = MemLimitSensitive / 5

	// OpsLimitInteractive/MemLimitInteractive are the cheap profile used
	// by test vectors (spec.md §8 S3/S4) so known-answer tests run fast.
	OpsLimitInteractive = 2
	MemLimitInteractive = 1 << 14

	// scryptR is the fixed scrypt block size parameter and scryptP the
	// fixed parallelism; N is derived from memlimit and opslimit by
	// scryptCost. This mapping is this engine's own and does not
	// reproduce libsodium's pwhash_scryptsalsa208sha256 parameter choice.
	scryptR = 8
	scryptP = 1

	keySize = chacha20poly1305.KeySize
)

// deriveKey runs scrypt over passphrase with the header's salt and cost
// parameters, producing a chacha20poly1305 key.
func deriveKey(passphrase, salt []byte, opsLimit, memLimit uint64) ([]byte, error) {
	n := scryptCost(opsLimit, memLimit)
	key, err := scrypt.Key(passphrase, salt, n, scryptR, scryptP, keySize)
	if err != nil {
		return nil, kperrors.Wrap(err, kperrors.Errno, "scrypt")
	}
	return key, nil
}

// scryptCost maps (opsLimit, memLimit) onto the largest power-of-two N
// with 128*N*r <= memLimit and N <= opsLimit. N is never less than 2,
// so for very small limits it can exceed either bound.
func scryptCost(opsLimit, memLimit uint64) int {
	maxN := memLimit / (128 * scryptR)
	n := 1
	for uint64(n)<<1 <= maxN && uint64(n)<<1 <= opsLimit {
		n <<= 1
	}
	if n < 2 {
		n = 2
	}
	return n
}

// seal encrypts plaintext under the key derived from passphrase and the
// header's parameters, authenticating headerBytes as associated data.
// The header's 8-byte nonce is zero-extended to the cipher's 12-byte
// NonceSize; see DESIGN.md for why this doesn't weaken the nonce's
// uniqueness guarantee.
func seal(passphrase []byte, h *Header, headerBytes, plaintext []byte) ([]byte, error) {
	key, err := deriveKey(passphrase, h.Salt[:], h.OpsLimit, h.MemLimit)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, kperrors.Wrap(err, kperrors.EEncrypt, "init aead")
	}

	nonce := extendNonce(h.Nonce)
	return aead.Seal(nil, nonce, plaintext, headerBytes), nil
}

// open authenticates and decrypts ciphertext under the key derived from
// passphrase and the header's parameters. Any failure — wrong
// passphrase or a tampered header/ciphertext — surfaces as EDecrypt.
func open(passphrase []byte, h *Header, headerBytes, ciphertext []byte) ([]byte, error) {
	key, err := deriveKey(passphrase, h.Salt[:], h.OpsLimit, h.MemLimit)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, kperrors.Wrap(err, kperrors.EDecrypt, "init aead")
	}

	nonce := extendNonce(h.Nonce)
	plaintext, err := aead.Open(nil, nonce, ciphertext, headerBytes)
	if err != nil {
		return nil, kperrors.New(kperrors.EDecrypt, "aead open", "")
	}
	return plaintext, nil
}

func extendNonce(n [NonceSize]byte) []byte {
	nonce := make([]byte, chacha20poly1305.NonceSize)
	copy(nonce, n[:])
	return nonce
}

// randomSalt returns SaltSize fresh random bytes for a new header.
func randomSalt() ([SaltSize]byte, error) {
	var salt [SaltSize]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return salt, kperrors.FromErrno(err, "read random salt")
	}
	return salt, nil
}

// randomNonce returns NonceSize fresh random bytes for a new header.
func randomNonce() ([NonceSize]byte, error) {
	var nonce [NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nonce, kperrors.FromErrno(err, "read random nonce")
	}
	return nonce, nil
}

// ABytes is the AEAD authentication tag overhead added to ciphertext.
const ABytes = chacha20poly1305.Overhead
