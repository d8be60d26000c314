package storage

import (
	"bytes"

	kperrors "kickpass/errors"
)

// JoinPlaintext packs password and metadata into the composite
// plaintext every safe seals, config safes included: password || 0x00
// || metadata || 0x00 (spec.md §3). A config safe passes an empty
// password, since it stores only metadata.
func JoinPlaintext(password, metadata []byte) []byte {
	buf := make([]byte, 0, len(password)+1+len(metadata)+1)
	buf = append(buf, password...)
	buf = append(buf, 0)
	buf = append(buf, metadata...)
	buf = append(buf, 0)
	return buf
}

// SplitPlaintext reverses JoinPlaintext: password is the NUL-terminated
// prefix, metadata the NUL-terminated remainder. Fails InvalidStorage
// if either NUL is missing.
func SplitPlaintext(plaintext []byte) (password, metadata []byte, err error) {
	i := bytes.IndexByte(plaintext, 0)
	if i < 0 {
		return nil, nil, kperrors.New(kperrors.InvalidStorage, "split plaintext", "missing password terminator")
	}
	rest := plaintext[i+1:]
	j := bytes.IndexByte(rest, 0)
	if j < 0 {
		return nil, nil, kperrors.New(kperrors.InvalidStorage, "split plaintext", "missing metadata terminator")
	}
	return plaintext[:i], rest[:j], nil
}

// Wipe overwrites data with zeroes in place.
func Wipe(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
