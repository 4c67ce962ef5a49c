// Package hashutil computes the content hashes modsync uses as file identity.
package hashutil

import (
	"crypto/sha1"
	"encoding/hex"
	"hash"
	"io"
	"strings"

	"github.com/arthur-debert/modsync/pkg/types"
)

// Unchecked is the sentinel hash meaning "do not verify this file". A
// manifest entry carrying it is accepted whatever its downloaded content.
const Unchecked = "unchecked"

// IsUnchecked reports whether h is the unchecked sentinel.
func IsUnchecked(h string) bool {
	return strings.EqualFold(strings.TrimSpace(h), Unchecked)
}

// Equal compares two hex digests case-insensitively.
func Equal(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// New returns the hash function content identity is based on.
func New() hash.Hash {
	return sha1.New()
}

// Sum returns the hex digest of h.
func Sum(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}

// CalculateFileChecksum calculates the SHA-1 checksum of a file
func CalculateFileChecksum(fs types.FS, path string) (string, error) {
	file, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = file.Close()
	}()

	return CalculateChecksum(file)
}

// CalculateChecksum hashes everything r yields.
func CalculateChecksum(r io.Reader) (string, error) {
	h := New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return Sum(h), nil
}
