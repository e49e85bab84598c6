// Package fs implements content fingerprinting of declared files.
package fs

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"go.trai.ch/depex/internal/core/domain"
	"go.trai.ch/depex/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Fingerprinter = (*Hasher)(nil)

// Hasher computes SHA-256 fingerprints of file content.
type Hasher struct {
	bufSize int
}

// NewHasher creates a new Hasher.
func NewHasher() *Hasher {
	return &Hasher{bufSize: domain.FingerprintBufferSize}
}

// Fingerprint streams the file at path through SHA-256 in fixed-size chunks
// and returns the lowercase hex digest. Only content contributes to the digest.
func (h *Hasher) Fingerprint(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // Path is a declared read or write
	if err != nil {
		return "", zerr.With(zerr.Wrap(domain.Classify(domain.ErrFileAccess, err), "failed to open file"), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	info, err := f.Stat()
	if err != nil {
		return "", zerr.With(zerr.Wrap(domain.Classify(domain.ErrFileAccess, err), "failed to stat file"), "path", path)
	}
	if !info.Mode().IsRegular() {
		return "", zerr.With(zerr.Wrap(domain.Classify(domain.ErrFileAccess, domain.ErrNotRegularFile), "cannot fingerprint path"), "path", path)
	}

	hasher := sha256.New()
	buf := make([]byte, h.bufSize)
	if _, err := io.CopyBuffer(hasher, f, buf); err != nil {
		return "", zerr.With(zerr.Wrap(domain.Classify(domain.ErrFileAccess, err), "failed to hash file content"), "path", path)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
