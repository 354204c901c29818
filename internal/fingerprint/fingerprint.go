// Package fingerprint computes content hashes compatible with the OpenVGDB
// reference database.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrRead indicates the file could not be read.
var ErrRead = errors.New("read failed")

// File returns the uppercase hex MD5 of the file at path, skipping the first
// offset bytes. An offset past the end of the file hashes nothing.
func File(path string, offset int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrRead, path, err)
	}
	defer func() { _ = f.Close() }()

	return Reader(f, offset)
}

// Reader hashes r after discarding offset bytes.
func Reader(r io.Reader, offset int64) (string, error) {
	if offset > 0 {
		if _, err := io.CopyN(io.Discard, r, offset); err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%w: skip header: %w", ErrRead, err)
		}
	}

	h := md5.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRead, err)
	}
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil))), nil
}
