package fetcher

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// decodeDigest parses a lowercase hex SHA-256 digest into raw bytes.
func decodeDigest(digest string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.ToLower(digest))
	if err != nil {
		return nil, fmt.Errorf("decode expected digest: %w", err)
	}

	if len(raw) != sha256.Size {
		return nil, fmt.Errorf("expected digest has %d bytes, want %d", len(raw), sha256.Size)
	}

	return raw, nil
}

// fileDigest streams the file at path through SHA-256 and returns the
// lowercase hex digest.
func fileDigest(path string) (string, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", err
	}

	defer func() {
		_ = file.Close()
	}()

	hasher := sha256.New()
	if _, err = io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// verifyDigest compares the file's digest against the expected value.
// Both sides are lowercased before the comparison.
func verifyDigest(path, expected string) error {
	actual, err := fileDigest(path)
	if err != nil {
		return fmt.Errorf("verify digest: %w", err)
	}

	expected = strings.ToLower(expected)
	if actual != expected {
		return fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, expected, actual)
	}

	return nil
}

// destinationIsCurrent reports whether dest already holds an artifact with
// the expected digest. A missing destination is simply not current.
func destinationIsCurrent(dest, expected string) (bool, error) {
	if _, err := os.Stat(dest); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, err
	}

	actual, err := fileDigest(dest)
	if err != nil {
		return false, err
	}

	return actual == strings.ToLower(expected), nil
}

// copyAndClose writes everything from r into the file and closes it,
// reporting the first error encountered.
func copyAndClose(file *os.File, r io.Reader) error {
	_, copyErr := io.Copy(file, r)
	closeErr := file.Close()

	if copyErr != nil {
		return copyErr
	}

	return closeErr
}
