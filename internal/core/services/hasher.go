package services

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"atlasync/internal/core/ports"
)

// ErrHasherNil is returned when a method is called on a nil *FileHasher.
var ErrHasherNil = errors.New("hasher cannot be nil")

// FileHasher computes the SHA-256 digest of a file by streaming it
// through the hash rather than loading it fully into memory.
type FileHasher struct{}

// Compile-time check to ensure FileHasher implements ports.Hasher
var _ ports.Hasher = (*FileHasher)(nil)

// NewFileHasher creates a new FileHasher.
func NewFileHasher() *FileHasher {
	return &FileHasher{}
}

// HashFile returns the lowercase hex-encoded SHA-256 digest of the file
// at path.
func (h *FileHasher) HashFile(path string) (string, error) {
	if h == nil {
		return "", ErrHasherNil
	}
	if path == "" {
		return "", errors.New("path cannot be empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	sum := sha256.New()
	if _, err := io.Copy(sum, file); err != nil {
		return "", fmt.Errorf("failed to hash file %s: %w", path, err)
	}

	return hex.EncodeToString(sum.Sum(nil)), nil
}
