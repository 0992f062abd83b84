package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"atlasync/internal/core/domain"
	"atlasync/internal/core/ports"
)

// ChangeDetector error constants
var (
	ErrChangeDetectorNil       = errors.New("change detector cannot be nil")
	ErrChangeDetectorHasherNil = errors.New("hasher cannot be nil")
)

// FileChangeDetector compares the current contents of a server root
// against the checksums recorded in a baseline profile, filtered by the
// same inclusion policy the baseline was saved under.
type FileChangeDetector struct {
	hasher ports.Hasher
}

// Compile-time check to ensure FileChangeDetector implements ports.ChangeDetector
var _ ports.ChangeDetector = (*FileChangeDetector)(nil)

// NewFileChangeDetector creates a new FileChangeDetector.
func NewFileChangeDetector(hasher ports.Hasher) (*FileChangeDetector, error) {
	if hasher == nil {
		return nil, ErrChangeDetectorHasherNil
	}
	return &FileChangeDetector{hasher: hasher}, nil
}

// DetectChanges walks serverRoot and compares every included file
// against baseline's recorded checksums. A nil baseline is treated
// conservatively: everything included is reported as added.
func (d *FileChangeDetector) DetectChanges(ctx context.Context, serverRoot string, baseline *domain.ServerProfile, policy domain.InclusionPolicy) (domain.ChangeDetectionResult, error) {
	if d == nil {
		return domain.ChangeDetectionResult{}, ErrChangeDetectorNil
	}

	var result domain.ChangeDetectionResult

	baselineMap := map[string]domain.FileChecksum{}
	if baseline != nil {
		baselineMap = baseline.ChecksumMap()
	}

	seen := make(map[string]bool, len(baselineMap))

	err := filepath.Walk(serverRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if info.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(serverRoot, path)
		if err != nil {
			return err
		}
		relPath = strings.ReplaceAll(relPath, "\\", "/")

		if !policy.Includes(relPath) {
			return nil
		}

		hash, err := d.hasher.HashFile(path)
		if err != nil {
			return fmt.Errorf("failed to hash %s: %w", relPath, err)
		}

		seen[relPath] = true
		prior, existed := baselineMap[relPath]
		switch {
		case !existed:
			result.AddedPaths = append(result.AddedPaths, relPath)
		case prior.Hash != hash:
			result.ModifiedPaths = append(result.ModifiedPaths, relPath)
		default:
			result.UnchangedCount++
		}

		return nil
	})
	if err != nil {
		return domain.ChangeDetectionResult{}, fmt.Errorf("failed to walk server root: %w", err)
	}

	for path := range baselineMap {
		if !seen[path] {
			result.RemovedPaths = append(result.RemovedPaths, path)
		}
	}

	result.HasChanges = baseline == nil ||
		len(result.AddedPaths) > 0 ||
		len(result.ModifiedPaths) > 0 ||
		len(result.RemovedPaths) > 0

	return result, nil
}

// HasUnsavedChanges short-circuits as soon as a single difference is
// found, avoiding a full walk-and-compare when the caller only needs a
// boolean. A nil baseline conservatively reports true.
func (d *FileChangeDetector) HasUnsavedChanges(ctx context.Context, serverRoot string, baseline *domain.ServerProfile, policy domain.InclusionPolicy) (bool, error) {
	if d == nil {
		return false, ErrChangeDetectorNil
	}
	if baseline == nil {
		return true, nil
	}

	baselineMap := baseline.ChecksumMap()
	seenCount := 0
	changed := false

	errStop := errors.New("stop walk")
	err := filepath.Walk(serverRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if info.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(serverRoot, path)
		if err != nil {
			return err
		}
		relPath = strings.ReplaceAll(relPath, "\\", "/")

		if !policy.Includes(relPath) {
			return nil
		}

		prior, existed := baselineMap[relPath]
		if !existed {
			changed = true
			return errStop
		}

		hash, err := d.hasher.HashFile(path)
		if err != nil {
			return fmt.Errorf("failed to hash %s: %w", relPath, err)
		}
		seenCount++
		if prior.Hash != hash {
			changed = true
			return errStop
		}

		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return false, fmt.Errorf("failed to walk server root: %w", err)
	}

	if changed {
		return true, nil
	}

	return seenCount != len(baselineMap), nil
}
