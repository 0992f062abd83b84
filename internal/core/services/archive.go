// Package services implements the profile-engine and remote-sync
// components: archiving, hashing, change detection, profile storage,
// SSH sessions, auto-key lifecycle, transfer workers and the sync
// orchestrator.
//
// ArchiveService handles compression and extraction of server-root
// snapshots. All paths it works with are plain absolute paths; the
// inclusion policy decides which files under the source tree are
// actually archived.
package services

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"atlasync/internal/core/domain"
	"atlasync/internal/core/ports"
)

// ArchiveService creates and extracts zip archives of a server root.
type ArchiveService struct {
	hasher ports.Hasher
}

// Compile-time check to ensure ArchiveService implements ports.ArchiveService
var _ ports.ArchiveService = (*ArchiveService)(nil)

// NewArchiveService creates a new ArchiveService instance.
func NewArchiveService(hasher ports.Hasher) (*ArchiveService, error) {
	if hasher == nil {
		return nil, fmt.Errorf("hasher cannot be nil")
	}
	return &ArchiveService{hasher: hasher}, nil
}

// Archive walks source and writes every file the policy includes into a
// new zip at destination, in deterministic (lexical) walk order. It
// returns the checksum of each archived file, keyed by its
// forward-slash path relative to source. If any error occurs partway
// through, the partially-written zip file is removed before returning.
func (a *ArchiveService) Archive(ctx context.Context, source, destination string, policy domain.InclusionPolicy) ([]domain.FileChecksum, error) {
	if a == nil {
		return nil, fmt.Errorf("archive service cannot be nil")
	}
	if source == "" {
		return nil, fmt.Errorf("source path cannot be empty")
	}
	if destination == "" {
		return nil, fmt.Errorf("destination path cannot be empty")
	}

	if _, err := os.Stat(source); os.IsNotExist(err) {
		return nil, fmt.Errorf("source path does not exist: %s", source)
	}

	destDir := filepath.Dir(destination)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create destination directory: %w", err)
	}

	zipFile, err := os.Create(destination)
	if err != nil {
		return nil, fmt.Errorf("failed to create zip file: %w", err)
	}

	checksums, archiveErr := a.writeZip(ctx, zipFile, source, destination, policy)
	closeErr := zipFile.Close()

	if archiveErr != nil || closeErr != nil {
		os.Remove(destination)
		if archiveErr != nil {
			return nil, fmt.Errorf("failed to archive files: %w", archiveErr)
		}
		return nil, fmt.Errorf("failed to close zip file: %w", closeErr)
	}

	return checksums, nil
}

func (a *ArchiveService) writeZip(ctx context.Context, zipFile *os.File, source, destination string, policy domain.InclusionPolicy) ([]domain.FileChecksum, error) {
	zipWriter := zip.NewWriter(zipFile)
	defer zipWriter.Close()

	var checksums []domain.FileChecksum

	err := filepath.Walk(source, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if path == destination {
			return nil
		}

		relPath, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		relPath = strings.ReplaceAll(relPath, "\\", "/")
		if relPath == "." {
			return nil
		}

		if !info.IsDir() && !policy.Includes(relPath) {
			return nil
		}

		sum, err := a.archivePath(path, relPath, info, zipWriter)
		if err != nil {
			return err
		}
		if sum != nil {
			checksums = append(checksums, *sum)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return checksums, nil
}

// archivePath writes a single file or directory entry into zipWriter.
// It returns the file's checksum, or nil for directory entries.
func (a *ArchiveService) archivePath(path, relPath string, info os.FileInfo, zipWriter *zip.Writer) (*domain.FileChecksum, error) {
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return nil, err
	}
	header.Name = relPath
	header.Method = zip.Deflate

	if info.IsDir() {
		header.Name += "/"
		_, err = zipWriter.CreateHeader(header)
		return nil, err
	}

	writer, err := zipWriter.CreateHeader(header)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if _, err := io.Copy(writer, file); err != nil {
		return nil, err
	}

	hash, err := a.hasher.HashFile(path)
	if err != nil {
		return nil, err
	}

	return &domain.FileChecksum{Path: relPath, Hash: hash, Size: info.Size()}, nil
}

// Unarchive extracts archive into destination, overlaying destination's
// existing contents: files the archive contains are (re)written, and
// nothing destination holds outside the archive's set is removed. This
// is a deliberate overlay semantics, not a mirror/sync. Entries whose
// normalized name fails policy are skipped, a defensive filter against
// a policy/archive mode mismatch at restore time (an archive saved
// under a broader mode than the one now governing destination).
func (a *ArchiveService) Unarchive(ctx context.Context, archive, destination string, policy domain.InclusionPolicy) error {
	if a == nil {
		return fmt.Errorf("archive service cannot be nil")
	}
	if archive == "" {
		return fmt.Errorf("archive path cannot be empty")
	}
	if destination == "" {
		return fmt.Errorf("destination path cannot be empty")
	}

	if _, err := os.Stat(archive); os.IsNotExist(err) {
		return fmt.Errorf("archive file does not exist: %s", archive)
	}

	if err := os.MkdirAll(destination, 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	zipReader, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("failed to open zip file: %w", err)
	}
	defer zipReader.Close()

	for _, file := range zipReader.File {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !file.FileInfo().IsDir() && !policy.Includes(file.Name) {
			continue
		}
		if err := extractEntry(file, destination); err != nil {
			return err
		}
	}

	return nil
}

func extractEntry(file *zip.File, destination string) error {
	if strings.Contains(file.Name, "..") {
		return fmt.Errorf("invalid file path in archive: %s", file.Name)
	}

	path := filepath.Join(destination, file.Name)

	if file.FileInfo().IsDir() {
		if err := os.MkdirAll(path, file.FileInfo().Mode()); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	rc, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open file in archive: %w", err)
	}
	defer rc.Close()

	outFile, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, file.FileInfo().Mode())
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer outFile.Close()

	if _, err := io.Copy(outFile, rc); err != nil {
		return fmt.Errorf("failed to extract file: %w", err)
	}

	return nil
}
