package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"

	"atlasync/internal/config"
	"atlasync/internal/core/domain"
	"atlasync/internal/core/ports"
)

// ProfileStore error constants.
var (
	ErrProfileStoreNil         = errors.New("profile store cannot be nil")
	ErrProfileStoreStorageNil  = errors.New("storage repository cannot be nil")
	ErrProfileStoreArchiveNil  = errors.New("archive service cannot be nil")
	ErrProfileStoreHasherNil   = errors.New("hasher cannot be nil")
	ErrProfileStoreDiskInfoNil = errors.New("disk info provider cannot be nil")
	ErrProfileStoreLoggerNil   = errors.New("logger cannot be nil")
	ErrDuplicateProfileName    = errors.New("profile name already exists")
	ErrProfileNotFound         = errors.New("profile not found")
	ErrProfileArchiveMissing   = errors.New("profile archive is missing")
	ErrProfileInvalidID        = errors.New("profile id is not a valid uuid")
)

// archiveNameDisallowed matches any rune not safe as a filesystem
// component, so an archive filename derived from a profile name never
// collides with a path separator or other reserved character.
var archiveNameDisallowed = regexp.MustCompile(`[^A-Za-z0-9_-]`)

func sanitizeArchiveName(name string) string {
	return archiveNameDisallowed.ReplaceAllString(name, "_")
}

// FileStore implements ports.ProfileStore against a local filesystem
// root, persisting profiles.json and per-profile archives under it.
// The index is written to a temp key and swapped into place rather
// than overwritten directly, so a reader never observes a partial
// write.
type FileStore struct {
	storage  ports.StorageRepository
	archive  ports.ArchiveService
	hasher   ports.Hasher
	diskInfo ports.DiskInfoProvider
	logger   ports.Logger
	baseDir  string
	now      func() time.Time
}

// Compile-time check to ensure FileStore implements ports.ProfileStore
var _ ports.ProfileStore = (*FileStore)(nil)

// NewFileStore creates a new FileStore. baseDir is the real filesystem
// directory that storage's keys are rooted at — the archive codec
// addresses files there directly, while storage addresses the same
// files by root-relative key, so the two must agree on one base.
// diskInfo gates every Save behind a free-space precondition; logger
// records non-fatal failures (an archive file that fails to delete).
func NewFileStore(storage ports.StorageRepository, archive ports.ArchiveService, hasher ports.Hasher, diskInfo ports.DiskInfoProvider, logger ports.Logger, baseDir string) (*FileStore, error) {
	if storage == nil {
		return nil, ErrProfileStoreStorageNil
	}
	if archive == nil {
		return nil, ErrProfileStoreArchiveNil
	}
	if hasher == nil {
		return nil, ErrProfileStoreHasherNil
	}
	if diskInfo == nil {
		return nil, ErrProfileStoreDiskInfoNil
	}
	if logger == nil {
		return nil, ErrProfileStoreLoggerNil
	}

	return &FileStore{
		storage:  storage,
		archive:  archive,
		hasher:   hasher,
		diskInfo: diskInfo,
		logger:   logger,
		baseDir:  baseDir,
		now:      time.Now,
	}, nil
}

func (s *FileStore) loadIndex(ctx context.Context) (*domain.ServerProfileIndex, error) {
	data, err := s.storage.Get(ctx, config.ProfileIndexFilename)
	if err != nil {
		return domain.NewServerProfileIndex(""), nil
	}

	var idx domain.ServerProfileIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("failed to parse profile index: %w", err)
	}
	if err := idx.CheckVersion(); err != nil {
		return nil, err
	}

	return &idx, nil
}

// saveIndex writes the index atomically: marshal, write to a temp key,
// then rename the temp file over the real index file under baseDir.
// This guarantees a reader never observes a partially-written index.
func (s *FileStore) saveIndex(ctx context.Context, idx *domain.ServerProfileIndex) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profile index: %w", err)
	}

	tmpKey := config.ProfileIndexFilename + ".tmp"
	if err := s.storage.Put(ctx, tmpKey, data); err != nil {
		return fmt.Errorf("failed to write temp profile index: %w", err)
	}
	tmpPath := filepath.Join(s.baseDir, tmpKey)
	indexPath := filepath.Join(s.baseDir, config.ProfileIndexFilename)
	if err := os.Rename(tmpPath, indexPath); err != nil {
		return fmt.Errorf("failed to commit profile index: %w", err)
	}

	return nil
}

// List returns all profiles for the server, in index order.
func (s *FileStore) List(ctx context.Context) ([]domain.ServerProfile, error) {
	if s == nil {
		return nil, ErrProfileStoreNil
	}

	idx, err := s.loadIndex(ctx)
	if err != nil {
		return nil, err
	}
	return idx.Profiles, nil
}

// Save snapshots serverRoot into a new profile and makes it active.
// Sequence: walk + checksum + archive, stat + hash the archive, append
// to index, set active, persist index.
func (s *FileStore) Save(ctx context.Context, serverRoot, name, description string, mode domain.BackupMode) (*domain.ServerProfile, error) {
	if s == nil {
		return nil, ErrProfileStoreNil
	}

	condition, err := NewDiskSpaceCondition(config.MinFreeDiskSpaceMB, s.baseDir, s.diskInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to build disk space check: %w", err)
	}
	if err := condition.Check(ctx); err != nil {
		return nil, fmt.Errorf("save aborted: %w", err)
	}

	idx, err := s.loadIndex(ctx)
	if err != nil {
		return nil, err
	}
	if idx.HasName(name) {
		return nil, ErrDuplicateProfileName
	}

	profile, err := domain.NewServerProfile(name, description, mode, s.now())
	if err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}

	policy, err := domain.NewInclusionPolicy(mode)
	if err != nil {
		return nil, err
	}

	archiveFilename := fmt.Sprintf("%s-%d%s", sanitizeArchiveName(name), s.now().UnixMilli(), config.ArchiveExtension)
	archiveKey := filepath.Join(s.archiveDir(), archiveFilename)
	archivePath := filepath.Join(s.baseDir, archiveKey)

	checksums, err := s.archive.Archive(ctx, serverRoot, archivePath, policy)
	if err != nil {
		return nil, fmt.Errorf("failed to archive server root: %w", err)
	}

	archiveHash, err := s.hasher.HashFile(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to hash archive: %w", err)
	}

	size, err := archiveFileSize(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}

	finalProfile := profile.WithArchive(archiveFilename, size, archiveHash, checksums)

	idx.Append(*finalProfile)
	idx.SetActive(finalProfile.ID)

	if err := s.saveIndex(ctx, idx); err != nil {
		return nil, err
	}

	return finalProfile, nil
}

// Restore overlays the named profile's archive contents onto
// serverRoot. It does not delete files outside the archive's recorded
// set: this is intentional overlay semantics.
func (s *FileStore) Restore(ctx context.Context, serverRoot string, profileID string) error {
	if s == nil {
		return ErrProfileStoreNil
	}

	id, err := uuid.Parse(profileID)
	if err != nil {
		return ErrProfileInvalidID
	}

	idx, err := s.loadIndex(ctx)
	if err != nil {
		return err
	}

	profile, ok := idx.FindByID(id)
	if !ok {
		return ErrProfileNotFound
	}
	if profile.ArchiveFilename == "" {
		return ErrProfileArchiveMissing
	}

	policy, err := domain.NewInclusionPolicy(profile.BackupMode)
	if err != nil {
		return err
	}

	archivePath := filepath.Join(s.baseDir, s.archiveDir(), profile.ArchiveFilename)
	if err := s.archive.Unarchive(ctx, archivePath, serverRoot, policy); err != nil {
		return fmt.Errorf("failed to restore profile: %w", err)
	}

	return nil
}

// Delete removes a profile and its archive. If it was active, the
// index's active profile is cleared.
func (s *FileStore) Delete(ctx context.Context, profileID string) error {
	if s == nil {
		return ErrProfileStoreNil
	}

	id, err := uuid.Parse(profileID)
	if err != nil {
		return ErrProfileInvalidID
	}

	idx, err := s.loadIndex(ctx)
	if err != nil {
		return err
	}

	profile, ok := idx.FindByID(id)
	if !ok {
		return ErrProfileNotFound
	}

	archiveKey := filepath.Join(s.archiveDir(), profile.ArchiveFilename)
	if err := s.storage.Delete(ctx, archiveKey); err != nil {
		s.logger.Warn("profile delete: failed to remove archive file, continuing", "profileId", id, "archiveKey", archiveKey, "err", err)
	}

	idx.Remove(id)

	return s.saveIndex(ctx, idx)
}

// Active returns the currently active profile, if any.
func (s *FileStore) Active(ctx context.Context) (*domain.ServerProfile, bool, error) {
	if s == nil {
		return nil, false, ErrProfileStoreNil
	}

	idx, err := s.loadIndex(ctx)
	if err != nil {
		return nil, false, err
	}

	profile, ok := idx.ActiveProfile()
	return profile, ok, nil
}

func (s *FileStore) archiveDir() string {
	return config.ArchivesDir
}

func archiveFileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
