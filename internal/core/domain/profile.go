package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileChecksum records the SHA-256 digest of a single file captured at
// profile-save time, keyed by its path relative to the server root.
type FileChecksum struct {
	Path string `json:"path"`
	Hash string `json:"hash"`
	Size int64  `json:"sizeBytes"`
}

// ProfileContents summarizes the files a profile's checksums cover:
// counts and presence flags for each subtree the inclusion policy can
// select. It is derived from the post-filter checksum set, not a raw
// directory walk, so a mode that excludes world/ reports hasWorld=false
// even when the directory physically exists on disk.
type ProfileContents struct {
	TotalFileCount      int  `json:"totalFileCount"`
	HasServerProperties bool `json:"hasServerProperties"`
	HasMods             bool `json:"hasMods"`
	ModCount            int  `json:"modCount"`
	HasPlugins          bool `json:"hasPlugins"`
	PluginCount         int  `json:"pluginCount"`
	HasConfig           bool `json:"hasConfig"`
	HasWorld            bool `json:"hasWorld"`
}

// ComputeProfileContents derives a ProfileContents summary from the
// checksums a save actually included.
func ComputeProfileContents(checksums []FileChecksum) ProfileContents {
	c := ProfileContents{TotalFileCount: len(checksums)}
	for _, sum := range checksums {
		switch {
		case sum.Path == "server.properties":
			c.HasServerProperties = true
		case strings.HasPrefix(sum.Path, "mods/"):
			c.HasMods = true
			c.ModCount++
		case strings.HasPrefix(sum.Path, "plugins/"):
			c.HasPlugins = true
			c.PluginCount++
		case strings.HasPrefix(sum.Path, "config/"):
			c.HasConfig = true
		case strings.HasPrefix(sum.Path, "world/"):
			c.HasWorld = true
		}
	}
	return c
}

// ServerProfile is a frozen snapshot of a server root at a point in time.
// Every field except the archive-time data (ArchiveFilename,
// ArchiveSizeBytes, ArchiveHash, FileChecksums, Contents) is set at
// construction time; WithArchive fills in the rest on a copy. Once
// persisted, a profile is immutable.
type ServerProfile struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	CreatedAt        time.Time       `json:"createdAt"`
	BackupMode       BackupMode      `json:"backupMode"`
	ArchiveFilename  string          `json:"archiveFilename"`
	ArchiveSizeBytes int64           `json:"archiveSizeBytes"`
	ArchiveHash      string          `json:"archiveHash"`
	FileChecksums    []FileChecksum  `json:"fileChecksums"`
	Contents         ProfileContents `json:"contents"`
}

// NewServerProfile validates and constructs a new profile. The archive
// fields are left zero-valued; they are filled in once the archive has
// been written and hashed, then the profile becomes immutable.
func NewServerProfile(name, description string, mode BackupMode, createdAt time.Time) (*ServerProfile, error) {
	if err := ValidateProfileName(name); err != nil {
		return nil, err
	}
	if !mode.IsValid() {
		return nil, ErrInvalidBackupMode
	}

	return &ServerProfile{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		CreatedAt:   createdAt,
		BackupMode:  mode,
	}, nil
}

// ValidateProfileName enforces that a profile name is non-empty, trimmed,
// and free of path-separator characters that would be unsafe as a
// filesystem component.
func ValidateProfileName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ErrInvalidProfileName
	}
	if strings.ContainsAny(name, "/\\") {
		return ErrInvalidProfileName
	}
	if trimmed != name {
		return ErrInvalidProfileName
	}
	return nil
}

// WithArchive returns a copy of the profile with archive metadata set,
// called once after the archive has been written, stat'd and hashed.
func (p *ServerProfile) WithArchive(filename string, sizeBytes int64, hash string, checksums []FileChecksum) *ServerProfile {
	cp := p.Clone()
	cp.ArchiveFilename = filename
	cp.ArchiveSizeBytes = sizeBytes
	cp.ArchiveHash = hash
	cp.FileChecksums = checksums
	cp.Contents = ComputeProfileContents(checksums)
	return cp
}

// Clone returns a deep copy of the profile.
func (p *ServerProfile) Clone() *ServerProfile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.FileChecksums = make([]FileChecksum, len(p.FileChecksums))
	copy(cp.FileChecksums, p.FileChecksums)
	return &cp
}

// ChecksumMap indexes the profile's file checksums by path for O(1) lookup
// during change detection.
func (p *ServerProfile) ChecksumMap() map[string]FileChecksum {
	m := make(map[string]FileChecksum, len(p.FileChecksums))
	for _, c := range p.FileChecksums {
		m[c.Path] = c
	}
	return m
}
