package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Version info (single source of truth)
const (
	VersionMajor = 1
	VersionMinor = 0
	VersionPatch = 0
)

// Application identity
const (
	GroupName   = "atlauncher"
	ProductName = "AtlaSync"
	Description = "AtlaSync - server profile snapshots and SSH remote sync"
)

// AppName is injected at build time via ldflags.
var AppName = "atlasyncdev"

var AppVersion string

// Directory names
const (
	ProfilesDir = "profiles"
	ArchivesDir = "archives"
	TmpDir      = "temp"
	LogsDir     = "logs"
)

// File names and keys
const (
	ProfileIndexFilename = "profiles.json"
	SyncConfigFilename   = "sync_config.json"
)

// Timestamp / file-naming formats
const (
	TimestampFormat = "20060102150405"
	ArchiveExtension = ".zip"
	LogExtension     = ".log"
)

// File permissions
const (
	DirPermission  = 0755
	FilePermission = 0644
)

// SSH / sync defaults
const (
	DefaultConnectionTimeoutMS = 10_000
	DefaultParallelTransfers   = 4
	MaxParallelTransfers       = 64
	SyncCeiling                = 60 * 60 // seconds; hard ceiling on one sync run
	KeepaliveInterval          = 30      // seconds
	KeepaliveMaxMisses         = 10
	RemoteStatusPollInterval   = 2 // seconds
)

// Local preconditions
const (
	// MinFreeDiskSpaceMB is the free-space floor checked at the local
	// archive destination before a save begins.
	MinFreeDiskSpaceMB = 512
)

// Auto-key lifecycle
const (
	AutoKeyDirName     = ".ssh"
	AutoKeyPrivateName = "atlauncher_id_rsa"
	AutoKeyPublicName  = "atlauncher_id_rsa.pub"
	AutoKeyBits        = 4096
	InstallSuccessMark = "ATLASYNC_KEY_INSTALLED_OK"
)

var RootPath string

func init() {
	AppVersion = fmt.Sprintf("%d.%d.%d", VersionMajor, VersionMinor, VersionPatch)

	workDir, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}
	RootPath = filepath.Join(workDir, GroupName, AppName)
}

// AutoKeyPrivatePath returns the default path to the auto-generated
// private key, ~/.ssh/atlauncher_id_rsa.
func AutoKeyPrivatePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, AutoKeyDirName, AutoKeyPrivateName), nil
}

// AutoKeyPublicPath returns the default path to the auto-generated
// public key, ~/.ssh/atlauncher_id_rsa.pub.
func AutoKeyPublicPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, AutoKeyDirName, AutoKeyPublicName), nil
}
