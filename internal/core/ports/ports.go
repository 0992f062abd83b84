package ports

import (
	"context"

	"atlasync/internal/core/domain"
)

// StorageRepository defines the interface for key-value storage
// operations used by the profile store to persist profiles.json and
// archive blobs. This abstraction allows swapping the local filesystem
// for another backend without touching service logic.
type StorageRepository interface {
	// Get retrieves data by key
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores data with the given key
	Put(ctx context.Context, key string, data []byte) error

	// Delete removes data by key
	Delete(ctx context.Context, key string) error

	// List returns all keys with the given prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Copy copies data from source key to destination key
	Copy(ctx context.Context, sourceKey string, destKey string) error
}

// CommandExecutor abstracts local subprocess execution so it can be
// faked in tests. Used to shell out to scp for the fast-transfer path.
type CommandExecutor interface {
	// Execute runs a command with the given arguments and working directory
	Execute(command string, args []string, workingDir string) error
}

// ArchiveService creates and extracts zip archives of a server root,
// filtered by an inclusion policy.
type ArchiveService interface {
	// Archive compresses source to destination, recording the checksum
	// of every included file.
	Archive(ctx context.Context, source, destination string, policy domain.InclusionPolicy) ([]domain.FileChecksum, error)

	// Unarchive extracts archive into destination, overlaying existing
	// files without deleting anything destination holds that the
	// archive does not. Entries whose normalized name fails policy are
	// skipped, defending against a mode mismatch between the archive
	// and the restore target.
	Unarchive(ctx context.Context, archive, destination string, policy domain.InclusionPolicy) error
}

// DiskInfoProvider abstracts querying free disk space at a path, so the
// disk-space precondition can be tested without touching a real
// filesystem's statfs.
type DiskInfoProvider interface {
	// GetFreeDiskMB returns the free space, in megabytes, available at
	// or under path.
	GetFreeDiskMB(path string) (int, error)
}

// Hasher computes a content digest for a file.
type Hasher interface {
	// HashFile returns the hex-encoded digest of the file at path.
	HashFile(path string) (string, error)
}

// ProfileStore manages the lifecycle of server profiles for one server
// root.
type ProfileStore interface {
	// List returns all profiles for the server, in index order.
	List(ctx context.Context) ([]domain.ServerProfile, error)

	// Save snapshots serverRoot into a new profile under the given name,
	// description and backup mode, and makes it active.
	Save(ctx context.Context, serverRoot, name, description string, mode domain.BackupMode) (*domain.ServerProfile, error)

	// Restore overlays the named profile's archive contents onto
	// serverRoot. It does not delete files outside the archive's set.
	Restore(ctx context.Context, serverRoot string, profileID string) error

	// Delete removes a profile and its archive. If it was active, the
	// index's active profile is cleared.
	Delete(ctx context.Context, profileID string) error

	// Active returns the currently active profile, if any.
	Active(ctx context.Context) (*domain.ServerProfile, bool, error)
}

// ChangeDetector compares a server root's current state against a
// profile's recorded checksums.
type ChangeDetector interface {
	// DetectChanges walks serverRoot and compares it to baseline.
	DetectChanges(ctx context.Context, serverRoot string, baseline *domain.ServerProfile, policy domain.InclusionPolicy) (domain.ChangeDetectionResult, error)

	// HasUnsavedChanges short-circuits DetectChanges: it returns true as
	// soon as a single difference is found, or if baseline is nil.
	HasUnsavedChanges(ctx context.Context, serverRoot string, baseline *domain.ServerProfile, policy domain.InclusionPolicy) (bool, error)
}

// SSHSession is one authenticated connection to a remote host, able to
// run commands and move files over SFTP.
type SSHSession interface {
	// Exec runs command on the remote host and returns combined output.
	Exec(ctx context.Context, command string) (output string, exitCode int, err error)

	// SFTPPut writes localPath's contents to remotePath over SFTP.
	SFTPPut(ctx context.Context, localPath, remotePath string) error

	// Mkdirp creates remotePath and any missing parents.
	Mkdirp(ctx context.Context, remotePath string) error

	// Exists reports whether remotePath exists on the remote host.
	Exists(ctx context.Context, remotePath string) (bool, error)

	// Close tears down the underlying connection.
	Close() error
}

// AutoKeyLifecycle manages the locally-generated RSA key pair used to
// bootstrap key-based auth against a remote host.
type AutoKeyLifecycle interface {
	// EnsureKey returns the existing key pair, generating one if absent.
	EnsureKey() (privateKeyPath, publicKeyPath string, err error)

	// Install copies the public key into the remote user's
	// authorized_keys over a password-authenticated session.
	Install(ctx context.Context, cfg domain.RemoteSyncConfig, password string) error
}

// TransferWorkerPool runs a bounded set of FileUploadTasks concurrently.
// Each worker uploads one task at a time, over the shared session's SFTP
// subsystem or, with fast transfer, through one scp subprocess per task.
type TransferWorkerPool interface {
	// Run uploads every task, honoring ctx cancellation, and returns the
	// tasks that failed.
	Run(ctx context.Context, tasks []domain.FileUploadTask, progress func(domain.SyncProgress)) (failed []domain.FileUploadTask, completed int, bytesSent int64, err error)
}

// SyncOrchestrator drives the full local-to-remote sync pipeline.
type SyncOrchestrator interface {
	// Run executes the six-phase sync described in the component design:
	// pre-stop, version manifest, clean, enumerate, upload, post-start.
	// Which subtrees are touched comes entirely from cfg's per-subtree
	// flags, never from a Profile Store snapshot.
	Run(ctx context.Context, serverRoot string, cfg domain.RemoteSyncConfig) (domain.SyncResult, error)

	// Cancel requests that an in-flight Run stop at its next safe point.
	Cancel()
}

// ConditionService is a single pass/fail precondition check, used both
// locally (disk space) and remotely (status polling).
type ConditionService interface {
	Check(ctx context.Context) error
}

// Logger is the structured logging interface implemented by an slog
// adapter in production and a no-op adapter in tests.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}
