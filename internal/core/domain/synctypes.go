package domain

import "time"

// ChangeDetectionResult is the output of comparing the current server root
// against the checksums recorded in a profile.
type ChangeDetectionResult struct {
	HasChanges     bool
	AddedPaths     []string
	ModifiedPaths  []string
	RemovedPaths   []string
	UnchangedCount int
}

// SyncTask describes one remote-command phase of a sync run (pre-stop,
// clean, post-start, ...). It is independent of any particular file
// transfer.
type SyncTask struct {
	Name    string
	Command string
}

// FileUploadTask is one unit of work handed to a transfer worker: copy
// LocalPath (relative to the server root) to RemotePath on the remote
// host.
type FileUploadTask struct {
	LocalPath  string
	RemotePath string
	SizeBytes  int64
}

// SyncProgress is a point-in-time snapshot of an in-flight sync run,
// suitable for rendering as a percentage or a line of console output.
type SyncProgress struct {
	Phase            string
	FilesTotal       int
	FilesCompleted   int
	BytesTotal       int64
	BytesTransferred int64
}

// Percent returns the completion percentage in [0, 100], or 0 if there is
// nothing to do.
func (p SyncProgress) Percent() float64 {
	if p.FilesTotal == 0 {
		return 0
	}
	return 100 * float64(p.FilesCompleted) / float64(p.FilesTotal)
}

// SyncResult is the final outcome of a complete sync run.
type SyncResult struct {
	Success          bool
	StartedAt        time.Time
	FinishedAt       time.Time
	FilesTransferred int
	BytesTransferred int64
	FailedUploads    []FileUploadTask
	Cancelled        bool
	Err              error
}

// Duration returns how long the run took.
func (r SyncResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
