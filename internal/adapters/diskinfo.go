package adapters

import (
	"fmt"

	"golang.org/x/sys/unix"

	"atlasync/internal/core/ports"
)

// UnixDiskInfo implements ports.DiskInfoProvider via the unix statfs(2)
// syscall, reused across any POSIX target this CLI runs on.
type UnixDiskInfo struct{}

// Compile-time check to ensure UnixDiskInfo implements ports.DiskInfoProvider
var _ ports.DiskInfoProvider = UnixDiskInfo{}

// NewUnixDiskInfo creates a new UnixDiskInfo.
func NewUnixDiskInfo() UnixDiskInfo {
	return UnixDiskInfo{}
}

// GetFreeDiskMB returns the free space, in megabytes, available to an
// unprivileged user at or under path.
func (UnixDiskInfo) GetFreeDiskMB(path string) (int, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("failed to statfs %s: %w", path, err)
	}

	freeBytes := stat.Bavail * uint64(stat.Bsize)
	return int(freeBytes / (1024 * 1024)), nil
}
