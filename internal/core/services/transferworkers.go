package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"sync"

	"atlasync/internal/core/domain"
	"atlasync/internal/core/ports"
)

// TransferWorkerPool error constants.
var (
	ErrWorkerPoolNil        = errors.New("transfer worker pool cannot be nil")
	ErrWorkerPoolSessionNil = errors.New("ssh session cannot be nil")
)

// ScpWorkerPool runs a bounded set of goroutines over a shared task
// queue, each uploading one FileUploadTask at a time: either over the
// live SSHSession's SFTP subsystem, or by shelling out to the scp
// binary when cfg.UseFastTransfer is set, so one worker never blocks
// another's independent channel.
type ScpWorkerPool struct {
	session  ports.SSHSession
	executor ports.CommandExecutor
	cfg      domain.RemoteSyncConfig
}

// Compile-time check to ensure ScpWorkerPool implements ports.TransferWorkerPool
var _ ports.TransferWorkerPool = (*ScpWorkerPool)(nil)

// NewScpWorkerPool creates a new ScpWorkerPool. executor may be nil if
// cfg.UseFastTransfer is never set; it is only needed for the scp
// fallback path.
func NewScpWorkerPool(session ports.SSHSession, executor ports.CommandExecutor, cfg domain.RemoteSyncConfig) (*ScpWorkerPool, error) {
	if session == nil {
		return nil, ErrWorkerPoolSessionNil
	}
	return &ScpWorkerPool{session: session, executor: executor, cfg: cfg}, nil
}

// Run uploads every task across a pool of cfg.ParallelTransferCount
// workers, reporting aggregate progress after each task completes.
// Cancellation stops handing out new tasks; in-flight uploads are
// allowed to finish or fail on their own.
func (p *ScpWorkerPool) Run(ctx context.Context, tasks []domain.FileUploadTask, progress func(domain.SyncProgress)) ([]domain.FileUploadTask, int, int64, error) {
	if p == nil {
		return nil, 0, 0, ErrWorkerPoolNil
	}

	if p.cfg.UseFastTransfer {
		if err := p.precreateRemoteDirs(ctx, tasks); err != nil {
			return nil, 0, 0, fmt.Errorf("failed to pre-create remote directories: %w", err)
		}
	}

	workerCount := p.cfg.ParallelTransferCount
	if workerCount < 1 {
		workerCount = 1
	}
	if workerCount > len(tasks) && len(tasks) > 0 {
		workerCount = len(tasks)
	}

	var totalBytes int64
	for _, task := range tasks {
		totalBytes += task.SizeBytes
	}

	queue := make(chan domain.FileUploadTask)
	go func() {
		defer close(queue)
		for _, task := range tasks {
			if ctx.Err() != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case queue <- task:
			}
		}
	}()

	var (
		mu             sync.Mutex
		failed         []domain.FileUploadTask
		completed      int
		bytesSent      int64
		progressCursor = domain.SyncProgress{Phase: "upload", FilesTotal: len(tasks), BytesTotal: totalBytes}
	)

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range queue {
				uploadErr := p.uploadOne(ctx, task)

				mu.Lock()
				if uploadErr != nil {
					failed = append(failed, task)
				} else {
					completed++
					bytesSent += task.SizeBytes
				}
				progressCursor.FilesCompleted = completed
				progressCursor.BytesTransferred = bytesSent
				if progress != nil {
					progress(progressCursor)
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	return failed, completed, bytesSent, nil
}

// precreateRemoteDirs walks every task's destination directory once,
// over the pool's shared session, before any worker starts uploading.
// This avoids a race where two fast-transfer workers both try to mkdir
// the same remote directory concurrently via independent scp processes.
func (p *ScpWorkerPool) precreateRemoteDirs(ctx context.Context, tasks []domain.FileUploadTask) error {
	seen := make(map[string]bool)
	for _, task := range tasks {
		dir := path.Dir(task.RemotePath)
		if seen[dir] {
			continue
		}
		seen[dir] = true
		if err := p.session.Mkdirp(ctx, dir); err != nil {
			return err
		}
	}
	return nil
}

func (p *ScpWorkerPool) uploadOne(ctx context.Context, task domain.FileUploadTask) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if !p.cfg.UseFastTransfer {
		return p.session.SFTPPut(ctx, task.LocalPath, task.RemotePath)
	}

	if p.executor == nil {
		return fmt.Errorf("fast transfer requested but no command executor is configured")
	}

	dest := fmt.Sprintf("%s@%s:%s", p.cfg.Username, p.cfg.Host, task.RemotePath)
	args := []string{
		"-P", strconv.Itoa(p.cfg.Port),
		"-o", "StrictHostKeyChecking=no",
		task.LocalPath,
		dest,
	}
	if err := p.executor.Execute("scp", args, filepath.Dir(task.LocalPath)); err != nil {
		return fmt.Errorf("scp upload of %s failed: %w", task.LocalPath, err)
	}
	return nil
}
