package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atlasync/internal/core/domain"
	"atlasync/internal/testhelpers"
)

func uploadTasks(n int) []domain.FileUploadTask {
	tasks := make([]domain.FileUploadTask, n)
	for i := range tasks {
		tasks[i] = domain.FileUploadTask{
			LocalPath:  "/local/file.txt",
			RemotePath: "/remote/file.txt",
			SizeBytes:  10,
		}
	}
	return tasks
}

func TestScpWorkerPool_Run_SftpPath(t *testing.T) {
	session := testhelpers.NewFakeSSHSession()
	cfg := domain.RemoteSyncConfig{ParallelTransferCount: 3}

	pool, err := NewScpWorkerPool(session, nil, cfg)
	require.NoError(t, err)

	var lastProgress domain.SyncProgress
	failed, completed, bytesSent, err := pool.Run(context.Background(), uploadTasks(5), func(p domain.SyncProgress) {
		lastProgress = p
	})
	require.NoError(t, err)
	assert.Empty(t, failed)
	assert.Equal(t, 5, completed)
	assert.Equal(t, int64(50), bytesSent)
	assert.Equal(t, 5, lastProgress.FilesCompleted)
	assert.Len(t, session.Uploaded, 1) // same remote path each time, map collapses
}

func TestScpWorkerPool_Run_ScpFallback(t *testing.T) {
	session := testhelpers.NewFakeSSHSession()
	executor := testhelpers.NewFakeCommandExecutor()
	cfg := domain.RemoteSyncConfig{
		ParallelTransferCount: 2,
		UseFastTransfer:       true,
		Host:                  "example.com",
		Port:                  22,
		Username:              "mcserver",
	}

	pool, err := NewScpWorkerPool(session, executor, cfg)
	require.NoError(t, err)

	failed, completed, _, err := pool.Run(context.Background(), uploadTasks(4), nil)
	require.NoError(t, err)
	assert.Empty(t, failed)
	assert.Equal(t, 4, completed)
	assert.Equal(t, 4, executor.CallCount())
}

func TestScpWorkerPool_Run_CollectsFailures(t *testing.T) {
	session := testhelpers.NewFakeSSHSession()
	executor := testhelpers.NewFakeCommandExecutor()
	executor.FailErr = errors.New("scp exited 1")

	cfg := domain.RemoteSyncConfig{ParallelTransferCount: 2, UseFastTransfer: true}
	pool, err := NewScpWorkerPool(session, executor, cfg)
	require.NoError(t, err)

	failed, completed, _, err := pool.Run(context.Background(), uploadTasks(3), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, completed)
	assert.Len(t, failed, 3)
}

func TestScpWorkerPool_Run_FastTransferWithoutExecutor(t *testing.T) {
	session := testhelpers.NewFakeSSHSession()
	cfg := domain.RemoteSyncConfig{ParallelTransferCount: 1, UseFastTransfer: true}
	pool, err := NewScpWorkerPool(session, nil, cfg)
	require.NoError(t, err)

	failed, completed, _, err := pool.Run(context.Background(), uploadTasks(1), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, completed)
	assert.Len(t, failed, 1)
}

func TestScpWorkerPool_Run_RespectsCancellation(t *testing.T) {
	session := testhelpers.NewFakeSSHSession()
	cfg := domain.RemoteSyncConfig{ParallelTransferCount: 1}
	pool, err := NewScpWorkerPool(session, nil, cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A context cancelled before Run starts means the producer never
	// hands any task to a worker: nothing completes, nothing fails.
	failed, completed, _, err := pool.Run(ctx, uploadTasks(2), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, completed)
	assert.Empty(t, failed)
}

func TestNewScpWorkerPool_NilSession(t *testing.T) {
	_, err := NewScpWorkerPool(nil, nil, domain.RemoteSyncConfig{})
	assert.ErrorIs(t, err, ErrWorkerPoolSessionNil)
}
