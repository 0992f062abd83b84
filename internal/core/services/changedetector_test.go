package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atlasync/internal/core/domain"
)

func TestFileChangeDetector_NilBaselineMeansChanges(t *testing.T) {
	detector, err := NewFileChangeDetector(NewFileHasher())
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "server.properties"), []byte("x"), 0644))

	policy, _ := domain.NewInclusionPolicy(domain.BackupModeFull)

	has, err := detector.HasUnsavedChanges(context.Background(), dir, nil, policy)
	require.NoError(t, err)
	assert.True(t, has)

	result, err := detector.DetectChanges(context.Background(), dir, nil, policy)
	require.NoError(t, err)
	assert.True(t, result.HasChanges)
}

func TestFileChangeDetector_FreshSaveHasNoChanges(t *testing.T) {
	detector, err := NewFileChangeDetector(NewFileHasher())
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "server.properties"), []byte("x"), 0644))

	policy, _ := domain.NewInclusionPolicy(domain.BackupModeFull)
	hash, err := NewFileHasher().HashFile(filepath.Join(dir, "server.properties"))
	require.NoError(t, err)

	baseline := &domain.ServerProfile{
		FileChecksums: []domain.FileChecksum{{Path: "server.properties", Hash: hash}},
	}

	has, err := detector.HasUnsavedChanges(context.Background(), dir, baseline, policy)
	require.NoError(t, err)
	assert.False(t, has)

	result, err := detector.DetectChanges(context.Background(), dir, baseline, policy)
	require.NoError(t, err)
	assert.False(t, result.HasChanges)
	assert.Equal(t, 1, result.UnchangedCount)
}

func TestFileChangeDetector_DetectsModification(t *testing.T) {
	detector, err := NewFileChangeDetector(NewFileHasher())
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "server.properties")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	hash, err := NewFileHasher().HashFile(path)
	require.NoError(t, err)
	baseline := &domain.ServerProfile{
		FileChecksums: []domain.FileChecksum{{Path: "server.properties", Hash: hash}},
	}

	require.NoError(t, os.WriteFile(path, []byte("changed"), 0644))

	policy, _ := domain.NewInclusionPolicy(domain.BackupModeFull)

	has, err := detector.HasUnsavedChanges(context.Background(), dir, baseline, policy)
	require.NoError(t, err)
	assert.True(t, has)

	result, err := detector.DetectChanges(context.Background(), dir, baseline, policy)
	require.NoError(t, err)
	assert.Contains(t, result.ModifiedPaths, "server.properties")
}

func TestFileChangeDetector_DetectsAddedAndRemoved(t *testing.T) {
	detector, err := NewFileChangeDetector(NewFileHasher())
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.txt"), []byte("x"), 0644))

	baseline := &domain.ServerProfile{
		FileChecksums: []domain.FileChecksum{{Path: "gone.txt", Hash: "deadbeef"}},
	}

	policy, _ := domain.NewInclusionPolicy(domain.BackupModeFull)
	result, err := detector.DetectChanges(context.Background(), dir, baseline, policy)
	require.NoError(t, err)
	assert.Contains(t, result.AddedPaths, "new.txt")
	assert.Contains(t, result.RemovedPaths, "gone.txt")
	assert.True(t, result.HasChanges)
}

func TestNewFileChangeDetector_NilHasher(t *testing.T) {
	_, err := NewFileChangeDetector(nil)
	assert.ErrorIs(t, err, ErrChangeDetectorHasherNil)
}
