package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"atlasync/internal/config"
	"atlasync/internal/core/domain"
	"atlasync/internal/core/ports"
)

// SyncOrchestrator error constants.
var (
	ErrOrchestratorNil        = errors.New("sync orchestrator cannot be nil")
	ErrOrchestratorSessionNil = errors.New("ssh session cannot be nil")
	ErrOrchestratorWorkersNil = errors.New("transfer worker pool cannot be nil")
	ErrOrchestratorLoggerNil  = errors.New("logger cannot be nil")
)

// Orchestrator drives the full local-to-remote sync pipeline over one
// already-authenticated SSHSession, as six phases: pre-stop, version
// manifest, clean, enumerate, upload, post-start.
type Orchestrator struct {
	session ports.SSHSession
	workers ports.TransferWorkerPool
	logger  ports.Logger

	mu       sync.Mutex
	cancelFn context.CancelFunc
}

// Compile-time check to ensure Orchestrator implements ports.SyncOrchestrator
var _ ports.SyncOrchestrator = (*Orchestrator)(nil)

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(session ports.SSHSession, workers ports.TransferWorkerPool, logger ports.Logger) (*Orchestrator, error) {
	if session == nil {
		return nil, ErrOrchestratorSessionNil
	}
	if workers == nil {
		return nil, ErrOrchestratorWorkersNil
	}
	if logger == nil {
		return nil, ErrOrchestratorLoggerNil
	}
	return &Orchestrator{session: session, workers: workers, logger: logger}, nil
}

// Cancel requests that an in-flight Run stop at its next safe point. A
// Cancel with no Run in progress is a no-op.
func (o *Orchestrator) Cancel() {
	if o == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancelFn != nil {
		o.cancelFn()
	}
}

// Run executes the sync pipeline against serverRoot. Which subtrees are
// cleaned and uploaded comes entirely from cfg's per-subtree flags.
func (o *Orchestrator) Run(ctx context.Context, serverRoot string, cfg domain.RemoteSyncConfig) (domain.SyncResult, error) {
	if o == nil {
		return domain.SyncResult{}, ErrOrchestratorNil
	}
	if err := cfg.Validate(); err != nil {
		return domain.SyncResult{}, fmt.Errorf("invalid remote sync config: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, config.SyncCeiling*time.Second)
	o.mu.Lock()
	o.cancelFn = cancel
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.cancelFn = nil
		o.mu.Unlock()
		cancel()
	}()

	result := domain.SyncResult{StartedAt: time.Now()}

	if err := o.preStop(runCtx, cfg); err != nil {
		return o.finish(result, err)
	}

	if cfg.SyncVersion {
		if err := o.writeVersionManifest(runCtx, cfg); err != nil {
			return o.finish(result, err)
		}
	}

	if cfg.CleanBeforeSync {
		if err := o.clean(runCtx, cfg); err != nil {
			return o.finish(result, err)
		}
	}

	tasks, err := enumerateUploadTasks(serverRoot, cfg)
	if err != nil {
		return o.finish(result, fmt.Errorf("failed to enumerate files to upload: %w", err))
	}

	failed, completed, bytesSent, err := o.workers.Run(runCtx, tasks, func(p domain.SyncProgress) {
		o.logger.Debug("sync upload progress", "phase", p.Phase, "percent", p.Percent())
	})
	if err != nil {
		return o.finish(result, fmt.Errorf("upload phase failed: %w", err))
	}
	result.FilesTransferred = completed
	result.BytesTransferred = bytesSent
	result.FailedUploads = failed

	if runCtx.Err() != nil {
		result.Cancelled = true
		return o.finish(result, runCtx.Err())
	}

	if cfg.RestartAfterSync {
		if err := o.postStart(runCtx, cfg); err != nil {
			return o.finish(result, err)
		}
	}

	result.Success = len(failed) == 0
	return o.finish(result, nil)
}

func (o *Orchestrator) finish(result domain.SyncResult, err error) (domain.SyncResult, error) {
	result.FinishedAt = time.Now()
	result.Err = err
	if err != nil && !result.Cancelled {
		result.Success = false
	}
	return result, err
}

func (o *Orchestrator) preStop(ctx context.Context, cfg domain.RemoteSyncConfig) error {
	o.logger.Info("sync: stopping remote server", "command", cfg.StopCommand)
	_, exitCode, err := o.session.Exec(ctx, cfg.StopCommand)
	if err != nil {
		return fmt.Errorf("failed to run stop command: %w", err)
	}
	if exitCode != 0 {
		o.logger.Warn("sync: stop command returned non-zero", "exitCode", exitCode)
	}
	return nil
}

// writeVersionManifest records the Minecraft version and loader the
// synced server root is running, via a heredoc so the remote side
// never needs its own file-upload mechanism for one small text file.
func (o *Orchestrator) writeVersionManifest(ctx context.Context, cfg domain.RemoteSyncConfig) error {
	lines := []string{
		"# Auto-generated",
		"MC_VERSION=" + cfg.MCVersion,
		"MC_TYPE=" + string(cfg.Loader),
	}
	if envVar := cfg.Loader.VersionEnvVar(); envVar != "" && cfg.LoaderVersion != "" {
		lines = append(lines, envVar+"="+cfg.LoaderVersion)
	}

	command := fmt.Sprintf("cat > %s/.atlauncher.env <<'EOF'\n%s\nEOF", cfg.RemotePath, strings.Join(lines, "\n"))

	_, exitCode, err := o.session.Exec(ctx, command)
	if err != nil {
		return fmt.Errorf("failed to write version manifest: %w", err)
	}
	if exitCode != 0 {
		return fmt.Errorf("version manifest write exited %d", exitCode)
	}
	return nil
}

// cleanableSubtrees lists the selected subtrees clean is allowed to
// touch. world/ is never included regardless of cfg.SyncWorld: the
// clean phase must not wipe saved game state.
func cleanableSubtrees(cfg domain.RemoteSyncConfig) []string {
	var subtrees []string
	if cfg.SyncMods {
		subtrees = append(subtrees, "mods")
	}
	if cfg.SyncConfigs {
		subtrees = append(subtrees, "config")
	}
	if cfg.SyncPlugins {
		subtrees = append(subtrees, "plugins")
	}
	return subtrees
}

// clean removes the contents of each selected, cleanable remote
// subtree before upload, one rm -rf per subtree. world/ is never
// cleaned: its command is simply never issued. rm -rf is used
// deliberately rather than a slower enumerate-then-delete walk — the
// remote path is always a dedicated server directory, never a shared
// one, so the blast radius is already bounded by configuration.
func (o *Orchestrator) clean(ctx context.Context, cfg domain.RemoteSyncConfig) error {
	for _, subtree := range cleanableSubtrees(cfg) {
		command := fmt.Sprintf("rm -rf %s/%s/*", cfg.RemotePath, subtree)
		o.logger.Info("sync: cleaning remote subtree", "path", cfg.RemotePath, "subtree", subtree)
		_, exitCode, err := o.session.Exec(ctx, command)
		if err != nil {
			return fmt.Errorf("failed to clean remote subtree %s: %w", subtree, err)
		}
		if exitCode != 0 {
			return fmt.Errorf("clean command for subtree %s exited %d", subtree, exitCode)
		}
	}
	return nil
}

func (o *Orchestrator) postStart(ctx context.Context, cfg domain.RemoteSyncConfig) error {
	o.logger.Info("sync: starting remote server", "command", cfg.StartCommand)
	_, exitCode, err := o.session.Exec(ctx, cfg.StartCommand)
	if err != nil {
		return fmt.Errorf("failed to run start command: %w", err)
	}
	if exitCode != 0 {
		return fmt.Errorf("start command exited %d", exitCode)
	}

	condition, err := NewRemoteStatusCondition(o.session, cfg.StatusCommand, true)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(config.RemoteStatusPollInterval * time.Second)
	defer ticker.Stop()

	for {
		if err := condition.Check(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// subtreeMatches reports whether relPath (forward-slash, relative to
// the server root) falls under the named subtree: an exact match for
// the bare file "server.properties", a prefix match for directories.
func subtreeMatches(subtree, relPath string) bool {
	if subtree == "server.properties" {
		return relPath == subtree
	}
	return relPath == subtree || strings.HasPrefix(relPath, subtree+"/")
}

// enumerateUploadTasks walks serverRoot and maps every file under a
// selected subtree onto its destination path under cfg.RemotePath. It
// fails with domain.ErrNothingSelected when cfg selects no subtree at
// all, rather than silently uploading nothing.
func enumerateUploadTasks(serverRoot string, cfg domain.RemoteSyncConfig) ([]domain.FileUploadTask, error) {
	subtrees := cfg.SelectedSubtrees()
	if len(subtrees) == 0 {
		return nil, domain.ErrNothingSelected
	}

	var tasks []domain.FileUploadTask

	err := filepath.Walk(serverRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(serverRoot, path)
		if err != nil {
			return err
		}
		relPath = strings.ReplaceAll(relPath, "\\", "/")

		selected := false
		for _, subtree := range subtrees {
			if subtreeMatches(subtree, relPath) {
				selected = true
				break
			}
		}
		if !selected {
			return nil
		}

		tasks = append(tasks, domain.FileUploadTask{
			LocalPath:  path,
			RemotePath: cfg.RemotePath + "/" + relPath,
			SizeBytes:  info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return tasks, nil
}
