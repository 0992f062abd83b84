package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/term"

	"atlasync/internal/adapters"
	"atlasync/internal/config"
	"atlasync/internal/core/domain"
	"atlasync/internal/core/ports"
	"atlasync/internal/core/services"
)

// prompt sends a PromptEvent over the event channel and blocks for the
// consumer goroutine's response, falling back to defaultValue if the
// channel is nil (e.g. in non-interactive contexts).
func prompt(deps *appDependencies, id, text, defaultValue string) string {
	if deps.events == nil {
		return defaultValue
	}
	respChan := make(chan any, 1)
	ports.SendEvent(deps.events, ports.PromptEvent{
		ID:           id,
		Prompt:       text,
		DefaultValue: defaultValue,
		ResponseChan: respChan,
	})
	resp := <-respChan
	if s, ok := resp.(string); ok && s != "" {
		return s
	}
	return defaultValue
}

// promptPassword reads a password from the terminal without echoing it.
func promptPassword(text string) (string, error) {
	fmt.Print(text)
	bytePassword, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(bytePassword), nil
}

func actionSave(ctx context.Context, deps *appDependencies, args []string) error {
	name := argOrEmpty(args, 0)
	if name == "" {
		name = prompt(deps, "save-name", "Profile name", "")
	}
	description := argOrEmpty(args, 1)
	modeArg := argOrEmpty(args, 2)
	mode := domain.BackupMode(modeArg)
	if mode == "" {
		mode = domain.BackupModeFull
	}

	ports.SendEvent(deps.events, ports.StartEvent{Operation: "save"})
	profile, err := deps.profileStore.Save(ctx, deps.serverRoot, name, description, mode)
	if err != nil {
		ports.SendEvent(deps.events, ports.ErrorEvent{Operation: "save", Err: err})
		return err
	}
	ports.SendEvent(deps.events, ports.UpdateEvent{
		Operation: "save",
		Message:   fmt.Sprintf("saved profile %s (%s)", profile.Name, profile.ID),
	})
	ports.SendEvent(deps.events, ports.FinishEvent{Operation: "save"})
	return nil
}

func actionList(ctx context.Context, deps *appDependencies) error {
	profiles, err := deps.profileStore.List(ctx)
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		fmt.Println("no profiles saved")
		return nil
	}
	for _, p := range profiles {
		fmt.Printf("%s  %-20s  %-18s  %s\n", p.ID, p.Name, p.BackupMode, p.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func actionRestore(ctx context.Context, deps *appDependencies, args []string) error {
	profileID := argOrEmpty(args, 0)
	if profileID == "" {
		return fmt.Errorf("restore requires a profile id")
	}

	ports.SendEvent(deps.events, ports.StartEvent{Operation: "restore"})
	if err := deps.profileStore.Restore(ctx, deps.serverRoot, profileID); err != nil {
		ports.SendEvent(deps.events, ports.ErrorEvent{Operation: "restore", Err: err})
		return err
	}
	ports.SendEvent(deps.events, ports.FinishEvent{Operation: "restore"})
	return nil
}

func actionDelete(ctx context.Context, deps *appDependencies, args []string) error {
	profileID := argOrEmpty(args, 0)
	if profileID == "" {
		return fmt.Errorf("delete requires a profile id")
	}
	return deps.profileStore.Delete(ctx, profileID)
}

func actionStatus(ctx context.Context, deps *appDependencies) error {
	active, ok, err := deps.profileStore.Active(ctx)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("no active profile; treat server-root as having unsaved changes")
		return nil
	}

	policy, err := domain.NewInclusionPolicy(active.BackupMode)
	if err != nil {
		return err
	}

	result, err := deps.changeDetector.DetectChanges(ctx, deps.serverRoot, active, policy)
	if err != nil {
		return err
	}

	if !result.HasChanges {
		fmt.Println("no changes since last save")
		return nil
	}

	fmt.Printf("changes since %s: %d added, %d modified, %d removed, %d unchanged\n",
		active.Name, len(result.AddedPaths), len(result.ModifiedPaths), len(result.RemovedPaths), result.UnchangedCount)
	return nil
}

func loadSyncConfig(ctx context.Context, deps *appDependencies) (domain.RemoteSyncConfig, error) {
	var cfg domain.RemoteSyncConfig

	data, err := deps.storage.Get(ctx, config.SyncConfigFilename)
	if err == nil {
		if unmarshalErr := json.Unmarshal(data, &cfg); unmarshalErr != nil {
			return cfg, fmt.Errorf("failed to parse sync config: %w", unmarshalErr)
		}
		return cfg, nil
	}

	cfg = promptSyncConfig(deps)
	if saveErr := saveSyncConfig(ctx, deps, cfg); saveErr != nil {
		return cfg, saveErr
	}
	return cfg, nil
}

func saveSyncConfig(ctx context.Context, deps *appDependencies, cfg domain.RemoteSyncConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sync config: %w", err)
	}
	return deps.storage.Put(ctx, config.SyncConfigFilename, data)
}

func promptSyncConfig(deps *appDependencies) domain.RemoteSyncConfig {
	port, _ := strconv.Atoi(prompt(deps, "sync-port", "Remote SSH port", "22"))
	timeout, _ := strconv.Atoi(prompt(deps, "sync-timeout", "Connection timeout (ms)", strconv.Itoa(config.DefaultConnectionTimeoutMS)))
	parallel, _ := strconv.Atoi(prompt(deps, "sync-parallel", "Parallel transfer count", strconv.Itoa(config.DefaultParallelTransfers)))

	return domain.RemoteSyncConfig{
		Host:                  prompt(deps, "sync-host", "Remote host", ""),
		Port:                  port,
		Username:              prompt(deps, "sync-user", "Remote username", ""),
		RemotePath:            prompt(deps, "sync-remote-path", "Remote server path", ""),
		AuthMethod:            domain.AuthMethod(prompt(deps, "sync-auth", "Auth method (key|password)", "key")),
		PrivateKeyPath:        prompt(deps, "sync-keypath", "Private key path (blank for auto-key)", ""),
		SyncMode:              domain.SyncMode(prompt(deps, "sync-mode", "Sync mode (commands|transfer)", "transfer")),
		SyncServerProperties:  prompt(deps, "sync-server-properties", "Sync server.properties? (y/n)", "y") == "y",
		SyncMods:              prompt(deps, "sync-mods", "Sync mods/? (y/n)", "y") == "y",
		SyncConfigs:           prompt(deps, "sync-configs", "Sync config/? (y/n)", "y") == "y",
		SyncPlugins:           prompt(deps, "sync-plugins", "Sync plugins/? (y/n)", "n") == "y",
		SyncWorld:             prompt(deps, "sync-world", "Sync world/? (y/n)", "y") == "y",
		SyncVersion:           prompt(deps, "sync-version", "Write a version manifest on the remote? (y/n)", "y") == "y",
		CleanBeforeSync:       prompt(deps, "sync-clean", "Clean remote path before sync? (y/n)", "y") == "y",
		RestartAfterSync:      prompt(deps, "sync-restart", "Restart remote server after sync? (y/n)", "y") == "y",
		UseFastTransfer:       prompt(deps, "sync-fast", "Use scp fast-transfer path? (y/n)", "n") == "y",
		ParallelTransferCount: parallel,
		StatusCommand:         prompt(deps, "sync-status-cmd", "Remote status command", "systemctl is-active minecraft"),
		StartCommand:          prompt(deps, "sync-start-cmd", "Remote start command", "systemctl start minecraft"),
		StopCommand:           prompt(deps, "sync-stop-cmd", "Remote stop command", "systemctl stop minecraft"),
		ConnectionTimeoutMS:   timeout,
		MCVersion:             prompt(deps, "sync-mc-version", "Minecraft version", ""),
		Loader:                domain.Loader(prompt(deps, "sync-loader", "Loader (VANILLA|FORGE|NEOFORGE|FABRIC|QUILT|PAPER|PURPUR)", "VANILLA")),
		LoaderVersion:         prompt(deps, "sync-loader-version", "Loader version (blank if none)", ""),
	}
}

func resolveAuth(ctx context.Context, deps *appDependencies, cfg domain.RemoteSyncConfig) (domain.RemoteSyncConfig, string, error) {
	if cfg.AuthMethod == domain.AuthMethodKey && cfg.PrivateKeyPath == "" {
		autoKey, err := services.NewAutoKeyManager(dialSession)
		if err != nil {
			return cfg, "", err
		}
		privatePath, _, err := autoKey.EnsureKey()
		if err != nil {
			return cfg, "", fmt.Errorf("failed to ensure auto-key: %w", err)
		}
		cfg.PrivateKeyPath = privatePath
		return cfg, "", nil
	}

	password, err := promptPassword(fmt.Sprintf("Password for %s@%s: ", cfg.Username, cfg.Host))
	if err != nil {
		return cfg, "", err
	}
	return cfg, password, nil
}

func actionSync(ctx context.Context, deps *appDependencies) error {
	cfg, err := loadSyncConfig(ctx, deps)
	if err != nil {
		return err
	}
	cfg, password, err := resolveAuth(ctx, deps, cfg)
	if err != nil {
		return err
	}

	session, err := adapters.Dial(ctx, cfg, password)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer session.Close()

	executor := adapters.NewCommandExecutorAdapter()
	workers, err := services.NewScpWorkerPool(session, executor, cfg)
	if err != nil {
		return err
	}

	orchestrator, err := services.NewOrchestrator(session, workers, deps.logger)
	if err != nil {
		return err
	}

	ports.SendEvent(deps.events, ports.StartEvent{Operation: "sync"})
	result, err := orchestrator.Run(ctx, deps.serverRoot, cfg)
	if err != nil {
		ports.SendEvent(deps.events, ports.ErrorEvent{Operation: "sync", Err: err})
		return err
	}
	ports.SendEvent(deps.events, ports.UpdateEvent{
		Operation: "sync",
		Message:   fmt.Sprintf("transferred %d files (%d bytes) in %s", result.FilesTransferred, result.BytesTransferred, result.Duration()),
	})
	ports.SendEvent(deps.events, ports.FinishEvent{Operation: "sync"})
	return nil
}

func actionInstallKey(ctx context.Context, deps *appDependencies) error {
	cfg, err := loadSyncConfig(ctx, deps)
	if err != nil {
		return err
	}

	password, err := promptPassword(fmt.Sprintf("Password for %s@%s: ", cfg.Username, cfg.Host))
	if err != nil {
		return err
	}

	autoKey, err := services.NewAutoKeyManager(dialSession)
	if err != nil {
		return err
	}

	ports.SendEvent(deps.events, ports.StartEvent{Operation: "install-key"})
	if err := autoKey.Install(ctx, cfg, password); err != nil {
		ports.SendEvent(deps.events, ports.ErrorEvent{Operation: "install-key", Err: err})
		return err
	}
	ports.SendEvent(deps.events, ports.FinishEvent{Operation: "install-key"})

	cfg.AuthMethod = domain.AuthMethodKey
	privatePath, err := config.AutoKeyPrivatePath()
	if err == nil {
		cfg.PrivateKeyPath = privatePath
	}
	return saveSyncConfig(ctx, deps, cfg)
}

// dialSession adapts adapters.Dial's concrete *adapters.SSHClient return
// to the services.Dialer function type, which returns the ports.SSHSession
// interface so the service layer never imports the adapters package.
func dialSession(ctx context.Context, cfg domain.RemoteSyncConfig, password string) (ports.SSHSession, error) {
	return adapters.Dial(ctx, cfg, password)
}

func argOrEmpty(args []string, idx int) string {
	if idx < len(args) {
		return args[idx]
	}
	return ""
}
