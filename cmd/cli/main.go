package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sync"

	"atlasync/internal/adapters"
	"atlasync/internal/config"
	"atlasync/internal/core/ports"
	"atlasync/internal/core/services"
)

func main() {
	success := false
	defer func() {
		if !success {
			fmt.Println("\nPress Enter to exit...")
			bufio.NewReader(os.Stdin).ReadBytes('\n')
		}
	}()

	if len(os.Args) < 3 {
		printUsage()
		return
	}
	serverRoot := os.Args[1]
	action := os.Args[2]
	actionArgs := os.Args[3:]

	if err := os.MkdirAll(config.RootPath, config.DirPermission); err != nil {
		fmt.Printf("Failed to create root directory: %v\n", err)
		return
	}

	workRoot, err := os.OpenRoot(config.RootPath)
	if err != nil {
		fmt.Printf("Failed to open work root: %v\n", err)
		return
	}
	defer workRoot.Close()

	logFile, logCleanup, err := createLogFile(workRoot)
	if err != nil {
		fmt.Printf("Warning: failed to create log file: %v\n", err)
	}
	if logCleanup != nil {
		defer logCleanup()
	}

	events := make(chan ports.Event, 100)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		consumeEvents(events, logFile)
	}()
	defer func() {
		close(events)
		wg.Wait()
	}()

	logger := adapters.NewSlogLoggerFromExisting(nil)

	localStorage, err := adapters.NewFSRepository(workRoot.Name())
	if err != nil {
		fmt.Printf("Failed to create local storage: %v\n", err)
		return
	}
	defer localStorage.Close()

	hasher := services.NewFileHasher()

	archiveSvc, err := services.NewArchiveService(hasher)
	if err != nil {
		fmt.Printf("Failed to create archive service: %v\n", err)
		return
	}

	diskInfo := adapters.NewUnixDiskInfo()

	profileStore, err := services.NewFileStore(localStorage, archiveSvc, hasher, diskInfo, logger, workRoot.Name())
	if err != nil {
		fmt.Printf("Failed to create profile store: %v\n", err)
		return
	}

	changeDetector, err := services.NewFileChangeDetector(hasher)
	if err != nil {
		fmt.Printf("Failed to create change detector: %v\n", err)
		return
	}

	deps := &appDependencies{
		serverRoot:     serverRoot,
		storage:        localStorage,
		profileStore:   profileStore,
		changeDetector: changeDetector,
		logger:         logger,
		events:         events,
	}

	ctx := context.Background()
	if err := dispatch(ctx, deps, action, actionArgs); err != nil {
		fmt.Printf("%s failed: %v\n", action, err)
		return
	}

	success = true
}

func printUsage() {
	fmt.Println("usage: atlasyncdev <server-root> <save|list|restore|delete|status|sync|install-key> [args...]")
	fmt.Println("  save <name> [description] [mode]   snapshot server-root as a new profile (mode: NORMAL|NORMAL_PLUS_MODS|FULL)")
	fmt.Println("  list                                list saved profiles")
	fmt.Println("  restore <profile-id>                overlay a profile's files back onto server-root")
	fmt.Println("  delete <profile-id>                  delete a profile and its archive")
	fmt.Println("  status                               report whether server-root has unsaved changes")
	fmt.Println("  sync                                 push server-root to the configured remote host")
	fmt.Println("  install-key                           install the local auto-key on the configured remote host")
}

// appDependencies bundles the services every CLI action needs, built
// once in main and threaded through dispatch.
type appDependencies struct {
	serverRoot     string
	storage        ports.StorageRepository
	profileStore   ports.ProfileStore
	changeDetector ports.ChangeDetector
	logger         ports.Logger
	events         chan ports.Event
}

func dispatch(ctx context.Context, deps *appDependencies, action string, args []string) error {
	switch action {
	case "save":
		return actionSave(ctx, deps, args)
	case "list":
		return actionList(ctx, deps)
	case "restore":
		return actionRestore(ctx, deps, args)
	case "delete":
		return actionDelete(ctx, deps, args)
	case "status":
		return actionStatus(ctx, deps)
	case "sync":
		return actionSync(ctx, deps)
	case "install-key":
		return actionInstallKey(ctx, deps)
	default:
		printUsage()
		return fmt.Errorf("unknown action %q", action)
	}
}
