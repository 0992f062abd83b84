package domain

import "errors"

// Sentinel errors shared across domain types.
var (
	ErrInvalidBackupMode   = errors.New("invalid backup mode")
	ErrInvalidProfileName  = errors.New("invalid profile name")
	ErrInvalidAuthMethod   = errors.New("invalid auth method")
	ErrInvalidSyncMode     = errors.New("invalid sync mode")
	ErrEmptyHost           = errors.New("host cannot be empty")
	ErrInvalidPort         = errors.New("port must be between 1 and 65535")
	ErrEmptyUsername       = errors.New("username cannot be empty")
	ErrEmptyRemotePath     = errors.New("remote path cannot be empty")
	ErrMissingKeyPath      = errors.New("private key path required for key auth")
	ErrInvalidWorkerCount  = errors.New("parallel transfer count must be between 1 and 64")
	ErrEmptyStatusCommand  = errors.New("status command cannot be empty")
	ErrEmptyStartCommand   = errors.New("start command cannot be empty")
	ErrEmptyStopCommand    = errors.New("stop command cannot be empty")
	ErrInvalidTimeout      = errors.New("connection timeout must be positive")
	ErrUnsupportedIndexVer = errors.New("unsupported profile index version")
	ErrEmptyMCVersion      = errors.New("mc version cannot be empty when syncing version")
	ErrInvalidLoader       = errors.New("invalid loader")
	ErrNothingSelected     = errors.New("no subtree selected for sync")
)
