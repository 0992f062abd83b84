package domain

import (
	"net"
	"strconv"
)

// AuthMethod selects how the SSH session authenticates.
type AuthMethod string

const (
	AuthMethodKey      AuthMethod = "key"
	AuthMethodPassword AuthMethod = "password"
)

// IsValid reports whether m is a known auth method.
func (m AuthMethod) IsValid() bool {
	return m == AuthMethodKey || m == AuthMethodPassword
}

// SyncMode selects whether the remote lifecycle is driven purely by
// shell commands, or whether files are actually transferred.
type SyncMode string

const (
	SyncModeCommands SyncMode = "commands"
	SyncModeTransfer SyncMode = "transfer"
)

// IsValid reports whether m is a known sync mode.
func (m SyncMode) IsValid() bool {
	return m == SyncModeCommands || m == SyncModeTransfer
}

// RemoteSyncConfig describes how to reach and drive one remote server.
type RemoteSyncConfig struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Username   string `json:"username"`
	RemotePath string `json:"remotePath"`

	AuthMethod     AuthMethod `json:"authMethod"`
	PrivateKeyPath string     `json:"privateKeyPath,omitempty"`

	SyncMode SyncMode `json:"syncMode"`

	// Per-subtree sync flags: which parts of the server root this run
	// touches. Mods/Configs/Plugins drive both the clean phase and the
	// upload enumeration; ServerProperties and World are upload-only (the
	// clean phase never removes server.properties or world/).
	SyncServerProperties bool `json:"serverProperties"`
	SyncMods             bool `json:"mods"`
	SyncConfigs          bool `json:"configs"`
	SyncPlugins          bool `json:"plugins"`
	SyncWorld            bool `json:"world"`

	SyncVersion        bool `json:"syncVersion"`
	CleanBeforeSync     bool `json:"cleanBeforeSync"`
	RestartAfterSync    bool `json:"restartAfterSync"`
	UseFastTransfer     bool `json:"useFastTransfer"`
	ParallelTransferCount int `json:"parallelTransferCount"`

	// MCVersion/Loader/LoaderVersion feed the remote version manifest
	// when SyncVersion is set; otherwise unused.
	MCVersion     string `json:"mcVersion,omitempty"`
	Loader        Loader `json:"loader,omitempty"`
	LoaderVersion string `json:"loaderVersion,omitempty"`

	StatusCommand string `json:"statusCommand"`
	StartCommand  string `json:"startCommand"`
	StopCommand   string `json:"stopCommand"`

	ConnectionTimeoutMS int `json:"connectionTimeoutMs"`
}

// Validate enforces the invariants spec'd for a remote sync configuration.
func (c *RemoteSyncConfig) Validate() error {
	if c.Host == "" {
		return ErrEmptyHost
	}
	if c.Port <= 0 || c.Port > 65535 {
		return ErrInvalidPort
	}
	if c.Username == "" {
		return ErrEmptyUsername
	}
	if c.RemotePath == "" {
		return ErrEmptyRemotePath
	}
	if !c.AuthMethod.IsValid() {
		return ErrInvalidAuthMethod
	}
	if !c.SyncMode.IsValid() {
		return ErrInvalidSyncMode
	}
	if c.ParallelTransferCount < 1 || c.ParallelTransferCount > 64 {
		return ErrInvalidWorkerCount
	}
	if c.StatusCommand == "" {
		return ErrEmptyStatusCommand
	}
	if c.StartCommand == "" {
		return ErrEmptyStartCommand
	}
	if c.StopCommand == "" {
		return ErrEmptyStopCommand
	}
	if c.ConnectionTimeoutMS <= 0 {
		return ErrInvalidTimeout
	}
	if c.SyncVersion {
		if c.MCVersion == "" {
			return ErrEmptyMCVersion
		}
		if !c.Loader.IsValid() {
			return ErrInvalidLoader
		}
	}
	return nil
}

// SelectedSubtrees returns the server-root-relative subtree names this
// config selects for sync, in a stable order. An empty result means
// nothing was selected.
func (c *RemoteSyncConfig) SelectedSubtrees() []string {
	var subtrees []string
	if c.SyncServerProperties {
		subtrees = append(subtrees, "server.properties")
	}
	if c.SyncMods {
		subtrees = append(subtrees, "mods")
	}
	if c.SyncConfigs {
		subtrees = append(subtrees, "config")
	}
	if c.SyncPlugins {
		subtrees = append(subtrees, "plugins")
	}
	if c.SyncWorld {
		subtrees = append(subtrees, "world")
	}
	return subtrees
}

// Address returns the "host:port" dial address for this config.
func (c *RemoteSyncConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
