package services

import (
	"context"
	"errors"
	"fmt"

	"atlasync/internal/core/ports"
)

// RemoteStatusCondition error constants
var (
	ErrRemoteStatusConditionNil    = errors.New("remote status condition cannot be nil")
	ErrRemoteStatusConditionCtxNil = errors.New("context cannot be nil")
	ErrRemoteStatusSessionNil      = errors.New("ssh session cannot be nil")
	ErrRemoteNotRunning            = errors.New("remote server is not running")
)

// RemoteStatusCondition checks the remote server's status by running the
// configured status command over an existing SSH session. Used by the
// sync orchestrator's post-start phase to poll until the server reports
// running. The pre-stop phase does not use it.
type RemoteStatusCondition struct {
	session       ports.SSHSession
	statusCommand string
	wantRunning   bool
}

// Compile-time check to ensure RemoteStatusCondition implements ports.ConditionService
var _ ports.ConditionService = (*RemoteStatusCondition)(nil)

// NewRemoteStatusCondition creates a new remote status condition.
// wantRunning selects whether Check succeeds when the status command's
// exit code is zero (true) or non-zero (false).
func NewRemoteStatusCondition(session ports.SSHSession, statusCommand string, wantRunning bool) (*RemoteStatusCondition, error) {
	if session == nil {
		return nil, ErrRemoteStatusSessionNil
	}
	if statusCommand == "" {
		return nil, errors.New("status command cannot be empty")
	}

	return &RemoteStatusCondition{
		session:       session,
		statusCommand: statusCommand,
		wantRunning:   wantRunning,
	}, nil
}

// Check runs the status command and compares its exit code against the
// desired running state.
func (c *RemoteStatusCondition) Check(ctx context.Context) error {
	if c == nil {
		return ErrRemoteStatusConditionNil
	}
	if ctx == nil {
		return ErrRemoteStatusConditionCtxNil
	}

	_, exitCode, err := c.session.Exec(ctx, c.statusCommand)
	if err != nil {
		return fmt.Errorf("failed to run status command: %w", err)
	}

	isRunning := exitCode == 0
	if isRunning != c.wantRunning {
		return ErrRemoteNotRunning
	}

	return nil
}
