// Package testhelpers provides in-memory fakes of the ports interfaces
// for use in service-level tests, in place of a live SSH server or
// filesystem.
package testhelpers

import (
	"context"
	"fmt"
	"sync"

	"atlasync/internal/core/ports"
)

// FakeSSHSession is a scriptable in-memory ports.SSHSession. Exec
// responses are queued by command; unconfigured commands succeed with
// empty output and exit code 0.
type FakeSSHSession struct {
	mu sync.Mutex

	// Responses maps an exact command string to a canned (output, exitCode, err).
	Responses map[string]FakeExecResult

	// Uploaded records every SFTPPut call, keyed by remote path.
	Uploaded map[string]string

	// Dirs records every Mkdirp call.
	Dirs []string

	// ExistingPaths are remote paths Exists should report as present.
	ExistingPaths map[string]bool

	Closed bool
	Execs  []string
}

// FakeExecResult is a canned response for one exec command.
type FakeExecResult struct {
	Output   string
	ExitCode int
	Err      error
}

// Compile-time check to ensure FakeSSHSession implements ports.SSHSession
var _ ports.SSHSession = (*FakeSSHSession)(nil)

// NewFakeSSHSession creates an empty FakeSSHSession.
func NewFakeSSHSession() *FakeSSHSession {
	return &FakeSSHSession{
		Responses:     map[string]FakeExecResult{},
		Uploaded:      map[string]string{},
		ExistingPaths: map[string]bool{},
	}
}

func (f *FakeSSHSession) Exec(ctx context.Context, command string) (string, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Execs = append(f.Execs, command)
	if result, ok := f.Responses[command]; ok {
		return result.Output, result.ExitCode, result.Err
	}
	return "", 0, nil
}

func (f *FakeSSHSession) SFTPPut(ctx context.Context, localPath, remotePath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Uploaded[remotePath] = localPath
	f.ExistingPaths[remotePath] = true
	return nil
}

func (f *FakeSSHSession) Mkdirp(ctx context.Context, remotePath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Dirs = append(f.Dirs, remotePath)
	f.ExistingPaths[remotePath] = true
	return nil
}

func (f *FakeSSHSession) Exists(ctx context.Context, remotePath string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.ExistingPaths[remotePath], nil
}

func (f *FakeSSHSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Closed = true
	return nil
}

// SetResponse registers a canned result for an exact command string.
func (f *FakeSSHSession) SetResponse(command string, output string, exitCode int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Responses[command] = FakeExecResult{Output: output, ExitCode: exitCode}
}

// SetFailure registers a command that fails outright rather than
// returning a non-zero exit code.
func (f *FakeSSHSession) SetFailure(command string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Responses[command] = FakeExecResult{Err: err}
}

// ExecCount returns how many times Exec has been called, for
// assertions that care about call volume rather than content.
func (f *FakeSSHSession) ExecCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Execs)
}

func (f *FakeSSHSession) String() string {
	return fmt.Sprintf("FakeSSHSession{execs=%d, uploaded=%d}", len(f.Execs), len(f.Uploaded))
}
