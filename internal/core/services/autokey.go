package services

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"

	"atlasync/internal/config"
	"atlasync/internal/core/domain"
	"atlasync/internal/core/ports"
)

// AutoKeyManager error constants.
var (
	ErrAutoKeyManagerNil = errors.New("auto-key manager cannot be nil")
	ErrAutoKeyDialerNil  = errors.New("ssh dialer cannot be nil")
	ErrAutoKeyInstall    = errors.New("key install did not confirm success")
)

// Dialer opens an authenticated SSH session against cfg. AutoKeyManager
// depends on this function type rather than a concrete client so the
// service layer stays adapter-free; production wiring supplies a thin
// wrapper around adapters.Dial, tests supply a fake.
type Dialer func(ctx context.Context, cfg domain.RemoteSyncConfig, password string) (ports.SSHSession, error)

// AutoKeyManager generates and installs the RSA key pair AtlaSync uses
// to bootstrap key-based auth against a remote host, so a password only
// has to be entered once. Key material is generated directly on
// crypto/rsa, crypto/x509 and encoding/pem.
type AutoKeyManager struct {
	privatePath func() (string, error)
	publicPath  func() (string, error)
	dial        Dialer
}

// Compile-time check to ensure AutoKeyManager implements ports.AutoKeyLifecycle
var _ ports.AutoKeyLifecycle = (*AutoKeyManager)(nil)

// NewAutoKeyManager creates a new AutoKeyManager. dial is used only by
// Install, to open the password-authenticated session that copies the
// public key across.
func NewAutoKeyManager(dial Dialer) (*AutoKeyManager, error) {
	if dial == nil {
		return nil, ErrAutoKeyDialerNil
	}
	return &AutoKeyManager{
		privatePath: config.AutoKeyPrivatePath,
		publicPath:  config.AutoKeyPublicPath,
		dial:        dial,
	}, nil
}

// NewAutoKeyManagerAt is NewAutoKeyManager with the key pair rooted at a
// caller-chosen directory instead of ~/.ssh, for use in tests.
func NewAutoKeyManagerAt(keyDir string, dial Dialer) (*AutoKeyManager, error) {
	if dial == nil {
		return nil, ErrAutoKeyDialerNil
	}
	return &AutoKeyManager{
		privatePath: func() (string, error) { return filepath.Join(keyDir, config.AutoKeyPrivateName), nil },
		publicPath:  func() (string, error) { return filepath.Join(keyDir, config.AutoKeyPublicName), nil },
		dial:        dial,
	}, nil
}

// EnsureKey returns the existing key pair if one already parses
// successfully, generating a fresh RSA-4096 pair only when absent or
// unreadable. This makes repeated calls idempotent.
func (m *AutoKeyManager) EnsureKey() (string, string, error) {
	if m == nil {
		return "", "", ErrAutoKeyManagerNil
	}

	privatePath, err := m.privatePath()
	if err != nil {
		return "", "", err
	}
	publicPath, err := m.publicPath()
	if err != nil {
		return "", "", err
	}

	if keyPairValid(privatePath, publicPath) {
		return privatePath, publicPath, nil
	}

	if err := generateKeyPair(privatePath, publicPath); err != nil {
		return "", "", fmt.Errorf("failed to generate auto-key pair: %w", err)
	}

	return privatePath, publicPath, nil
}

func keyPairValid(privatePath, publicPath string) bool {
	privateBytes, err := os.ReadFile(privatePath)
	if err != nil {
		return false
	}
	if _, err := ssh.ParsePrivateKey(privateBytes); err != nil {
		return false
	}
	_, err = os.Stat(publicPath)
	return err == nil
}

func generateKeyPair(privatePath, publicPath string) error {
	if err := os.MkdirAll(filepath.Dir(privatePath), 0700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}

	key, err := rsa.GenerateKey(rand.Reader, config.AutoKeyBits)
	if err != nil {
		return fmt.Errorf("failed to generate rsa key: %w", err)
	}

	privatePEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	if err := os.WriteFile(privatePath, privatePEM, 0600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}

	publicKey, err := ssh.NewPublicKey(&key.PublicKey)
	if err != nil {
		return fmt.Errorf("failed to derive public key: %w", err)
	}
	publicBytes := ssh.MarshalAuthorizedKey(publicKey)
	if err := os.WriteFile(publicPath, publicBytes, 0644); err != nil {
		return fmt.Errorf("failed to write public key: %w", err)
	}

	return nil
}

// Install copies the auto-generated public key into the remote user's
// authorized_keys, over a password-authenticated session, and confirms
// success via a marker string rather than trusting a zero exit code
// alone (appends are not atomic across shells).
func (m *AutoKeyManager) Install(ctx context.Context, cfg domain.RemoteSyncConfig, password string) error {
	if m == nil {
		return ErrAutoKeyManagerNil
	}

	_, publicPath, err := m.EnsureKey()
	if err != nil {
		return err
	}

	publicKey, err := os.ReadFile(publicPath)
	if err != nil {
		return fmt.Errorf("failed to read public key: %w", err)
	}

	session, err := m.dial(ctx, cfg, password)
	if err != nil {
		return fmt.Errorf("failed to open password session: %w", err)
	}
	defer session.Close()

	command := fmt.Sprintf(
		`mkdir -p ~/.ssh && chmod 700 ~/.ssh && grep -qxF '%s' ~/.ssh/authorized_keys 2>/dev/null || echo '%s' >> ~/.ssh/authorized_keys && chmod 600 ~/.ssh/authorized_keys && echo %s`,
		strings.TrimSpace(string(publicKey)),
		strings.TrimSpace(string(publicKey)),
		config.InstallSuccessMark,
	)

	output, exitCode, err := session.Exec(ctx, command)
	if err != nil {
		return fmt.Errorf("failed to run key install command: %w", err)
	}
	if exitCode != 0 || !strings.Contains(output, config.InstallSuccessMark) {
		return fmt.Errorf("%w: exit %d, output %q", ErrAutoKeyInstall, exitCode, output)
	}

	return nil
}
