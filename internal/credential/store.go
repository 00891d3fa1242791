// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package credential persists the opaque bearer credential between runs.
//
// The credential is a single string token issued by the external auth
// provider. It is stored in one file under the config directory, written
// atomically with mode 0600 and sealed with AES-256-GCM under a
// PBKDF2-derived key. Expiry and refresh are not modeled; the backend owns
// credential lifetime.
package credential

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/astraleph/astra-tui/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// fileName is the credential file inside the config directory.
	fileName = "credential"

	// encryptedPrefix marks a sealed value (format: ENC:base64(salt|nonce|ciphertext)).
	encryptedPrefix = "ENC:"

	// nonceSize is the AES-GCM nonce size (96 bits).
	nonceSize = 12

	// keySize is the AES-256 key size.
	keySize = 32

	// saltSize is the PBKDF2 salt size.
	saltSize = 32

	// pbkdf2Iterations follows OWASP guidance for PBKDF2-SHA-256.
	pbkdf2Iterations = 600000
)

// Errors returned by the store.
var (
	// ErrNoCredential indicates no credential has been saved.
	ErrNoCredential = errors.New("no stored credential")

	// ErrCorrupt indicates the credential file could not be decoded or
	// failed authentication.
	ErrCorrupt = errors.New("stored credential is corrupt")
)

// =============================================================================
// STORE
// =============================================================================

// Store reads and writes the credential file. Construct one per process and
// inject it where needed; the store itself keeps no cached state.
type Store struct {
	path       string
	passphrase string
}

// NewStore creates a store rooted at dir (typically the config directory).
// The sealing passphrase is machine-derived; the file is an at-rest
// obfuscation barrier, not a substitute for OS file permissions.
func NewStore(dir string) *Store {
	return &Store{
		path:       filepath.Join(dir, fileName),
		passphrase: machinePassphrase(),
	}
}

// WithPassphrase overrides the sealing passphrase (used by tests).
func (s *Store) WithPassphrase(passphrase string) *Store {
	s.passphrase = passphrase
	return s
}

// Path returns the credential file location.
func (s *Store) Path() string { return s.path }

// Save seals and writes the credential atomically with mode 0600.
func (s *Store) Save(credential string) error {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return errors.New("credential is empty")
	}

	sealed, err := seal(credential, s.passphrase)
	if err != nil {
		return fmt.Errorf("failed to seal credential: %w", err)
	}

	if err := util.AtomicWriteFile(s.path, []byte(sealed), 0600); err != nil {
		return fmt.Errorf("failed to write credential: %w", err)
	}
	return nil
}

// Load reads and unseals the credential. Returns ErrNoCredential when no
// file exists.
func (s *Store) Load() (string, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoCredential
		}
		return "", fmt.Errorf("failed to read credential: %w", err)
	}

	value := strings.TrimSpace(string(raw))
	if value == "" {
		return "", ErrNoCredential
	}

	// Pre-sealing files (plain token) are still honored.
	if !strings.HasPrefix(value, encryptedPrefix) {
		return value, nil
	}

	credential, err := unseal(value, s.passphrase)
	if err != nil {
		return "", err
	}
	return credential, nil
}

// Clear removes the stored credential. Clearing a missing file is a no-op.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credential: %w", err)
	}
	return nil
}

// Exists reports whether a credential file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// =============================================================================
// SEALING
// =============================================================================

// seal encrypts a value as ENC:base64(salt|nonce|ciphertext).
func seal(value, passphrase string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key := pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, keySize, sha256.New)
	defer zeroBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nil, nonce, []byte(value), nil)

	blob := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, ciphertext...)

	return encryptedPrefix + base64.StdEncoding.EncodeToString(blob), nil
}

// unseal reverses seal. Authentication failure maps to ErrCorrupt.
func unseal(value, passphrase string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, encryptedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(blob) < saltSize+nonceSize+1 {
		return "", ErrCorrupt
	}

	salt := blob[:saltSize]
	nonce := blob[saltSize : saltSize+nonceSize]
	ciphertext := blob[saltSize+nonceSize:]

	key := pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, keySize, sha256.New)
	defer zeroBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrCorrupt
	}
	return string(plaintext), nil
}

// machinePassphrase derives a stable per-machine passphrase. Not a secret in
// the cryptographic sense; it keeps the token unreadable to casual copying.
func machinePassphrase() string {
	host, err := os.Hostname()
	if err != nil {
		host = "astra"
	}
	return fmt.Sprintf("astra:%s:%d", host, os.Getuid())
}

// zeroBytes zeros key material after use.
// SECURITY: Prevents key disclosure via crash dumps.
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
