package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/crypto/scrypt"

	"devpilot/pkg/logx"
)

// Secrets file configuration.
const (
	SecretsFileName = "secrets.json.enc"
	saltSize        = 16
	nonceSize       = 12
	gcmTagSize      = 16
	scryptN         = 32768 // 2^15
	scryptR         = 8
	scryptP         = 1
	keySize         = 32 // AES-256
)

// ErrSecretNotFound is returned when neither the vault nor the environment has a value.
var ErrSecretNotFound = errors.New("secret not found")

// Vault holds decrypted secrets in memory. Lookups fall back to the environment.
// A nil *Vault is valid and only consults the environment.
type Vault struct {
	mu      sync.RWMutex
	secrets map[string]string
	root    string
	logger  *logx.Logger
}

// NewVault returns an empty vault for the workspace at root.
func NewVault(root string) *Vault {
	return &Vault{
		secrets: make(map[string]string),
		root:    root,
		logger:  logx.NewLogger("secrets"),
	}
}

// SecretsPath returns <root>/.devpilot/secrets.json.enc.
func SecretsPath(root string) string {
	return filepath.Join(Dir(root), SecretsFileName)
}

// SecretsFileExists reports whether the encrypted file is present.
func SecretsFileExists(root string) bool {
	_, err := os.Stat(SecretsPath(root))
	return err == nil
}

// Get returns name from the vault, then from the environment.
func (v *Vault) Get(name string) (string, error) {
	if v != nil {
		v.mu.RLock()
		value, ok := v.secrets[name]
		v.mu.RUnlock()
		if ok && value != "" {
			return value, nil
		}
	}
	if value := os.Getenv(name); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("%s: %w in secrets file or environment", name, ErrSecretNotFound)
}

func (v *Vault) Set(name, value string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.secrets[name] = value
}

func (v *Vault) Delete(name string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.secrets, name)
}

// Names returns the stored secret names, sorted. Values are never listed.
func (v *Vault) Names() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	names := make([]string, 0, len(v.secrets))
	for name := range v.secrets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unlock decrypts the secrets file into the vault.
func (v *Vault) Unlock(password string) error {
	secrets, err := v.decrypt(password)
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.secrets = secrets
	v.mu.Unlock()
	return nil
}

// Save encrypts the vault contents to the secrets file with 0600 permissions.
// The layout is salt | nonce | AES-GCM ciphertext.
func (v *Vault) Save(password string) error {
	v.mu.RLock()
	plaintext, err := json.Marshal(v.secrets)
	v.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal secrets: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}
	gcm, wipe, err := newGCM(password, salt)
	if err != nil {
		return err
	}
	defer wipe()

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	fileData := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	fileData = append(fileData, salt...)
	fileData = append(fileData, nonce...)
	fileData = append(fileData, ciphertext...)

	if err := os.MkdirAll(Dir(v.root), 0755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", ProjectConfigDir, err)
	}
	if err := os.WriteFile(SecretsPath(v.root), fileData, 0600); err != nil {
		return fmt.Errorf("failed to write secrets file: %w", err)
	}
	return nil
}

func (v *Vault) decrypt(password string) (map[string]string, error) {
	path := SecretsPath(v.root)
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat secrets file: %w", err)
	}
	if info.Mode().Perm() != 0600 {
		v.logger.Warn("secrets file has permissions %04o, resetting to 0600", info.Mode().Perm())
		if err := os.Chmod(path, 0600); err != nil {
			return nil, fmt.Errorf("failed to fix file permissions: %w", err)
		}
	}

	fileData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets file: %w", err)
	}
	if len(fileData) < saltSize+nonceSize+gcmTagSize {
		return nil, fmt.Errorf("secrets file is corrupted or invalid format (too small)")
	}

	salt := fileData[:saltSize]
	nonce := fileData[saltSize : saltSize+nonceSize]
	ciphertext := fileData[saltSize+nonceSize:]

	gcm, wipe, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}
	defer wipe()

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed (wrong password or corrupted file)")
	}

	secrets := make(map[string]string)
	if err := json.Unmarshal(plaintext, &secrets); err != nil {
		return nil, fmt.Errorf("failed to parse secrets: %w", err)
	}
	return secrets, nil
}

// newGCM derives the key with scrypt. The returned func zeroes the key material.
func newGCM(password string, salt []byte) (cipher.AEAD, func(), error) {
	passwordBytes := []byte(password)
	key, err := scrypt.Key(passwordBytes, salt, scryptN, scryptR, scryptP, keySize)
	zero(passwordBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}
	wipe := func() { zero(key) }

	block, err := aes.NewCipher(key)
	if err != nil {
		wipe()
		return nil, nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		wipe()
		return nil, nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, wipe, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
