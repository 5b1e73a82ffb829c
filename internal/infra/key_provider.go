package infra

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shieldtechhub/shieldagent/internal/domain"
)

const (
	keyFileName = ".key"
	keySize     = 32 // 256-bit key
)

// FileKeyProvider keeps the violation-database key in a hidden file with
// 0600 permissions, generated on first use.
type FileKeyProvider struct {
	keyPath string
}

func NewFileKeyProvider(dataDir string) *FileKeyProvider {
	return &FileKeyProvider{
		keyPath: filepath.Join(dataDir, keyFileName),
	}
}

// EnsureKey returns the stored key, creating and persisting a fresh random
// one when the key file does not exist yet.
func (p *FileKeyProvider) EnsureKey() ([]byte, error) {
	encoded, err := os.ReadFile(p.keyPath)
	if err == nil {
		key, err := base64.StdEncoding.DecodeString(string(encoded))
		if err != nil {
			return nil, fmt.Errorf("failed to decode key: %w", err)
		}
		if len(key) != keySize {
			return nil, fmt.Errorf("invalid key size: got %d, want %d", len(key), keySize)
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.keyPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create key directory: %w", err)
	}
	if err := os.WriteFile(p.keyPath, []byte(base64.StdEncoding.EncodeToString(key)), 0600); err != nil {
		return nil, fmt.Errorf("failed to write key file: %w", err)
	}
	return key, nil
}

var _ domain.KeyProvider = (*FileKeyProvider)(nil)
