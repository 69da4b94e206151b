package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// Default iterations for PBKDF2
	pbkdf2Iterations = 100000
	// Salt size in bytes
	saltSize = 32
	// Key size for AES-256
	keySize = 32
)

// FallbackBackend provides encrypted file-based credential storage for
// platforms without a usable keyring
type FallbackBackend struct {
	filepath string
	key      []byte
	creds    map[string]fileRecord
	mu       sync.RWMutex
}

type fileRecord struct {
	Username string `json:"username"`
	Secret   string `json:"secret"`
	Persist  string `json:"persist"`
}

type encryptedData struct {
	Salt   []byte `json:"salt"`
	Nonce  []byte `json:"nonce"`
	Cipher []byte `json:"cipher"`
}

// DefaultFallbackFile returns ~/.credential-store/credentials.enc
func DefaultFallbackFile() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".credential-store", "credentials.enc")
}

// NewFallbackBackend opens (or creates) the encrypted file at storagePath
func NewFallbackBackend(storagePath string) (Store, error) {
	if storagePath == "" {
		storagePath = DefaultFallbackFile()
	}
	return newFallbackBackend(storagePath, deriveKey())
}

func newFallbackBackend(storagePath string, key []byte) (*FallbackBackend, error) {
	if err := os.MkdirAll(filepath.Dir(storagePath), 0700); err != nil {
		return nil, fmt.Errorf("create credential directory: %w", err)
	}

	backend := &FallbackBackend{
		filepath: storagePath,
		key:      key,
		creds:    make(map[string]fileRecord),
	}
	if err := backend.load(); err != nil {
		return nil, fmt.Errorf("load %s: %w", storagePath, err)
	}
	return backend, nil
}

// Read retrieves a credential
func (f *FallbackBackend) Read(name string) (*Credential, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	rec, ok := f.creds[name]
	if !ok {
		return nil, NewStoreError("read", name, ErrNotFound)
	}
	return &Credential{
		Name:     name,
		Username: rec.Username,
		Secret:   rec.Secret,
	}, nil
}

// Write stores a credential. Session credentials are kept in memory only.
func (f *FallbackBackend) Write(cred Credential, persist Persistence) error {
	if err := validateName(cred.Name); err != nil {
		return NewStoreError("write", cred.Name, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.creds[cred.Name] = fileRecord{
		Username: cred.Username,
		Secret:   cred.Secret,
		Persist:  persist.String(),
	}
	if err := f.save(); err != nil {
		return NewStoreError("write", cred.Name, err)
	}
	return nil
}

// Delete removes a credential
func (f *FallbackBackend) Delete(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.creds[name]; !ok {
		return nil
	}
	delete(f.creds, name)
	if err := f.save(); err != nil {
		return NewStoreError("delete", name, err)
	}
	return nil
}

// Enumerate returns all credentials sorted by name
func (f *FallbackBackend) Enumerate() ([]Entry, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	entries := make([]Entry, 0, len(f.creds))
	for name, rec := range f.creds {
		entries = append(entries, Entry{
			Name:       name,
			Username:   rec.Username,
			SecretSize: len(rec.Secret),
		})
	}
	sortEntries(entries)
	return entries, nil
}

// Close is a no-op; every write is flushed immediately
func (f *FallbackBackend) Close() error {
	return nil
}

// save encrypts and saves the persistent credentials to disk
func (f *FallbackBackend) save() error {
	persistent := make(map[string]fileRecord, len(f.creds))
	for name, rec := range f.creds {
		if rec.Persist == Session.String() {
			continue
		}
		persistent[name] = rec
	}

	data, err := json.Marshal(persistent)
	if err != nil {
		return err
	}

	encrypted, err := f.encrypt(data)
	if err != nil {
		return err
	}

	return os.WriteFile(f.filepath, encrypted, 0600)
}

// load decrypts and loads credentials from disk
func (f *FallbackBackend) load() error {
	data, err := os.ReadFile(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No credentials file yet, that's okay
		}
		return err
	}

	decrypted, err := f.decrypt(data)
	if err != nil {
		return err
	}

	return json.Unmarshal(decrypted, &f.creds)
}

// encrypt encrypts data using AES-256-GCM
func (f *FallbackBackend) encrypt(plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}

	key := pbkdf2.Key(f.key, salt, pbkdf2Iterations, keySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	envelope := encryptedData{
		Salt:   salt,
		Nonce:  nonce,
		Cipher: gcm.Seal(nil, nonce, plaintext, nil),
	}

	return json.Marshal(envelope)
}

// decrypt decrypts data using AES-256-GCM
func (f *FallbackBackend) decrypt(data []byte) ([]byte, error) {
	var envelope encryptedData
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}

	key := pbkdf2.Key(f.key, envelope.Salt, pbkdf2Iterations, keySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(envelope.Nonce) != gcm.NonceSize() {
		return nil, errors.New("invalid nonce size")
	}

	return gcm.Open(nil, envelope.Nonce, envelope.Cipher, nil)
}

// deriveKey creates a deterministic key from machine-specific data
func deriveKey() []byte {
	homeDir, _ := os.UserHomeDir()
	hostname, _ := os.Hostname()

	seed := homeDir + ":" + hostname + ":credential-store"
	return pbkdf2.Key([]byte(seed), []byte("credential-store-salt"), pbkdf2Iterations, keySize, sha256.New)
}
