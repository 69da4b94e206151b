package store

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

// KeyringBackend stores credentials through 99designs/keyring, which reaches
// pass, KWallet, keyctl and an encrypted file store besides the native ones.
// The user name is kept in the item description and the secret in its data.
type KeyringBackend struct {
	ring    keyring.Keyring
	service string
}

// NewKeyringBackend opens the keyring described by opts
func NewKeyringBackend(opts Options) (Store, error) {
	cfg := keyring.Config{
		ServiceName:      opts.Service,
		FileDir:          opts.KeyringFileDir,
		FilePasswordFunc: keyring.TerminalPrompt,
		PassPrefix:       opts.Service,
	}
	for _, name := range opts.KeyringBackends {
		cfg.AllowedBackends = append(cfg.AllowedBackends, keyring.BackendType(name))
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return newKeyringBackend(ring, opts.Service), nil
}

func newKeyringBackend(ring keyring.Keyring, service string) *KeyringBackend {
	return &KeyringBackend{
		ring:    ring,
		service: service,
	}
}

// Read retrieves a credential
func (k *KeyringBackend) Read(name string) (*Credential, error) {
	item, err := k.ring.Get(name)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return nil, NewStoreError("read", name, ErrNotFound)
		}
		return nil, NewStoreError("read", name, err)
	}

	return &Credential{
		Name:     name,
		Username: item.Description,
		Secret:   string(item.Data),
	}, nil
}

// Write stores a credential
func (k *KeyringBackend) Write(cred Credential, persist Persistence) error {
	if err := validateName(cred.Name); err != nil {
		return NewStoreError("write", cred.Name, err)
	}

	err := k.ring.Set(keyring.Item{
		Key:         cred.Name,
		Data:        []byte(cred.Secret),
		Label:       k.service + ": " + cred.Name,
		Description: cred.Username,
	})
	if err != nil {
		return NewStoreError("write", cred.Name, err)
	}
	return nil
}

// Delete removes a credential
func (k *KeyringBackend) Delete(name string) error {
	err := k.ring.Remove(name)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return NewStoreError("delete", name, err)
	}
	return nil
}

// Enumerate lists all keys and reads their metadata
func (k *KeyringBackend) Enumerate() ([]Entry, error) {
	keys, err := k.ring.Keys()
	if err != nil {
		return nil, NewStoreError("enumerate", "", err)
	}

	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		item, err := k.ring.Get(key)
		if err != nil {
			if errors.Is(err, keyring.ErrKeyNotFound) {
				continue // removed between Keys and Get
			}
			return nil, NewStoreError("enumerate", key, err)
		}
		entries = append(entries, Entry{
			Name:       key,
			Username:   item.Description,
			SecretSize: len(item.Data),
		})
	}
	sortEntries(entries)
	return entries, nil
}

// Close is a no-op; keyring handles are not closable
func (k *KeyringBackend) Close() error {
	return nil
}
