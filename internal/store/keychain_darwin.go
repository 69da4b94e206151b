//go:build darwin

package store

import (
	"errors"

	"github.com/keybase/go-keychain"
)

// KeychainBackend provides macOS Keychain storage. A credential maps to a
// generic password item: service = credential name, account = user name.
type KeychainBackend struct {
	label string
}

// NewKeychainBackend creates a new macOS Keychain backend
func NewKeychainBackend() (Store, error) {
	return &KeychainBackend{
		label: DefaultService,
	}, nil
}

// Read retrieves a generic password item
func (k *KeychainBackend) Read(name string) (*Credential, error) {
	query := keychain.NewItem()
	query.SetSecClass(keychain.SecClassGenericPassword)
	query.SetService(name)
	query.SetMatchLimit(keychain.MatchLimitOne)
	query.SetReturnAttributes(true)
	query.SetReturnData(true)

	results, err := keychain.QueryItem(query)
	if err != nil {
		if errors.Is(err, keychain.ErrorItemNotFound) {
			return nil, NewStoreError("read", name, ErrNotFound)
		}
		return nil, NewStoreError("read", name, err)
	}
	if len(results) == 0 {
		return nil, NewStoreError("read", name, ErrNotFound)
	}

	return &Credential{
		Name:     name,
		Username: results[0].Account,
		Secret:   string(results[0].Data),
	}, nil
}

// Write replaces the item for cred.Name. The keychain has no roaming scope
// that works for unsigned binaries, so every persistence is stored locally.
func (k *KeychainBackend) Write(cred Credential, persist Persistence) error {
	if err := validateName(cred.Name); err != nil {
		return NewStoreError("write", cred.Name, err)
	}

	// First try to delete any existing item
	if err := k.Delete(cred.Name); err != nil {
		return NewStoreError("write", cred.Name, err)
	}

	item := keychain.NewGenericPassword(cred.Name, cred.Username, k.label, []byte(cred.Secret), "")
	item.SetSynchronizable(keychain.SynchronizableNo)
	if persist == Session {
		item.SetAccessible(keychain.AccessibleWhenUnlockedThisDeviceOnly)
	} else {
		item.SetAccessible(keychain.AccessibleAfterFirstUnlock)
	}

	if err := keychain.AddItem(item); err != nil {
		return NewStoreError("write", cred.Name, err)
	}
	return nil
}

// Delete removes every generic password item for name
func (k *KeychainBackend) Delete(name string) error {
	item := keychain.NewItem()
	item.SetSecClass(keychain.SecClassGenericPassword)
	item.SetService(name)

	err := keychain.DeleteItem(item)
	if err != nil && !errors.Is(err, keychain.ErrorItemNotFound) {
		return NewStoreError("delete", name, err)
	}
	return nil
}

// Enumerate lists all generic password items without their data
func (k *KeychainBackend) Enumerate() ([]Entry, error) {
	query := keychain.NewItem()
	query.SetSecClass(keychain.SecClassGenericPassword)
	query.SetMatchLimit(keychain.MatchLimitAll)
	query.SetReturnAttributes(true)

	results, err := keychain.QueryItem(query)
	if err != nil {
		if errors.Is(err, keychain.ErrorItemNotFound) {
			return []Entry{}, nil
		}
		return nil, NewStoreError("enumerate", "", err)
	}

	entries := make([]Entry, 0, len(results))
	for _, item := range results {
		if item.Service == "" {
			continue
		}
		entries = append(entries, Entry{
			Name:     item.Service,
			Username: item.Account,
		})
	}
	return entries, nil
}

// Close is a no-op
func (k *KeychainBackend) Close() error {
	return nil
}
