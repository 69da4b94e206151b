package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// indexAccount is the account under which the name index is kept
const indexAccount = "index"

// SecretServiceBackend provides Secret Service storage (GNOME Keyring, KWallet)
// through go-keyring. Items are stored as service = credential name and
// user = user name, the layout git-credential-libsecret style tools expect.
//
// go-keyring cannot list items, so the backend keeps its own index item
// (service = s.service, user = "index") mapping every name it has written
// to the user name it was written with.
type SecretServiceBackend struct {
	service string
}

// NewSecretServiceBackend creates a new Secret Service backend
func NewSecretServiceBackend(service string) (Store, error) {
	if service == "" {
		service = DefaultService
	}
	return &SecretServiceBackend{
		service: service,
	}, nil
}

// Read retrieves a credential through the index
func (s *SecretServiceBackend) Read(name string) (*Credential, error) {
	index, err := s.loadIndex()
	if err != nil {
		return nil, NewStoreError("read", name, err)
	}

	username, ok := index[name]
	if !ok {
		return nil, NewStoreError("read", name, ErrNotFound)
	}

	secret, err := keyring.Get(name, username)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, NewStoreError("read", name, ErrNotFound)
		}
		return nil, NewStoreError("read", name, err)
	}

	return &Credential{
		Name:     name,
		Username: username,
		Secret:   secret,
	}, nil
}

// Write stores a credential and records it in the index. Secret Service
// items have no persistence scope; they always outlive the session.
func (s *SecretServiceBackend) Write(cred Credential, persist Persistence) error {
	if err := validateName(cred.Name); err != nil {
		return NewStoreError("write", cred.Name, err)
	}
	// This pair is the index item itself
	if cred.Name == s.service && cred.Username == indexAccount {
		return NewStoreError("write", cred.Name, ErrReservedName)
	}

	index, err := s.loadIndex()
	if err != nil {
		return NewStoreError("write", cred.Name, err)
	}

	// A changed user name would leave the old item orphaned
	if previous, ok := index[cred.Name]; ok && previous != cred.Username {
		if err := keyring.Delete(cred.Name, previous); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return NewStoreError("write", cred.Name, err)
		}
	}

	if err := keyring.Set(cred.Name, cred.Username, cred.Secret); err != nil {
		return NewStoreError("write", cred.Name, err)
	}

	index[cred.Name] = cred.Username
	if err := s.saveIndex(index); err != nil {
		return NewStoreError("write", cred.Name, err)
	}
	return nil
}

// Delete removes a credential and its index entry
func (s *SecretServiceBackend) Delete(name string) error {
	index, err := s.loadIndex()
	if err != nil {
		return NewStoreError("delete", name, err)
	}

	username, ok := index[name]
	if !ok {
		return nil
	}

	err = keyring.Delete(name, username)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return NewStoreError("delete", name, err)
	}

	delete(index, name)
	if err := s.saveIndex(index); err != nil {
		return NewStoreError("delete", name, err)
	}
	return nil
}

// Enumerate returns the indexed credentials
func (s *SecretServiceBackend) Enumerate() ([]Entry, error) {
	index, err := s.loadIndex()
	if err != nil {
		return nil, NewStoreError("enumerate", "", err)
	}

	entries := make([]Entry, 0, len(index))
	for name, username := range index {
		entries = append(entries, Entry{
			Name:     name,
			Username: username,
		})
	}
	sortEntries(entries)
	return entries, nil
}

// Close is a no-op
func (s *SecretServiceBackend) Close() error {
	return nil
}

func (s *SecretServiceBackend) loadIndex() (map[string]string, error) {
	index := make(map[string]string)

	data, err := keyring.Get(s.service, indexAccount)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return index, nil // No credentials written yet
		}
		return nil, err
	}

	if err := json.Unmarshal([]byte(data), &index); err != nil {
		return nil, fmt.Errorf("corrupt credential index in service %q: %w", s.service, err)
	}
	return index, nil
}

func (s *SecretServiceBackend) saveIndex(index map[string]string) error {
	data, err := json.Marshal(index)
	if err != nil {
		return err
	}
	return keyring.Set(s.service, indexAccount, string(data))
}
