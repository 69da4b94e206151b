//go:build windows

package store

import (
	"errors"

	"github.com/danieljoos/wincred"
)

// CredentialBackend provides Windows Credential Manager storage
type CredentialBackend struct{}

// NewCredentialBackend creates a new Windows Credential Manager backend
func NewCredentialBackend() (Store, error) {
	return &CredentialBackend{}, nil
}

// Read retrieves a generic credential
func (c *CredentialBackend) Read(name string) (*Credential, error) {
	cred, err := wincred.GetGenericCredential(name)
	if err != nil {
		if errors.Is(err, wincred.ErrElementNotFound) {
			return nil, NewStoreError("read", name, ErrNotFound)
		}
		return nil, NewStoreError("read", name, err)
	}

	secret, err := DecodeUTF16(cred.CredentialBlob)
	if err != nil {
		return nil, NewStoreError("read", name, err)
	}
	return &Credential{
		Name:     name,
		Username: cred.UserName,
		Secret:   secret,
	}, nil
}

// Write stores a generic credential. The blob is the UTF-16 password with
// no terminator, so its size is exactly twice the code unit count.
func (c *CredentialBackend) Write(cred Credential, persist Persistence) error {
	if err := validateName(cred.Name); err != nil {
		return NewStoreError("write", cred.Name, err)
	}

	blob, err := EncodeUTF16(cred.Secret)
	if err != nil {
		return NewStoreError("write", cred.Name, err)
	}

	wc := wincred.NewGenericCredential(cred.Name)
	wc.UserName = cred.Username
	wc.CredentialBlob = blob
	wc.Persist = winPersistence(persist)

	if err := wc.Write(); err != nil {
		return NewStoreError("write", cred.Name, err)
	}
	return nil
}

// Delete removes a generic credential
func (c *CredentialBackend) Delete(name string) error {
	cred, err := wincred.GetGenericCredential(name)
	if err != nil {
		if errors.Is(err, wincred.ErrElementNotFound) {
			return nil // Already deleted
		}
		return NewStoreError("delete", name, err)
	}

	if err := cred.Delete(); err != nil {
		return NewStoreError("delete", name, err)
	}
	return nil
}

// Enumerate lists every credential the user can see. The list can contain
// non-generic entries, which is why callers must not Read a name before
// they have decided it is one of theirs.
func (c *CredentialBackend) Enumerate() ([]Entry, error) {
	creds, err := wincred.List()
	if err != nil {
		return nil, NewStoreError("enumerate", "", err)
	}

	entries := make([]Entry, 0, len(creds))
	for _, cred := range creds {
		entries = append(entries, Entry{
			Name:       cred.TargetName,
			Username:   cred.UserName,
			SecretSize: len(cred.CredentialBlob),
		})
	}
	return entries, nil
}

// Close is a no-op
func (c *CredentialBackend) Close() error {
	return nil
}

func winPersistence(p Persistence) wincred.CredentialPersistence {
	switch p {
	case Session:
		return wincred.PersistSession
	case LocalMachine:
		return wincred.PersistLocalMachine
	default:
		return wincred.PersistEnterprise
	}
}
