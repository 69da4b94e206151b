// Package store wraps the platform credential stores behind one narrow interface.
//
// Only generic-type entries are visible: a name, the user name stored with
// it and the secret. Each backend owns the byte encoding of the secret.
package store

import (
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
)

// Persistence is the lifetime requested for a written credential
type Persistence int

const (
	// Session lasts until logoff
	Session Persistence = iota
	// LocalMachine survives reboots on this machine
	LocalMachine
	// Enterprise survives reboots and roams with the profile where supported
	Enterprise
)

func (p Persistence) String() string {
	switch p {
	case Session:
		return "session"
	case LocalMachine:
		return "local-machine"
	case Enterprise:
		return "enterprise"
	default:
		return fmt.Sprintf("persistence(%d)", int(p))
	}
}

// Credential is one generic-type entry
type Credential struct {
	Name     string
	Username string
	Secret   string
}

// Entry is one row of an enumeration snapshot. Secrets are never enumerated.
type Entry struct {
	Name       string
	Username   string
	SecretSize int
}

// Store is the set of primitives the rest of the tool consumes
type Store interface {
	// Read returns the named credential or ErrNotFound
	Read(name string) (*Credential, error)

	// Write creates or overwrites a credential
	Write(cred Credential, persist Persistence) error

	// Delete removes a credential; deleting a missing one is not an error
	Delete(name string) error

	// Enumerate returns a snapshot of all visible entries
	Enumerate() ([]Entry, error)

	// Close releases backend resources
	Close() error
}

// Backend names accepted by Open
const (
	BackendAuto          = "auto"
	BackendWinCred       = "wincred"
	BackendKeychain      = "keychain"
	BackendSecretService = "secret-service"
	BackendKeyring       = "keyring"
	BackendFile          = "file"
	BackendMemory        = "memory"
)

// Options selects and configures a backend
type Options struct {
	// Backend is one of the Backend* names; empty means auto
	Backend string

	// Service namespaces the secret-service index and the keyring backend
	Service string

	// KeyringBackends restricts the keyring backend (pass, kwallet, file, ...)
	KeyringBackends []string

	// KeyringFileDir is where the keyring "file" backend keeps its items
	KeyringFileDir string

	// FallbackFile is the encrypted file used by the file backend
	FallbackFile string

	Logger *slog.Logger
}

// DefaultService is the service name used when none is configured
const DefaultService = "credential-store"

// Backends lists the names accepted by Open, sorted
func Backends() []string {
	names := []string{
		BackendAuto,
		BackendWinCred,
		BackendKeychain,
		BackendSecretService,
		BackendKeyring,
		BackendFile,
		BackendMemory,
	}
	sort.Strings(names)
	return names
}

// Open creates the store named by opts.Backend
func Open(opts Options) (Store, error) {
	if opts.Service == "" {
		opts.Service = DefaultService
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	name := strings.ToLower(strings.TrimSpace(opts.Backend))
	if name == "" || name == BackendAuto {
		name = detectBackend()
	}
	opts.Logger.Debug("opening credential store", "backend", name)

	var (
		s   Store
		err error
	)
	switch name {
	case BackendWinCred:
		s, err = NewCredentialBackend()
	case BackendKeychain:
		s, err = NewKeychainBackend()
	case BackendSecretService:
		s, err = NewSecretServiceBackend(opts.Service)
	case BackendKeyring:
		s, err = NewKeyringBackend(opts)
	case BackendFile:
		s, err = NewFallbackBackend(opts.FallbackFile)
	case BackendMemory:
		s = NewMemory()
	default:
		return nil, fmt.Errorf("%w: %q (expected one of %s)", ErrUnknownBackend, opts.Backend, strings.Join(Backends(), ", "))
	}
	if err != nil {
		return nil, NewStoreError("open", "", fmt.Errorf("%s: %w", name, err))
	}
	return s, nil
}

// detectBackend chooses the native backend for the platform
func detectBackend() string {
	switch runtime.GOOS {
	case "darwin":
		return BackendKeychain
	case "windows":
		return BackendWinCred
	case "linux", "freebsd", "openbsd", "netbsd":
		return BackendSecretService
	default:
		return BackendFile
	}
}

// validateName rejects names no backend can hold
func validateName(name string) error {
	if name == "" || strings.ContainsRune(name, 0) {
		return ErrInvalidName
	}
	return nil
}

// sortEntries orders a snapshot by name so enumeration output is stable
// across backends that return items in hash order.
func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
}

// ClearString clears a string from memory (best effort)
func ClearString(s *string) {
	if s == nil {
		return
	}
	b := []byte(*s)
	for i := range b {
		b[i] = 0
	}
	*s = ""
}
