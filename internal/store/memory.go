package store

import "sync"

// Memory is an in-process store. It backs tests and the "memory" backend.
type Memory struct {
	mu         sync.RWMutex
	creds      map[string]Credential
	persist    map[string]Persistence
	writeFails map[string]error
	readFails  map[string]error
	reads      []string
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		creds:      make(map[string]Credential),
		persist:    make(map[string]Persistence),
		writeFails: make(map[string]error),
		readFails:  make(map[string]error),
	}
}

// Read retrieves a credential
func (m *Memory) Read(name string) (*Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reads = append(m.reads, name)
	if err, ok := m.readFails[name]; ok {
		return nil, NewStoreError("read", name, err)
	}
	cred, ok := m.creds[name]
	if !ok {
		return nil, NewStoreError("read", name, ErrNotFound)
	}
	return &cred, nil
}

// Write stores a credential
func (m *Memory) Write(cred Credential, persist Persistence) error {
	if err := validateName(cred.Name); err != nil {
		return NewStoreError("write", cred.Name, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.writeFails[cred.Name]; ok {
		return NewStoreError("write", cred.Name, err)
	}
	m.creds[cred.Name] = cred
	m.persist[cred.Name] = persist
	return nil
}

// Delete removes a credential
func (m *Memory) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.creds, name)
	delete(m.persist, name)
	return nil
}

// Enumerate returns all credentials sorted by name
func (m *Memory) Enumerate() ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]Entry, 0, len(m.creds))
	for _, cred := range m.creds {
		entries = append(entries, Entry{
			Name:       cred.Name,
			Username:   cred.Username,
			SecretSize: len(cred.Secret),
		})
	}
	sortEntries(entries)
	return entries, nil
}

// Close is a no-op
func (m *Memory) Close() error {
	return nil
}

// FailWrites makes every later Write of name fail with err
func (m *Memory) FailWrites(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeFails[name] = err
}

// FailReads makes every later Read of name fail with err
func (m *Memory) FailReads(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readFails[name] = err
}

// Reads returns the names passed to Read so far, in call order
func (m *Memory) Reads() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.reads...)
}

// PersistenceOf returns the persistence the named credential was last written with
func (m *Memory) PersistenceOf(name string) (Persistence, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.persist[name]
	return p, ok
}
