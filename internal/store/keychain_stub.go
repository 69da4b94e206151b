//go:build !darwin

package store

// NewKeychainBackend is not available on non-Darwin platforms
func NewKeychainBackend() (Store, error) {
	return nil, ErrBackendNotAvail
}
