//go:build !windows

package store

// NewCredentialBackend is not available on non-Windows platforms
func NewCredentialBackend() (Store, error) {
	return nil, ErrBackendNotAvail
}
