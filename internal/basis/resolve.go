package basis

import (
	"github.com/phillarmonic/credential-store/internal/credential"
	"github.com/phillarmonic/credential-store/internal/propagate"
	"github.com/phillarmonic/credential-store/internal/store"
)

// Classifier assigns a credential family to a stored name for a user
type Classifier interface {
	Classify(name, username string) (credential.Family, error)
}

// ResolveBasis returns the credentials listed under name, or nil when the
// basis is unknown. An empty result means there is nothing to write.
func ResolveBasis(f *File, name string) []string {
	return f.Members(name)
}

// ResolveDefaults returns the names of the default credentials for username:
// recognised credentials that no basis claims.
func ResolveDefaults(f *File, entries []store.Entry, c Classifier, username string) ([]string, error) {
	defaults, err := DefaultEntries(f, entries, c, username)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(defaults))
	for _, e := range defaults {
		names = append(names, e.Name)
	}
	return names, nil
}

// DefaultEntries is ResolveDefaults keeping the enumerated entries, so the
// caller can write each one back with the user name it was stored with.
//
// Mercurial and Git credentials are claimed by being listed as a member of
// some basis. Application credentials are claimed when the name after the
// prefix is itself a basis name, since that is the basis they stand for.
func DefaultEntries(f *File, entries []store.Entry, c Classifier, username string) ([]store.Entry, error) {
	var defaults []store.Entry

	for _, e := range entries {
		family, err := c.Classify(e.Name, username)
		if err != nil {
			return nil, err
		}

		switch family {
		case credential.Mercurial, credential.Git:
			if !f.HasMember(e.Name) {
				defaults = append(defaults, e)
			}
		case credential.Application:
			if !f.Has(credential.ApplicationGroupName(e.Name)) {
				defaults = append(defaults, e)
			}
		}
	}

	return defaults, nil
}

// DefaultTargets returns the default credentials as write targets, each
// keeping the user name it is stored with
func DefaultTargets(f *File, entries []store.Entry, c Classifier, username string) ([]propagate.Target, error) {
	defaults, err := DefaultEntries(f, entries, c, username)
	if err != nil {
		return nil, err
	}

	targets := make([]propagate.Target, 0, len(defaults))
	for _, e := range defaults {
		targets = append(targets, propagate.Target{Name: e.Name, Username: e.Username})
	}
	return targets, nil
}
