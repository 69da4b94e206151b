// Package credential recognises which stored credentials belong to which
// tool by the shape of their names.
//
// The shape rules mirror the names Mercurial, Git credential helpers and
// the Intrepid Gradle plugins write. Their index arithmetic is deliberate;
// keep the boundaries as they are.
package credential

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/phillarmonic/credential-store/internal/store"
)

// ApplicationPrefix starts every credential written by the Intrepid plugins.
// What follows it is the basis name the credential stands for.
const ApplicationPrefix = "Intrepid - "

const (
	gitPrefix        = "git:"
	mercurialSep     = "@@"
	mercurialSuffix  = "@Mercurial"
	minMercurialURL  = 1
	mercurialSepSize = len(mercurialSep)
)

// Family tags the tool a credential belongs to
type Family int

const (
	Unrecognized Family = iota
	Mercurial
	Git
	Application
)

func (f Family) String() string {
	switch f {
	case Mercurial:
		return "mercurial"
	case Git:
		return "git"
	case Application:
		return "application"
	default:
		return "unrecognized"
	}
}

// UsernameReader is the part of a store the classifier needs
type UsernameReader interface {
	Read(name string) (*store.Credential, error)
}

// Classifier decides credential families, looking up stored user names
// only for names whose shape already matches
type Classifier struct {
	store UsernameReader
}

// NewClassifier creates a classifier reading user names from r
func NewClassifier(r UsernameReader) *Classifier {
	return &Classifier{store: r}
}

// Classify returns the first family, in Mercurial, Git, Application order,
// that name belongs to for username
func (c *Classifier) Classify(name, username string) (Family, error) {
	if ok, err := c.IsMercurial(name, username); err != nil || ok {
		return familyIf(ok, Mercurial), err
	}
	if ok, err := c.IsGit(name, username); err != nil || ok {
		return familyIf(ok, Git), err
	}
	if ok, err := c.IsApplication(name, username); err != nil || ok {
		return familyIf(ok, Application), err
	}
	return Unrecognized, nil
}

func familyIf(ok bool, f Family) Family {
	if ok {
		return f
	}
	return Unrecognized
}

// IsMercurial reports whether name is "<user>@@<repo url>" with an optional
// trailing "@Mercurial", and the stored user name agrees with username over
// the length of <user>.
func (c *Classifier) IsMercurial(name, username string) (bool, error) {
	userLen, ok := mercurialShape(name)
	if !ok {
		return false, nil
	}

	// Only generic credentials can be read; the shape check above is what
	// keeps other entry types from reaching the store.
	stored, err := c.storedUsername(name)
	if err != nil {
		return false, err
	}
	return prefixEqual(stored, username, userLen), nil
}

// mercurialShape checks the name layout and returns the character count of
// the user segment
func mercurialShape(name string) (int, bool) {
	sep := strings.Index(name, mercurialSep)
	if sep <= 0 {
		return 0, false
	}

	suffix := strings.Index(name, mercurialSuffix)
	if suffix >= 0 {
		if suffix != len(name)-len(mercurialSuffix) {
			return 0, false
		}
		if sep > suffix-mercurialSepSize-minMercurialURL {
			return 0, false
		}
	} else if sep+mercurialSepSize+minMercurialURL > len(name) {
		return 0, false
	}

	return utf8.RuneCountInString(name[:sep]), true
}

// prefixEqual compares at most n characters of a and b, where a shorter
// string only matches a string that ends at the same place
func prefixEqual(a, b string, n int) bool {
	ar := []rune(a)
	br := []rune(b)
	if len(ar) > n {
		ar = ar[:n]
	}
	if len(br) > n {
		br = br[:n]
	}
	return string(ar) == string(br)
}

// IsGit reports whether name is a "git:" credential stored for username
func (c *Classifier) IsGit(name, username string) (bool, error) {
	if !strings.HasPrefix(name, gitPrefix) {
		return false, nil
	}
	stored, err := c.storedUsername(name)
	if err != nil {
		return false, err
	}
	return stored == username, nil
}

// IsApplication reports whether name is an Intrepid credential stored for username
func (c *Classifier) IsApplication(name, username string) (bool, error) {
	if !strings.HasPrefix(name, ApplicationPrefix) {
		return false, nil
	}
	stored, err := c.storedUsername(name)
	if err != nil {
		return false, err
	}
	return stored == username, nil
}

// ApplicationGroupName strips ApplicationPrefix by length. Callers check
// IsApplication first; shorter names yield "".
func ApplicationGroupName(name string) string {
	if len(name) < len(ApplicationPrefix) {
		return ""
	}
	return name[len(ApplicationPrefix):]
}

// ApplicationName builds the credential name that stands for basis
func ApplicationName(basis string) string {
	return ApplicationPrefix + basis
}

// MercurialCacheName is the entry the Mercurial keyring extension reads
// the most recently used credentials from
const MercurialCacheName = "Mercurial"

// MercurialUser builds the "<user>@@<url>" user name the Mercurial keyring
// extension stores with its entries
func MercurialUser(username, url string) string {
	return username + mercurialSep + url
}

// MercurialName builds the per-repository entry name
// "<user>@@<url>@Mercurial", the shape IsMercurial recognises
func MercurialName(username, url string) string {
	return MercurialUser(username, url) + mercurialSuffix
}

func (c *Classifier) storedUsername(name string) (string, error) {
	cred, err := c.store.Read(name)
	if err != nil {
		return "", fmt.Errorf("look up user name for %q: %w", name, err)
	}
	return cred.Username, nil
}
