// Package basis reads the credential basis file and resolves which stored
// credentials a password change should be written to.
//
// A basis file looks like this:
//
//	# comment
//	Work
//	  git:https://github.com
//	  alice@@https://hg.example.com@Mercurial
//	Home
//	  git:https://gitlab.com
//
// Unindented lines name a basis; indented lines under it list the stored
// credentials that share its password.
package basis

// File is a parsed basis file. Basis names keep the order of their first
// header line; members keep file order.
type File struct {
	Source string

	names   []string
	members map[string][]string
}

// NewFile creates an empty basis file for source
func NewFile(source string) *File {
	return &File{
		Source:  source,
		members: make(map[string][]string),
	}
}

// ensure creates the basis if it is new
func (f *File) ensure(name string) {
	if _, ok := f.members[name]; ok {
		return
	}
	f.names = append(f.names, name)
	f.members[name] = []string{}
}

func (f *File) add(name, member string) {
	f.members[name] = append(f.members[name], member)
}

// Names returns the basis names in file order
func (f *File) Names() []string {
	return append([]string(nil), f.names...)
}

// Len returns the number of bases
func (f *File) Len() int {
	return len(f.names)
}

// Has reports whether name is a basis header
func (f *File) Has(name string) bool {
	_, ok := f.members[name]
	return ok
}

// Members returns a copy of the credentials listed under name, nil if unknown
func (f *File) Members(name string) []string {
	members, ok := f.members[name]
	if !ok {
		return nil
	}
	return append([]string{}, members...)
}

// HasMember reports whether credential is listed under any basis. The scan
// is linear; basis files hold tens of entries.
func (f *File) HasMember(credential string) bool {
	for _, name := range f.names {
		for _, member := range f.members[name] {
			if member == credential {
				return true
			}
		}
	}
	return false
}
