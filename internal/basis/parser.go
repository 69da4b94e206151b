package basis

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	cserrors "github.com/phillarmonic/credential-store/internal/errors"
)

// WarningKind classifies a basis file problem
type WarningKind int

const (
	// OrphanEntry is a credential line before any basis line
	OrphanEntry WarningKind = iota
	// EmptyBasis is a basis line with no credential lines under it
	EmptyBasis
	// Unreadable means the file could not be opened or read
	Unreadable
)

func (k WarningKind) String() string {
	switch k {
	case OrphanEntry:
		return "orphan-entry"
	case EmptyBasis:
		return "empty-basis"
	case Unreadable:
		return "unreadable"
	default:
		return fmt.Sprintf("warning(%d)", int(k))
	}
}

// Warning is a structural problem found while reading a basis file. Warnings
// never stop parsing.
type Warning struct {
	Kind    WarningKind
	Source  string
	Line    int // 0 when the warning concerns the whole file
	Basis   string
	Entry   string
	Text    string // raw line, when there is one
	Message string
}

// Diagnostic converts the warning for display
func (w Warning) Diagnostic() *cserrors.Diagnostic {
	d := &cserrors.Diagnostic{
		Severity: "Warning",
		Message:  w.Message,
		Filename: w.Source,
		Line:     w.Line,
		Source:   w.Text,
	}
	switch w.Kind {
	case OrphanEntry:
		d.Help = "Put a basis name on an unindented line above the first indented credential"
	case EmptyBasis:
		d.Help = "List credentials under it on indented lines, or remove the basis line"
	}
	return d
}

// Diagnostics converts a list of warnings for display
func Diagnostics(warnings []Warning) []*cserrors.Diagnostic {
	diags := make([]*cserrors.Diagnostic, 0, len(warnings))
	for _, w := range warnings {
		diags = append(diags, w.Diagnostic())
	}
	return diags
}

const utf8BOM = "\ufeff"

// Parse reads a basis file.
//
// Lines that are blank after trimming, or whose very first character is '#',
// are skipped; an indented "# ..." line is an entry, not a comment. A line
// whose first character is whitespace lists a credential under the current
// basis. Any other line starts a basis and is used as the basis name
// verbatim.
func Parse(r io.Reader, source string) (*File, []Warning) {
	f := NewFile(source)
	var warnings []Warning

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	current := ""
	currentLine := 0
	haveCurrent := false
	lineIndex := 0

	warnEmpty := func() {
		if haveCurrent && len(f.members[current]) == 0 {
			warnings = append(warnings, Warning{
				Kind:    EmptyBasis,
				Source:  source,
				Line:    currentLine,
				Basis:   current,
				Text:    current,
				Message: fmt.Sprintf("Basis credential %s in %s has no credentials listed under it.", current, source),
			})
		}
	}

	for scanner.Scan() {
		lineIndex++
		line := scanner.Text()
		if lineIndex == 1 {
			line = strings.TrimPrefix(line, utf8BOM)
		}

		trimmed := trim(line)
		switch {
		case trimmed == "" || strings.HasPrefix(line, "#"):
			// Ignore blank and comment lines.
			continue
		case startsWithSpace(line):
			if !haveCurrent {
				warnings = append(warnings, Warning{
					Kind:   OrphanEntry,
					Source: source,
					Line:   lineIndex,
					Entry:  trimmed,
					Text:   line,
					Message: fmt.Sprintf("Ignoring entry '%s' on line %d of %s because no basis line has been encountered yet.",
						trimmed, lineIndex, source),
				})
				continue
			}
			f.add(current, trimmed)
		default:
			// Warn about the previous basis before switching to the next.
			warnEmpty()
			current = line
			currentLine = lineIndex
			haveCurrent = true
			f.ensure(current)
		}
	}

	if err := scanner.Err(); err != nil {
		warnings = append(warnings, Warning{
			Kind:    Unreadable,
			Source:  source,
			Line:    lineIndex + 1,
			Message: fmt.Sprintf("Stopped reading %s after line %d: %v", source, lineIndex, err),
		})
	}

	// Warn about the last basis too.
	warnEmpty()

	return f, warnings
}

// Load parses the basis file at path. A missing or unreadable file gives an
// empty File and a single Unreadable warning; it is never fatal.
func Load(path string) (*File, []Warning) {
	if path == "" {
		return NewFile(""), []Warning{{
			Kind:    Unreadable,
			Message: "No credential basis file location is configured; treating it as empty.",
		}}
	}

	file, err := os.Open(path)
	if err != nil {
		msg := fmt.Sprintf("Cannot read credential basis file %s: %v", path, err)
		if os.IsNotExist(err) {
			msg = fmt.Sprintf("Credential basis file %s does not exist; treating it as empty.", path)
		}
		return NewFile(path), []Warning{{
			Kind:    Unreadable,
			Source:  path,
			Message: msg,
		}}
	}
	defer file.Close()

	return Parse(file, path)
}
