package errors

import (
	"fmt"
	"strings"
)

// Diagnostic is a warning or error tied to a line of an input file
type Diagnostic struct {
	Severity string // "Warning" or "Error"
	Message  string
	Filename string
	Line     int    // 1-based; 0 when the diagnostic concerns the whole file
	Source   string // the offending line, verbatim
	Help     string
}

// Error implements the error interface
func (d *Diagnostic) Error() string {
	return d.Message
}

// Format renders the diagnostic with its file location and source line
func (d *Diagnostic) Format(color bool) string {
	var result strings.Builder

	severity := d.Severity
	if severity == "" {
		severity = "Warning"
	}
	sevColor := "\033[33m"
	if severity == "Error" {
		sevColor = "\033[31m"
	}

	result.WriteString(fmt.Sprintf("%s: %s\n", paint(color, sevColor, severity), d.Message))

	if d.Filename != "" {
		location := d.Filename
		if d.Line > 0 {
			location = fmt.Sprintf("%s:%d", d.Filename, d.Line)
		}
		result.WriteString(fmt.Sprintf("  %s\n", paint(color, "\033[36m", "--> "+location)))
	}

	if d.Line > 0 && d.Source != "" {
		lineNumStr := fmt.Sprintf("%d", d.Line)
		result.WriteString(fmt.Sprintf("   %s | %s\n", paint(color, "\033[34m", lineNumStr), d.Source))
	}

	if d.Help != "" {
		result.WriteString(fmt.Sprintf("   %s %s\n", paint(color, "\033[33m", "Help:"), d.Help))
	}

	return result.String()
}

func paint(color bool, code, s string) string {
	if !color {
		return s
	}
	return code + s + "\033[0m"
}

// FormatDiagnostics renders a list of diagnostics separated by blank lines
func FormatDiagnostics(diags []*Diagnostic, color bool) string {
	var result strings.Builder
	for i, d := range diags {
		if i > 0 {
			result.WriteString("\n")
		}
		result.WriteString(d.Format(color))
	}
	return result.String()
}

// UsageError is a wrong argument count or unknown command
type UsageError struct {
	Message string
}

// Error implements the error interface
func (e *UsageError) Error() string {
	return e.Message
}

// NewUsageError creates a new usage error
func NewUsageError(format string, args ...any) *UsageError {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}

// ConfigurationError means the environment does not say where the tool's
// files live, or a settings file is invalid
type ConfigurationError struct {
	Message string
	Err     error
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// EmptyResultError means a basis or default resolution selected nothing to
// write. It points at configuration or data, not at the store.
type EmptyResultError struct {
	What   string // "basis" or "defaults"
	Name   string // basis name or user name
	Source string // basis file consulted
}

// Error implements the error interface
func (e *EmptyResultError) Error() string {
	switch e.What {
	case "basis":
		return fmt.Sprintf("there are no credentials for basis '%s' listed in %s", e.Name, sourceOrUnknown(e.Source))
	default:
		return fmt.Sprintf("there are no default credentials for user '%s' outside the bases in %s", e.Name, sourceOrUnknown(e.Source))
	}
}

func sourceOrUnknown(source string) string {
	if source == "" {
		return "the (unresolved) basis file"
	}
	return source
}

// EmptyInputError is an empty username or password at the prompt
type EmptyInputError struct {
	Field string
}

// Error implements the error interface
func (e *EmptyInputError) Error() string {
	return "empty " + e.Field
}

// PropagationError is returned when every write of a fan-out failed
type PropagationError struct {
	Failed int
	Total  int
}

// Error implements the error interface
func (e *PropagationError) Error() string {
	if e.Failed == e.Total {
		return fmt.Sprintf("all %d credential updates failed", e.Total)
	}
	return fmt.Sprintf("%d of %d credential updates failed", e.Failed, e.Total)
}
