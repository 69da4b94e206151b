// Package prompt reads user names and passwords from the console
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"strings"

	"golang.org/x/term"

	cserrors "github.com/phillarmonic/credential-store/internal/errors"
)

// Prompter reads lines from an input, masking them when asked and the
// input is a terminal
type Prompter struct {
	in       io.Reader
	out      io.Writer
	reader   *bufio.Reader
	fd       int
	terminal bool
}

// New creates a prompter reading from in and writing prompts to out
func New(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{
		in:     in,
		out:    out,
		reader: bufio.NewReader(in),
		fd:     -1,
	}
	if f, ok := in.(*os.File); ok {
		p.fd = int(f.Fd())
		p.terminal = term.IsTerminal(p.fd)
	}
	return p
}

// Stdio creates a prompter on the process console
func Stdio() *Prompter {
	return New(os.Stdin, os.Stdout)
}

// ReadLine reads one line without its line ending. With echo off on a
// terminal the typed characters are not shown.
func (p *Prompter) ReadLine(echo bool) (string, error) {
	if !echo && p.terminal {
		b, err := term.ReadPassword(p.fd)
		// ReadPassword swallows the newline the user typed.
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return string(b), nil
	}

	line, err := p.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// RequestCredentials asks for a user name, offering defaultUser, and then a
// masked password. Neither may end up empty.
func (p *Prompter) RequestCredentials(defaultUser string) (username, password string, err error) {
	fmt.Fprintf(p.out, "Username [ENTER to accept default '%s']: ", defaultUser)
	username, err = p.ReadLine(true)
	if err != nil {
		return "", "", err
	}
	if username == "" {
		username = defaultUser
	}
	if username == "" {
		return "", "", &cserrors.EmptyInputError{Field: "username"}
	}

	fmt.Fprint(p.out, "Password: ")
	password, err = p.ReadLine(false)
	if err != nil {
		return "", "", err
	}
	if !p.terminal {
		fmt.Fprintln(p.out)
	}
	if password == "" {
		return "", "", &cserrors.EmptyInputError{Field: "password"}
	}

	return username, password, nil
}

// CurrentUsername returns the login name of the current user without any
// domain part, or "" if it cannot be determined
func CurrentUsername() string {
	u, err := user.Current()
	if err != nil {
		return os.Getenv("USERNAME")
	}
	name := u.Username
	if i := strings.LastIndex(name, `\`); i >= 0 {
		name = name[i+1:]
	}
	return name
}
