package prompt

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	cserrors "github.com/phillarmonic/credential-store/internal/errors"
)

func TestReadLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"unix endings", "one\ntwo\n", []string{"one", "two"}},
		{"windows endings", "one\r\ntwo\r\n", []string{"one", "two"}},
		{"no final newline", "one\ntwo", []string{"one", "two"}},
		{"spaces kept", "  padded  \n", []string{"  padded  "}},
		{"eof", "", []string{"", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(strings.NewReader(tt.input), &bytes.Buffer{})
			for i, want := range tt.want {
				got, err := p.ReadLine(i%2 == 0)
				if err != nil {
					t.Fatalf("ReadLine failed: %v", err)
				}
				if got != want {
					t.Errorf("Line %d: expected %q, got %q", i, want, got)
				}
			}
		})
	}
}

func TestRequestCredentials(t *testing.T) {
	var out bytes.Buffer
	p := New(strings.NewReader("bob\nhunter2\n"), &out)

	user, pass, err := p.RequestCredentials("alice")
	if err != nil {
		t.Fatalf("RequestCredentials failed: %v", err)
	}
	if user != "bob" || pass != "hunter2" {
		t.Errorf("Expected bob/hunter2, got %s/%s", user, pass)
	}

	prompts := out.String()
	if !strings.Contains(prompts, "Username [ENTER to accept default 'alice']: ") {
		t.Errorf("Missing username prompt in %q", prompts)
	}
	if !strings.Contains(prompts, "Password: ") {
		t.Errorf("Missing password prompt in %q", prompts)
	}
	if strings.Contains(prompts, "hunter2") {
		t.Error("Password must not be echoed by the prompter")
	}
}

func TestRequestCredentialsDefaultUser(t *testing.T) {
	p := New(strings.NewReader("\nsecret\n"), &bytes.Buffer{})

	user, _, err := p.RequestCredentials("alice")
	if err != nil {
		t.Fatalf("RequestCredentials failed: %v", err)
	}
	if user != "alice" {
		t.Errorf("Expected default user alice, got %q", user)
	}
}

func TestRequestCredentialsEmpty(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		defaultUser string
		wantField   string
	}{
		{"no username", "\nsecret\n", "", "username"},
		{"no password", "bob\n\n", "alice", "password"},
		{"closed input", "", "alice", "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(strings.NewReader(tt.input), &bytes.Buffer{})
			_, _, err := p.RequestCredentials(tt.defaultUser)

			var empty *cserrors.EmptyInputError
			if !errors.As(err, &empty) {
				t.Fatalf("Expected EmptyInputError, got %v", err)
			}
			if empty.Field != tt.wantField {
				t.Errorf("Expected field %q, got %q", tt.wantField, empty.Field)
			}
		})
	}
}

func TestCurrentUsername(t *testing.T) {
	if name := CurrentUsername(); strings.Contains(name, `\`) {
		t.Errorf("Expected no domain part, got %q", name)
	}
}
