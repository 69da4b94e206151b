package app

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	cserrors "github.com/phillarmonic/credential-store/internal/errors"
	"github.com/phillarmonic/credential-store/internal/store"
)

type harness struct {
	t      *testing.T
	home   string
	store  *store.Memory
	out    bytes.Buffer
	errOut bytes.Buffer
}

func newHarness(t *testing.T, bases string) *harness {
	t.Helper()
	home := t.TempDir()
	t.Setenv("GRADLE_USER_HOME", home)
	t.Setenv("USERPROFILE", "")

	if bases != "" {
		path := filepath.Join(home, "holygradle", "credential-bases.txt")
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(bases), 0644); err != nil {
			t.Fatalf("Failed to write basis file: %v", err)
		}
	}

	return &harness{t: t, home: home, store: store.NewMemory()}
}

func (h *harness) seed(name, username, secret string) {
	h.t.Helper()
	if err := h.store.Write(store.Credential{Name: name, Username: username, Secret: secret}, store.LocalMachine); err != nil {
		h.t.Fatalf("Failed to seed %q: %v", name, err)
	}
}

func (h *harness) run(input string, args ...string) error {
	h.out.Reset()
	h.errOut.Reset()
	a := NewApp("test", "unknown", "unknown",
		WithIO(strings.NewReader(input), &h.out, &h.errOut),
		WithStore(h.store),
		WithCurrentUser(func() string { return "alice" }),
	)
	return a.ExecuteArgs(args)
}

func (h *harness) secret(name string) (string, string) {
	h.t.Helper()
	cred, err := h.store.Read(name)
	if err != nil {
		h.t.Fatalf("Expected %q to be stored: %v", name, err)
	}
	return cred.Username, cred.Secret
}

const workBases = "Work\n  git:https://github.com\n  git:https://gitlab.com\nEmpty\n"

func TestGet(t *testing.T) {
	h := newHarness(t, "")
	h.seed("git:https://github.com", "alice", "hunter2")

	if err := h.run("", "get", "git:https://github.com"); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if h.out.String() != "alice&&&hunter2" {
		t.Errorf("Expected %q, got %q", "alice&&&hunter2", h.out.String())
	}
}

func TestGetMissing(t *testing.T) {
	h := newHarness(t, "")

	err := h.run("", "get", "absent")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestSet(t *testing.T) {
	h := newHarness(t, "")

	if err := h.run("", "set", "git:https://github.com", "bob", "pw"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if user, secret := h.secret("git:https://github.com"); user != "bob" || secret != "pw" {
		t.Errorf("Unexpected credential %s/%s", user, secret)
	}
	if p, _ := h.store.PersistenceOf("git:https://github.com"); p != store.Enterprise {
		t.Errorf("Expected enterprise persistence, got %v", p)
	}
	if h.out.String() != "Updated: git:https://github.com\n" {
		t.Errorf("Unexpected output %q", h.out.String())
	}
}

func TestSetFailure(t *testing.T) {
	h := newHarness(t, "")
	h.store.FailWrites("x", errors.New("access denied"))

	if err := h.run("", "set", "x", "bob", "pw"); err == nil {
		t.Fatal("Expected set to fail")
	}
	if h.out.String() != "ERROR: Failed to update: x\n" {
		t.Errorf("Unexpected output %q", h.out.String())
	}
}

func TestDelete(t *testing.T) {
	h := newHarness(t, "")
	h.seed("x", "alice", "pw")

	if err := h.run("", "delete", "x"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := h.store.Read("x"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected x to be gone, got %v", err)
	}
	if err := h.run("", "delete", "x"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected deleting a missing credential to fail, got %v", err)
	}
}

func TestForBasis(t *testing.T) {
	h := newHarness(t, workBases)

	if err := h.run("bob\nnew-pw\n", "for-basis", "Work"); err != nil {
		t.Fatalf("for-basis failed: %v", err)
	}

	for _, name := range []string{"Intrepid - Work", "git:https://github.com", "git:https://gitlab.com"} {
		if user, secret := h.secret(name); user != "bob" || secret != "new-pw" {
			t.Errorf("%s: unexpected credential %s/%s", name, user, secret)
		}
	}

	out := h.out.String()
	for _, want := range []string{
		"Username [ENTER to accept default 'alice']: ",
		"Updated: Intrepid - Work\n",
		"Updated: git:https://github.com\n",
		"Updated: git:https://gitlab.com\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output %q", want, out)
		}
	}
	if strings.Contains(out, "new-pw") {
		t.Error("Password must not be printed")
	}
}

func TestForBasisDefaultUser(t *testing.T) {
	h := newHarness(t, workBases)

	if err := h.run("\nnew-pw\n", "from-basis", "Work"); err != nil {
		t.Fatalf("from-basis failed: %v", err)
	}
	if user, _ := h.secret("Intrepid - Work"); user != "alice" {
		t.Errorf("Expected default user alice, got %q", user)
	}
}

func TestForBasisEmpty(t *testing.T) {
	h := newHarness(t, workBases)

	for _, name := range []string{"Empty", "Missing"} {
		err := h.run("bob\npw\n", "for-basis", name)
		var empty *cserrors.EmptyResultError
		if !errors.As(err, &empty) {
			t.Fatalf("%s: expected EmptyResultError, got %v", name, err)
		}
		if empty.What != "basis" || empty.Name != name {
			t.Errorf("Unexpected error %+v", empty)
		}
	}
	if entries, _ := h.store.Enumerate(); len(entries) != 0 {
		t.Errorf("Nothing should be written, got %v", entries)
	}
}

func TestForBasisEmptyPassword(t *testing.T) {
	h := newHarness(t, workBases)

	err := h.run("bob\n\n", "for-basis", "Work")
	var empty *cserrors.EmptyInputError
	if !errors.As(err, &empty) || empty.Field != "password" {
		t.Errorf("Expected empty password error, got %v", err)
	}
}

func TestForBasisPartialFailure(t *testing.T) {
	h := newHarness(t, workBases)
	h.store.FailWrites("git:https://github.com", errors.New("access denied"))

	if err := h.run("bob\npw\n", "for-basis", "Work"); err != nil {
		t.Fatalf("A partial failure must not fail the command: %v", err)
	}
	if !strings.Contains(h.out.String(), "ERROR: Failed to update: git:https://github.com\n") {
		t.Errorf("Expected failure line in %q", h.out.String())
	}
	if !strings.Contains(h.errOut.String(), "1 of 3 credential updates failed") {
		t.Errorf("Expected summary warning in %q", h.errOut.String())
	}
}

func TestForBasisAllFailed(t *testing.T) {
	h := newHarness(t, "Solo\n  git:https://github.com\n")
	h.store.FailWrites("Intrepid - Solo", errors.New("nope"))
	h.store.FailWrites("git:https://github.com", errors.New("nope"))

	err := h.run("bob\npw\n", "for-basis", "Solo")
	var perr *cserrors.PropagationError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected PropagationError, got %v", err)
	}
	if perr.Failed != 2 || perr.Total != 2 {
		t.Errorf("Unexpected counts %+v", perr)
	}
}

func TestForDefaults(t *testing.T) {
	h := newHarness(t, workBases)
	h.seed("git:https://github.com", "alice", "old")
	h.seed("git:https://bitbucket.org", "alice", "old")
	h.seed("alice@@https://hg.example.com@Mercurial", "alice.smith", "old")
	h.seed("Intrepid - Work", "alice", "old")
	h.seed("Intrepid - Nexus", "alice", "old")
	h.seed("git:https://other.org", "bob", "old")

	if err := h.run("alice\nnew\n", "for-defaults"); err != nil {
		t.Fatalf("for-defaults failed: %v", err)
	}

	updated := map[string]string{
		"git:https://bitbucket.org":               "alice",
		"alice@@https://hg.example.com@Mercurial": "alice.smith",
		"Intrepid - Nexus":                        "alice",
	}
	for name, wantUser := range updated {
		user, secret := h.secret(name)
		if secret != "new" || user != wantUser {
			t.Errorf("%s: expected %s/new, got %s/%s", name, wantUser, user, secret)
		}
	}
	for _, name := range []string{"git:https://github.com", "Intrepid - Work", "git:https://other.org"} {
		if _, secret := h.secret(name); secret != "old" {
			t.Errorf("%s must not be updated", name)
		}
	}
}

func TestForDefaultsNone(t *testing.T) {
	h := newHarness(t, workBases)
	h.seed("git:https://github.com", "alice", "old")

	err := h.run("alice\nnew\n", "from-default")
	var empty *cserrors.EmptyResultError
	if !errors.As(err, &empty) || empty.What != "defaults" {
		t.Errorf("Expected EmptyResultError for defaults, got %v", err)
	}
}

func TestListBases(t *testing.T) {
	h := newHarness(t, "Zeta\n  a\nAlpha\n  b\n")

	if err := h.run("", "list-bases"); err != nil {
		t.Fatalf("list-bases failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(h.out.String()), "\n")
	if len(lines) != 3 || lines[1] != "Zeta" || lines[2] != "Alpha" {
		t.Errorf("Expected header then Zeta, Alpha; got %q", lines)
	}
}

func TestListBasesMissingFile(t *testing.T) {
	h := newHarness(t, "")

	if err := h.run("", "list-bases"); err != nil {
		t.Fatalf("A missing basis file must not be fatal: %v", err)
	}
	if !strings.Contains(h.errOut.String(), "does not exist") {
		t.Errorf("Expected a warning, got %q", h.errOut.String())
	}
}

func TestListBasesWarnings(t *testing.T) {
	h := newHarness(t, "  orphan\nWork\n  a\n")

	if err := h.run("", "list-bases"); err != nil {
		t.Fatalf("list-bases failed: %v", err)
	}
	if !strings.Contains(h.errOut.String(), "Ignoring entry 'orphan' on line 1") {
		t.Errorf("Expected orphan warning, got %q", h.errOut.String())
	}
}

func TestListBasis(t *testing.T) {
	h := newHarness(t, workBases)

	if err := h.run("", "list-basis", "Work"); err != nil {
		t.Fatalf("list-basis failed: %v", err)
	}
	if h.out.String() != "git:https://github.com\ngit:https://gitlab.com\n" {
		t.Errorf("Unexpected output %q", h.out.String())
	}

	var empty *cserrors.EmptyResultError
	if err := h.run("", "list-basis", "Missing"); !errors.As(err, &empty) {
		t.Errorf("Expected EmptyResultError, got %v", err)
	}
}

func TestListDefaults(t *testing.T) {
	h := newHarness(t, workBases)
	h.seed("git:https://github.com", "alice", "s")
	h.seed("git:https://bitbucket.org", "alice", "s")
	h.seed("git:https://other.org", "bob", "s")

	if err := h.run("", "list-defaults"); err != nil {
		t.Fatalf("list-defaults failed: %v", err)
	}
	out := h.out.String()
	if !strings.Contains(out, "git:https://bitbucket.org\n") || strings.Contains(out, "git:https://github.com\n") {
		t.Errorf("Unexpected output for alice: %q", out)
	}

	if err := h.run("", "list-defaults", "bob"); err != nil {
		t.Fatalf("list-defaults bob failed: %v", err)
	}
	if !strings.Contains(h.out.String(), "git:https://other.org\n") {
		t.Errorf("Unexpected output for bob: %q", h.out.String())
	}

	if err := h.run("", "list-defaults", "carol"); err != nil {
		t.Fatalf("list-defaults carol failed: %v", err)
	}
	if !strings.HasPrefix(h.out.String(), "There are no") {
		t.Errorf("Unexpected output for carol: %q", h.out.String())
	}
}

func TestCommandMatching(t *testing.T) {
	h := newHarness(t, workBases)

	for _, verb := range []string{"list-bases", "LIST-BASES", "List-Bases", "list-base", "LIST-BASE"} {
		if err := h.run("", verb); err != nil {
			t.Errorf("%s: %v", verb, err)
			continue
		}
		if !strings.Contains(h.out.String(), "Work\n") {
			t.Errorf("%s: expected bases, got %q", verb, h.out.String())
		}
	}
}

func TestRootHelpNamesPrefixRule(t *testing.T) {
	h := newHarness(t, "")

	if err := h.run("", "--help"); err != nil {
		t.Fatalf("help failed: %v", err)
	}
	if !strings.Contains(h.out.String(), `"l" or "list-bas" is`) {
		t.Errorf("Expected the help to describe ambiguous prefixes, got %q", h.out.String())
	}
}

func TestUsageErrors(t *testing.T) {
	h := newHarness(t, "")

	tests := [][]string{
		{},
		{"frobnicate"},
		{"get"},
		{"set", "a", "b"},
		{"list-bas"},
		{"l"},
		{"from-"},
		{"list-defaults", "a", "b"},
	}
	for _, args := range tests {
		err := h.run("", args...)
		if err == nil {
			t.Errorf("%q: expected an error", args)
			continue
		}
		if !strings.Contains(h.errOut.String(), "Usage:") {
			t.Errorf("%q: expected usage on stderr, got %q", args, h.errOut.String())
		}
	}
}

func TestHistory(t *testing.T) {
	h := newHarness(t, "")

	if err := h.run("", "set", "x", "bob", "pw"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := h.run("", "history", "x", "y"); err != nil {
		t.Fatalf("history failed: %v", err)
	}

	out := h.out.String()
	if !strings.Contains(out, "x: updated for bob at ") {
		t.Errorf("Expected x to be recorded, got %q", out)
	}
	if !strings.Contains(out, "y: no recorded update") {
		t.Errorf("Expected y to be unknown, got %q", out)
	}
}

func TestExportImportBases(t *testing.T) {
	h := newHarness(t, workBases)
	archivePath := filepath.Join(t.TempDir(), "bases.tar.gz")

	if err := h.run("", "export-bases", archivePath); err != nil {
		t.Fatalf("export-bases failed: %v", err)
	}

	basisPath := filepath.Join(h.home, "holygradle", "credential-bases.txt")
	if err := os.WriteFile(basisPath, []byte("Other\n  x\n"), 0644); err != nil {
		t.Fatalf("Failed to overwrite basis file: %v", err)
	}

	if err := h.run("", "import-bases", archivePath); err != nil {
		t.Fatalf("import-bases failed: %v", err)
	}

	data, err := os.ReadFile(basisPath)
	if err != nil || string(data) != workBases {
		t.Errorf("Expected basis file restored, got %q (%v)", data, err)
	}
	if data, _ := os.ReadFile(basisPath + ".bak"); string(data) != "Other\n  x\n" {
		t.Errorf("Expected backup of the replaced file, got %q", data)
	}
	if !strings.Contains(h.errOut.String(), "Basis credential Empty") {
		t.Errorf("Expected the restored file to be checked, got %q", h.errOut.String())
	}
}

func TestVersionPlain(t *testing.T) {
	h := newHarness(t, "")

	if err := h.run("", "version", "--plain"); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if h.out.String() != "Version test\n" {
		t.Errorf("Unexpected output %q", h.out.String())
	}
}

func TestVersionBanner(t *testing.T) {
	h := newHarness(t, "")

	if err := h.run("", "version"); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	out := h.out.String()
	if !strings.HasSuffix(out, "Version test\n") {
		t.Errorf("Expected version line at the end, got %q", out)
	}
	// The banner goes to the same writer as the version lines
	if strings.Count(out, "\n") < 6 {
		t.Errorf("Expected the banner in the command output, got %q", out)
	}
}

func TestSetDashPassword(t *testing.T) {
	h := newHarness(t, "")

	if err := h.run("", "set", "git:https://github.com", "alice", "-s3cret"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if user, secret := h.secret("git:https://github.com"); user != "alice" || secret != "-s3cret" {
		t.Errorf("Expected alice/-s3cret, got %s/%s", user, secret)
	}

	if err := h.run("", "get", "git:https://github.com"); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if h.out.String() != "alice&&&-s3cret" {
		t.Errorf("Unexpected output %q", h.out.String())
	}
}

func TestRawArgsFlags(t *testing.T) {
	h := newHarness(t, "")
	h.seed("-weird-name", "bob", "pw")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"dash name", []string{"get", "-weird-name"}, "bob&&&pw"},
		{"leading global flag", []string{"get", "-v", "-weird-name"}, "bob&&&pw"},
		{"flag terminator", []string{"get", "--", "-weird-name"}, "bob&&&pw"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := h.run("", tt.args...); err != nil {
				t.Fatalf("%q failed: %v", tt.args, err)
			}
			if h.out.String() != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, h.out.String())
			}
		})
	}

	if err := h.run("", "set", "a", "b", "c", "d"); err == nil {
		t.Error("Expected a usage error for too many arguments")
	}
	if err := h.run("", "get", "--help"); err != nil {
		t.Errorf("Expected help, got %v", err)
	}
	if !strings.Contains(h.out.String(), "get <credential_name>") {
		t.Errorf("Expected help output, got %q", h.out.String())
	}
}

func TestCacheMercurial(t *testing.T) {
	h := newHarness(t, "")

	if err := h.run("", "cache-mercurial", "https://hg.example.com", "alice", "-pw"); err != nil {
		t.Fatalf("cache-mercurial failed: %v", err)
	}

	for _, name := range []string{"Mercurial", "alice@@https://hg.example.com@Mercurial"} {
		user, secret := h.secret(name)
		if user != "alice@@https://hg.example.com" || secret != "-pw" {
			t.Errorf("%s: expected alice@@https://hg.example.com/-pw, got %s/%s", name, user, secret)
		}
		if p, _ := h.store.PersistenceOf(name); p != store.LocalMachine {
			t.Errorf("%s: expected local-machine persistence, got %v", name, p)
		}
	}
	if h.out.String() != "    Cached Mercurial credentials for alice, https://hg.example.com.\n" {
		t.Errorf("Unexpected output %q", h.out.String())
	}

	if err := h.run("", "list-defaults"); err != nil {
		t.Fatalf("list-defaults failed: %v", err)
	}
	if !strings.Contains(h.out.String(), "alice@@https://hg.example.com@Mercurial\n") {
		t.Errorf("Expected the cached entry to be a default, got %q", h.out.String())
	}
}

func TestCacheMercurialFailure(t *testing.T) {
	h := newHarness(t, "")
	h.store.FailWrites("Mercurial", errors.New("access denied"))

	if err := h.run("", "cache-mercurial", "https://hg.example.com", "alice", "pw"); err == nil {
		t.Fatal("Expected cache-mercurial to fail")
	}
	if h.out.String() != "Failed to cache Mercurial credentials for alice, https://hg.example.com.\n" {
		t.Errorf("Unexpected output %q", h.out.String())
	}
	if _, err := h.store.Read("alice@@https://hg.example.com@Mercurial"); !store.IsNotFound(err) {
		t.Errorf("Expected no second entry after the first write failed, got %v", err)
	}
}
