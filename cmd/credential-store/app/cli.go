package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/phillarmonic/credential-store/internal/basis"
	"github.com/phillarmonic/credential-store/internal/config"
	cserrors "github.com/phillarmonic/credential-store/internal/errors"
	"github.com/phillarmonic/credential-store/internal/history"
	"github.com/phillarmonic/credential-store/internal/prompt"
	"github.com/phillarmonic/credential-store/internal/store"
)

// Domain: CLI Application Structure
// This file contains the main CLI application setup with Cobra commands and flags

// App represents the CLI application
type App struct {
	version string
	commit  string
	date    string

	rootCmd *cobra.Command

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	// Flags
	backend   string
	basisFile string
	verbose   bool

	// Resolved once per invocation in PersistentPreRunE
	cfg    config.Config
	logger *slog.Logger

	// Test seams
	store       store.Store
	currentUser func() string
}

// Option configures an App
type Option func(*App)

// WithIO replaces the process console
func WithIO(in io.Reader, out, errOut io.Writer) Option {
	return func(a *App) {
		a.in = in
		a.out = out
		a.errOut = errOut
	}
}

// WithStore makes every command use s instead of opening a backend. The
// App does not close s.
func WithStore(s store.Store) Option {
	return func(a *App) {
		a.store = s
	}
}

// WithCurrentUser replaces the OS user lookup
func WithCurrentUser(fn func() string) Option {
	return func(a *App) {
		a.currentUser = fn
	}
}

// NewApp creates a new CLI application
func NewApp(version, commit, date string, opts ...Option) *App {
	app := &App{
		version:     version,
		commit:      commit,
		date:        date,
		in:          os.Stdin,
		out:         os.Stdout,
		errOut:      os.Stderr,
		currentUser: prompt.CurrentUsername,
		logger:      slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
	}
	for _, opt := range opts {
		opt(app)
	}

	// Commands may be abbreviated and typed in any case, as in "CRED LIST-B".
	cobra.EnablePrefixMatching = true
	cobra.EnableCaseInsensitive = true

	app.rootCmd = &cobra.Command{
		Use:   "credential-store <command> [arguments]",
		Short: "Manage and propagate credentials in the platform credential store",
		Long: `credential-store reads and writes generic credentials in the platform
credential store, and writes one user name and password to a whole group
of related credentials at once.

Groups are listed in the credential basis file:

  $GRADLE_USER_HOME/holygradle/credential-bases.txt
  (or $USERPROFILE/holygradle/credential-bases.txt)

An unindented line names a basis; the indented lines under it name the
stored credentials that share its password:

  Work
    git:https://github.com
    alice@@https://hg.example.com@Mercurial

Commands may be typed in any case and shortened to any prefix that names
only one command: "LIST-BASE" runs list-bases, while "l" or "list-bas" is
rejected as ambiguous.

Examples:
  credential-store get "git:https://github.com"
  credential-store for-basis Work
  credential-store for-defaults
  credential-store list-defaults alice`,
		Args:              cobra.NoArgs,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: app.preRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cserrors.NewUsageError("a command is required")
		},
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	app.rootCmd.SetIn(app.in)
	app.rootCmd.SetOut(app.out)
	app.rootCmd.SetErr(app.errOut)

	app.setupFlags()
	app.setupCommands()

	return app
}

// Execute runs the CLI application. Usage problems print the usage of the
// command concerned.
func (a *App) Execute() error {
	return a.ExecuteArgs(os.Args[1:])
}

// ExecuteArgs runs the CLI application with args
func (a *App) ExecuteArgs(args []string) error {
	// Prefix matching is case-sensitive in cobra; lower the verb first.
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		args = append([]string{strings.ToLower(args[0])}, args[1:]...)
	}
	a.rootCmd.SetArgs(args)
	cmd, err := a.rootCmd.ExecuteC()
	if err != nil && isUsageError(err) {
		fmt.Fprintln(a.errOut, cmd.UsageString())
	}
	return err
}

func isUsageError(err error) bool {
	var usage *cserrors.UsageError
	if errors.As(err, &usage) {
		return true
	}
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag")
}

// setupFlags sets up all command-line flags
func (a *App) setupFlags() {
	flags := a.rootCmd.PersistentFlags()

	flags.StringVar(&a.backend, "backend", "", fmt.Sprintf("Credential store backend (%s)", strings.Join(store.Backends(), ", ")))
	flags.StringVar(&a.basisFile, "basis-file", "", "Credential basis file (default: $GRADLE_USER_HOME/holygradle/credential-bases.txt)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Show detailed information")
}

// setupCommands sets up subcommands
func (a *App) setupCommands() {
	a.rootCmd.AddCommand(
		a.createGetCommand(),
		a.createSetCommand(),
		a.createDeleteCommand(),
		a.createCacheMercurialCommand(),
		a.createForBasisCommand(),
		a.createForDefaultsCommand(),
		a.createListBasesCommand(),
		a.createListBasisCommand(),
		a.createListDefaultsCommand(),
		a.createHistoryCommand(),
		a.createExportCommand(),
		a.createImportCommand(),
		a.createVersionCommand(),
		a.createCompletionCommand(),
	)
}

// preRun resolves the configuration once for the whole invocation
func (a *App) preRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.Overrides{
		Backend:   a.backend,
		BasisFile: a.basisFile,
		Verbose:   a.verbose,
	})
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: cfg.LogLevel()}))

	for _, w := range cfg.Warnings {
		fmt.Fprintf(a.errOut, "Warning: %v\n", w)
	}
	a.logger.Debug("configuration resolved",
		"basisFile", cfg.BasisFile,
		"settingsFile", cfg.SettingsFile,
		"backend", cfg.Backend)
	return nil
}

// exactArgs is cobra.ExactArgs reporting a UsageError
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return cserrors.NewUsageError("%s takes %d argument(s), got %d", cmd.Name(), n, len(args))
		}
		return nil
	}
}

// rangeArgs is cobra.RangeArgs reporting a UsageError
func rangeArgs(min, max int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < min || len(args) > max {
			return cserrors.NewUsageError("%s takes %d to %d argument(s), got %d", cmd.Name(), min, max, len(args))
		}
		return nil
	}
}

// minimumArgs is cobra.MinimumNArgs reporting a UsageError
func minimumArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return cserrors.NewUsageError("%s takes at least %d argument(s), got %d", cmd.Name(), n, len(args))
		}
		return nil
	}
}

// rawArgs validates commands that take passwords and names verbatim. Such
// commands set DisableFlagParsing, so the global flags in front of the
// arguments are applied here, before PersistentPreRunE reads them.
func rawArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		args, err := splitFlags(cmd, args)
		if err != nil {
			return err
		}
		return exactArgs(n)(cmd, args)
	}
}

// splitFlags applies the known flags at the start of args and returns the
// rest. The first argument that is not a known flag starts the positional
// arguments, so values may begin with "-". "--" ends the flags.
func splitFlags(cmd *cobra.Command, args []string) ([]string, error) {
	flags := cmd.Flags()
	for len(args) > 0 {
		arg := args[0]
		if arg == "--" {
			return args[1:], nil
		}
		if len(arg) < 2 || arg[0] != '-' {
			break
		}

		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		var f *pflag.Flag
		if strings.HasPrefix(arg, "--") {
			f = flags.Lookup(name)
		} else if len(name) == 1 {
			f = flags.ShorthandLookup(name)
		}
		if f == nil {
			break
		}
		args = args[1:]

		if f.Name == "help" {
			return nil, pflag.ErrHelp
		}
		if !hasValue {
			if f.NoOptDefVal != "" {
				value = f.NoOptDefVal
			} else if len(args) > 0 {
				value, args = args[0], args[1:]
			} else {
				return nil, cserrors.NewUsageError("flag needs an argument: %s", arg)
			}
		}
		if err := flags.Set(f.Name, value); err != nil {
			return nil, cserrors.NewUsageError("invalid argument %q for %s: %v", value, arg, err)
		}
	}
	return args, nil
}

// openStore opens the configured backend. The returned function closes it.
func (a *App) openStore() (store.Store, func(), error) {
	if a.store != nil {
		return a.store, func() {}, nil
	}

	s, err := store.Open(a.cfg.StoreOptions(a.logger))
	if err != nil {
		return nil, nil, err
	}
	return s, func() {
		if err := s.Close(); err != nil {
			a.logger.Warn("failed to close credential store", "error", err)
		}
	}, nil
}

// openHistory opens the history database, falling back to a disabled
// recorder when it cannot be used
func (a *App) openHistory() *history.Recorder {
	h := a.cfg.History
	if h.Enabled {
		r, err := history.Open(h.Path, h.Retention, false)
		if err == nil {
			return r
		}
		a.logger.Warn("history is unavailable", "path", h.Path, "error", err)
	}
	r, _ := history.Open("", h.Retention, true)
	return r
}

// loadBases reads the basis file and prints its warnings
func (a *App) loadBases() *basis.File {
	f, warnings := basis.Load(a.cfg.BasisFile)
	if len(warnings) > 0 {
		fmt.Fprint(a.errOut, cserrors.FormatDiagnostics(basis.Diagnostics(warnings), a.colorErrors()))
	}
	a.logger.Debug("basis file loaded", "path", a.cfg.BasisFile, "bases", f.Len(), "warnings", len(warnings))
	return f
}

func (a *App) colorErrors() bool {
	f, ok := a.errOut.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (a *App) prompter() *prompt.Prompter {
	return prompt.New(a.in, a.out)
}
