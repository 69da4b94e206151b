// Package config resolves where credential-store keeps its files and which
// store backend it uses.
//
// Precedence, highest first: command-line flags, the settings file
// <home>/holygradle/credential-store.yml, built-in defaults. <home> is
// GRADLE_USER_HOME, else USERPROFILE, else the OS home directory.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	cserrors "github.com/phillarmonic/credential-store/internal/errors"
	"github.com/phillarmonic/credential-store/internal/store"
)

const (
	// HolyGradleDir is the directory under the home that holds the tool's files
	HolyGradleDir = "holygradle"

	// BasisFileName is the name of the credential basis file
	BasisFileName = "credential-bases.txt"

	// SettingsFileName is the name of the optional settings file
	SettingsFileName = "credential-store.yml"

	// HistoryFileName is the name of the history database
	HistoryFileName = "credential-history.solo"

	// DefaultRetention is how long history records are kept
	DefaultRetention = 90 * 24 * time.Hour
)

// Overrides are the command-line values that win over the settings file
type Overrides struct {
	Backend   string
	BasisFile string
	Verbose   bool
}

// HistoryConfig controls the propagation history
type HistoryConfig struct {
	Enabled   bool
	Path      string
	Retention time.Duration
}

// Config is the resolved configuration. It is built once per invocation and
// passed by value.
type Config struct {
	Home         string // "" when no home could be resolved
	BasisFile    string // "" when no home could be resolved
	SettingsFile string
	Backend      string
	Verbose      bool
	Keyring      KeyringSettings
	FallbackFile string
	History      HistoryConfig

	// Warnings are non-fatal problems found while resolving
	Warnings []error
}

// ResolveHome returns the directory that holds holygradle/, or "" and a
// ConfigurationError when the environment does not name one
func ResolveHome() (string, error) {
	for _, name := range []string{"GRADLE_USER_HOME", "USERPROFILE"} {
		if dir := os.Getenv(name); dir != "" {
			return dir, nil
		}
	}
	if dir, err := os.UserHomeDir(); err == nil && dir != "" {
		return dir, nil
	}
	return "", &cserrors.ConfigurationError{
		Message: "failed to read environment variable GRADLE_USER_HOME or USERPROFILE; " +
			"one of these must be set to locate the credential basis file",
	}
}

// Load resolves the configuration. An invalid settings file is an error; a
// missing home is only a warning and leaves BasisFile empty.
func Load(o Overrides) (Config, error) {
	cfg := Config{
		Backend: store.BackendAuto,
		Verbose: o.Verbose,
		History: HistoryConfig{
			Enabled:   true,
			Retention: DefaultRetention,
		},
	}

	home, err := ResolveHome()
	if err != nil {
		cfg.Warnings = append(cfg.Warnings, err)
	}
	cfg.Home = home

	var settings Settings
	if home != "" {
		dir := filepath.Join(home, HolyGradleDir)
		cfg.BasisFile = filepath.Join(dir, BasisFileName)
		cfg.SettingsFile = filepath.Join(dir, SettingsFileName)
		cfg.History.Path = filepath.Join(dir, HistoryFileName)

		settings, _, err = LoadSettings(cfg.SettingsFile)
		if err != nil {
			return Config{}, &cserrors.ConfigurationError{Message: "cannot use settings", Err: err}
		}
	}

	cfg.apply(settings)

	if o.Backend != "" {
		cfg.Backend = o.Backend
	}
	if o.BasisFile != "" {
		cfg.BasisFile = o.BasisFile
	}

	if cfg.History.Path == "" {
		cfg.History.Enabled = false
	}

	return cfg, nil
}

func (c *Config) apply(s Settings) {
	if s.Backend != "" {
		c.Backend = s.Backend
	}
	if s.BasisFile != "" {
		c.BasisFile = c.resolvePath(s.BasisFile)
	}
	if s.FallbackFile != "" {
		c.FallbackFile = c.resolvePath(s.FallbackFile)
	}
	c.Keyring = s.Keyring
	c.Keyring.AllowedBackends = append([]string(nil), s.Keyring.AllowedBackends...)
	if c.Keyring.FileDir != "" {
		c.Keyring.FileDir = c.resolvePath(c.Keyring.FileDir)
	}

	if s.History.Enabled != nil {
		c.History.Enabled = *s.History.Enabled
	}
	if s.History.Path != "" {
		c.History.Path = c.resolvePath(s.History.Path)
	}
	if s.History.RetentionDays > 0 {
		c.History.Retention = time.Duration(s.History.RetentionDays) * 24 * time.Hour
	}
}

// resolvePath makes settings paths relative to the holygradle directory
func (c *Config) resolvePath(p string) string {
	if filepath.IsAbs(p) || c.Home == "" {
		return p
	}
	return filepath.Join(c.Home, HolyGradleDir, p)
}

// StoreOptions builds the options for store.Open
func (c Config) StoreOptions(logger *slog.Logger) store.Options {
	return store.Options{
		Backend:         c.Backend,
		Service:         c.Keyring.Service,
		KeyringBackends: append([]string(nil), c.Keyring.AllowedBackends...),
		KeyringFileDir:  c.Keyring.FileDir,
		FallbackFile:    c.FallbackFile,
		Logger:          logger,
	}
}

// LogLevel is Debug when verbose, Warn otherwise
func (c Config) LogLevel() slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}
