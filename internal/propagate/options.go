package propagate

import (
	"io"
	"log/slog"
	"os"
)

// Recorder receives the outcome of every write attempt. Secrets never
// reach it.
type Recorder interface {
	Record(name, username string, ok bool) error
}

// EngineOptions configures the engine with optional dependencies
type EngineOptions struct {
	// Output receives the per-credential report lines (defaults to os.Stdout)
	Output io.Writer

	// Logger receives debug detail and history failures (defaults to slog.Default)
	Logger *slog.Logger

	// History records each attempt when set
	History Recorder
}

// Option is a functional option for configuring the Engine
type Option func(*EngineOptions)

// WithOutput sets the output writer
func WithOutput(w io.Writer) Option {
	return func(o *EngineOptions) {
		o.Output = w
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(o *EngineOptions) {
		o.Logger = l
	}
}

// WithHistory sets the history recorder
func WithHistory(r Recorder) Option {
	return func(o *EngineOptions) {
		o.History = r
	}
}

func (opts *EngineOptions) applyDefaults() {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
}
