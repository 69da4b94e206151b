// Package propagate writes one user name and password to a set of stored
// credentials, reporting each outcome and carrying on past failures.
package propagate

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/phillarmonic/credential-store/internal/store"
)

// Target is one credential to overwrite and the user name to store with it
type Target struct {
	Name     string
	Username string
}

// Result is the outcome of writing one target
type Result struct {
	Name string
	Err  error
}

// OK reports whether the write succeeded
func (r Result) OK() bool {
	return r.Err == nil
}

// Report lists results in target order
type Report []Result

// Succeeded counts successful writes
func (r Report) Succeeded() int {
	n := 0
	for _, res := range r {
		if res.OK() {
			n++
		}
	}
	return n
}

// Failed counts failed writes
func (r Report) Failed() int {
	return len(r) - r.Succeeded()
}

// AllFailed is true for a non-empty report in which no write succeeded
func (r Report) AllFailed() bool {
	return len(r) > 0 && r.Succeeded() == 0
}

// Targets pairs every name with the same user name
func Targets(names []string, username string) []Target {
	targets := make([]Target, 0, len(names))
	for _, name := range names {
		targets = append(targets, Target{Name: name, Username: username})
	}
	return targets
}

// Engine performs the fan-out writes
type Engine struct {
	store   store.Store
	output  io.Writer
	logger  *slog.Logger
	history Recorder
}

// NewEngine creates an engine writing to s
func NewEngine(s store.Store, opts ...Option) *Engine {
	o := &EngineOptions{}
	for _, opt := range opts {
		opt(o)
	}
	o.applyDefaults()

	return &Engine{
		store:   s,
		output:  o.Output,
		logger:  o.Logger,
		history: o.History,
	}
}

// Propagate writes password to every target in order with enterprise
// persistence. A failed write is reported and the next target is tried;
// nothing is retried.
func (e *Engine) Propagate(targets []Target, password string) Report {
	report := make(Report, 0, len(targets))

	for _, t := range targets {
		err := e.store.Write(store.Credential{
			Name:     t.Name,
			Username: t.Username,
			Secret:   password,
		}, store.Enterprise)

		if err != nil {
			fmt.Fprintf(e.output, "ERROR: Failed to update: %s\n", t.Name)
			e.logger.Debug("credential update failed", "name", t.Name, "error", err)
		} else {
			fmt.Fprintf(e.output, "Updated: %s\n", t.Name)
		}

		e.record(t, err == nil)
		report = append(report, Result{Name: t.Name, Err: err})
	}

	return report
}

func (e *Engine) record(t Target, ok bool) {
	if e.history == nil {
		return
	}
	if err := e.history.Record(t.Name, t.Username, ok); err != nil {
		e.logger.Warn("failed to record credential update", "name", t.Name, "error", err)
	}
}
