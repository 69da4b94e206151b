package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// Domain: Update History
// This file contains the history command

func (a *App) createHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "history <credential_name>...",
		Short:             "Show when credentials were last written by this tool",
		Args:              minimumArgs(1),
		ValidArgsFunction: a.completeCredentialNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runHistory(args)
		},
	}
}

func (a *App) runHistory(names []string) error {
	if !a.cfg.History.Enabled {
		fmt.Fprintln(a.errOut, "Warning: history is disabled in the settings file")
	}

	rec := a.openHistory()
	defer func() { _ = rec.Close() }()

	for _, name := range names {
		r, found, err := rec.Last(name)
		if err != nil {
			return err
		}
		if !found {
			fmt.Fprintf(a.out, "%s: no recorded update\n", name)
			continue
		}

		status := "updated"
		if !r.OK {
			status = "FAILED"
		}
		fmt.Fprintf(a.out, "%s: %s for %s at %s\n", name, status, r.Username, r.UpdatedAt.Local().Format(time.RFC3339))
	}
	return nil
}
