package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phillarmonic/credential-store/internal/basis"
	"github.com/phillarmonic/credential-store/internal/credential"
	cserrors "github.com/phillarmonic/credential-store/internal/errors"
	"github.com/phillarmonic/credential-store/internal/propagate"
	"github.com/phillarmonic/credential-store/internal/store"
)

// Domain: Basis Propagation
// This file contains the commands that read the basis file and write one
// password to many credentials

func (a *App) createForBasisCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "for-basis <basis_name>",
		Aliases: []string{"from-basis"},
		Short:   "Prompt for a user name and password and write them to a basis and its credentials",
		Long: `Prompts for a user name and password, then writes them to the credential
"Intrepid - <basis_name>" and to every credential listed under <basis_name>
in the credential basis file.`,
		Args:              exactArgs(1),
		ValidArgsFunction: a.completeBasisNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runForBasis(args[0])
		},
	}
}

func (a *App) runForBasis(name string) error {
	f := a.loadBases()
	members := basis.ResolveBasis(f, name)
	if len(members) == 0 {
		return &cserrors.EmptyResultError{What: "basis", Name: name, Source: f.Source}
	}

	username, password, err := a.prompter().RequestCredentials(a.currentUser())
	if err != nil {
		return err
	}
	defer store.ClearString(&password)

	s, closeStore, err := a.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	names := append([]string{credential.ApplicationName(name)}, members...)
	return a.propagate(s, propagate.Targets(names, username), password)
}

func (a *App) createForDefaultsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "for-defaults",
		Aliases: []string{"from-default"},
		Short:   "Prompt for a user name and password and write them to every default credential",
		Long: `Prompts for a user name and password, then writes the password to every
Git, Mercurial and "Intrepid - " credential of that user which no basis in
the credential basis file claims. Each credential keeps the user name it is
stored with.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runForDefaults()
		},
	}
}

func (a *App) runForDefaults() error {
	username, password, err := a.prompter().RequestCredentials(a.currentUser())
	if err != nil {
		return err
	}
	defer store.ClearString(&password)

	s, closeStore, err := a.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	f := a.loadBases()
	entries, err := s.Enumerate()
	if err != nil {
		return fmt.Errorf("cannot enumerate credentials: %w", err)
	}

	targets, err := basis.DefaultTargets(f, entries, credential.NewClassifier(s), username)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return &cserrors.EmptyResultError{What: "defaults", Name: username, Source: f.Source}
	}

	return a.propagate(s, targets, password)
}

// propagate writes password to targets and turns the report into the
// command result: only a complete failure is an error
func (a *App) propagate(s store.Store, targets []propagate.Target, password string) error {
	rec := a.openHistory()
	defer func() { _ = rec.Close() }()

	engine := propagate.NewEngine(s,
		propagate.WithOutput(a.out),
		propagate.WithLogger(a.logger),
		propagate.WithHistory(rec),
	)
	report := engine.Propagate(targets, password)

	if report.AllFailed() {
		return &cserrors.PropagationError{Failed: report.Failed(), Total: len(report)}
	}
	if n := report.Failed(); n > 0 {
		fmt.Fprintf(a.errOut, "Warning: %v\n", &cserrors.PropagationError{Failed: n, Total: len(report)})
	}
	return nil
}

func (a *App) createListBasesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list-bases",
		Short: "List the basis names in the credential basis file",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := a.loadBases()
			fmt.Fprintf(a.out, "The following basis credentials exist in %s:\n", f.Source)
			for _, name := range f.Names() {
				fmt.Fprintln(a.out, name)
			}
			return nil
		},
	}
}

func (a *App) createListBasisCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "list-basis <basis_name>",
		Short:             "List the credentials under one basis",
		Args:              exactArgs(1),
		ValidArgsFunction: a.completeBasisNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := a.loadBases()
			members := basis.ResolveBasis(f, args[0])
			if len(members) == 0 {
				return &cserrors.EmptyResultError{What: "basis", Name: args[0], Source: f.Source}
			}
			for _, m := range members {
				fmt.Fprintln(a.out, m)
			}
			return nil
		},
	}
}

func (a *App) createListDefaultsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list-defaults [username]",
		Short: "List the credentials for-defaults would write",
		Long: `Lists the Git, Mercurial and "Intrepid - " credentials of <username> that no
basis claims. <username> defaults to the current user.`,
		Args: rangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := a.currentUser()
			if len(args) == 1 {
				username = args[0]
			}
			return a.runListDefaults(username)
		},
	}
}

func (a *App) runListDefaults(username string) error {
	s, closeStore, err := a.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	f := a.loadBases()
	entries, err := s.Enumerate()
	if err != nil {
		return fmt.Errorf("cannot enumerate credentials: %w", err)
	}

	names, err := basis.ResolveDefaults(f, entries, credential.NewClassifier(s), username)
	if err != nil {
		return err
	}

	if len(names) == 0 {
		fmt.Fprintf(a.out, "There are no Git, Mercurial or Intrepid credentials for '%s' that are not listed in\n  %s.\n", username, f.Source)
		return nil
	}
	fmt.Fprintf(a.out, "The following Git, Mercurial and Intrepid credentials are not listed in\n  %s:\n", f.Source)
	for _, name := range names {
		fmt.Fprintln(a.out, name)
	}
	return nil
}
