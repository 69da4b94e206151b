package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phillarmonic/credential-store/internal/credential"
	"github.com/phillarmonic/credential-store/internal/store"
)

// Domain: Single Credentials
// This file contains the get, set, delete and cache-mercurial commands

func (a *App) createGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:                "get <credential_name>",
		Short:              "Print a credential as <username>&&&<password>",
		DisableFlagParsing: true,
		Args:               rawArgs(1),
		ValidArgsFunction:  a.completeCredentialNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			args, _ = splitFlags(cmd, args)
			return a.runGet(args[0])
		},
	}
}

func (a *App) runGet(name string) error {
	s, closeStore, err := a.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	cred, err := s.Read(name)
	if err != nil {
		return fmt.Errorf("cannot read credential %q: %w", name, err)
	}

	// No trailing newline: callers split the output on "&&&".
	fmt.Fprintf(a.out, "%s&&&%s", cred.Username, cred.Secret)
	return nil
}

func (a *App) createSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <credential_name> <username> <password>",
		Short: "Set a credential to <username> and <password>",
		Long: `Sets a credential to <username> and <password>. The arguments are taken
verbatim, so a password may start with "-". Global flags go before them.`,
		DisableFlagParsing: true,
		Args:               rawArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			args, _ = splitFlags(cmd, args)
			return a.runSet(args[0], args[1], args[2])
		},
	}
}

func (a *App) runSet(name, username, password string) error {
	s, closeStore, err := a.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	err = s.Write(store.Credential{Name: name, Username: username, Secret: password}, store.Enterprise)

	rec := a.openHistory()
	defer func() { _ = rec.Close() }()
	if herr := rec.Record(name, username, err == nil); herr != nil {
		a.logger.Warn("failed to record credential update", "name", name, "error", herr)
	}

	if err != nil {
		fmt.Fprintf(a.out, "ERROR: Failed to update: %s\n", name)
		return fmt.Errorf("cannot write credential %q: %w", name, err)
	}
	fmt.Fprintf(a.out, "Updated: %s\n", name)
	return nil
}

func (a *App) createDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "delete <credential_name>",
		Short:             "Remove a credential",
		Args:              exactArgs(1),
		ValidArgsFunction: a.completeCredentialNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDelete(args[0])
		},
	}
}

func (a *App) runDelete(name string) error {
	s, closeStore, err := a.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	if _, err := s.Read(name); err != nil {
		return fmt.Errorf("cannot delete credential %q: %w", name, err)
	}
	if err := s.Delete(name); err != nil {
		return fmt.Errorf("cannot delete credential %q: %w", name, err)
	}

	rec := a.openHistory()
	defer func() { _ = rec.Close() }()
	if err := rec.Forget(name); err != nil {
		a.logger.Warn("failed to forget credential history", "name", name, "error", err)
	}

	fmt.Fprintf(a.out, "Deleted: %s\n", name)
	return nil
}

func (a *App) createCacheMercurialCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cache-mercurial <url> <username> <password>",
		Short: "Cache Mercurial credentials for a repository URL",
		Long: `Writes the two entries the Mercurial keyring extension reads:
"Mercurial" and "<username>@@<url>@Mercurial", both with the user name
"<username>@@<url>". The entries are kept on this machine only.`,
		DisableFlagParsing: true,
		Args:               rawArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			args, _ = splitFlags(cmd, args)
			return a.runCacheMercurial(args[0], args[1], args[2])
		},
	}
}

func (a *App) runCacheMercurial(url, username, password string) error {
	s, closeStore, err := a.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	rec := a.openHistory()
	defer func() { _ = rec.Close() }()

	user := credential.MercurialUser(username, url)
	for _, name := range []string{credential.MercurialCacheName, credential.MercurialName(username, url)} {
		err := s.Write(store.Credential{Name: name, Username: user, Secret: password}, store.LocalMachine)
		if herr := rec.Record(name, user, err == nil); herr != nil {
			a.logger.Warn("failed to record credential update", "name", name, "error", herr)
		}
		if err != nil {
			fmt.Fprintf(a.out, "Failed to cache Mercurial credentials for %s, %s.\n", username, url)
			return fmt.Errorf("cannot write credential %q: %w", name, err)
		}
	}

	fmt.Fprintf(a.out, "    Cached Mercurial credentials for %s, %s.\n", username, url)
	return nil
}
