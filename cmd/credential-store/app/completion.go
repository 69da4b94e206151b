package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phillarmonic/credential-store/internal/basis"
	"github.com/phillarmonic/credential-store/internal/config"
)

// Domain: Shell Completion
// This file contains logic for shell completion

func (a *App) createCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate completion script",
		Long: `Generate shell completion script for credential-store.

To load completions:

Bash:

  $ source <(credential-store completion bash)

Zsh:

  $ credential-store completion zsh > "${fpath[1]}/_credential-store"

Fish:

  $ credential-store completion fish | source

PowerShell:

  PS> credential-store completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(exactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return a.rootCmd.GenBashCompletion(a.out)
			case "zsh":
				return a.rootCmd.GenZshCompletion(a.out)
			case "fish":
				return a.rootCmd.GenFishCompletion(a.out, true)
			default:
				return a.rootCmd.GenPowerShellCompletionWithDesc(a.out)
			}
		},
	}
}

// completionConfig resolves the configuration for a completion request,
// which runs without PersistentPreRunE
func (a *App) completionConfig(cmd *cobra.Command) (config.Config, bool) {
	backend, _ := cmd.Flags().GetString("backend")
	basisFile, _ := cmd.Flags().GetString("basis-file")
	cfg, err := config.Load(config.Overrides{Backend: backend, BasisFile: basisFile})
	return cfg, err == nil
}

// completeBasisNames offers the basis names from the basis file
func (a *App) completeBasisNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) != 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	cfg, ok := a.completionConfig(cmd)
	if !ok {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	f, _ := basis.Load(cfg.BasisFile)
	var completions []string
	for _, name := range f.Names() {
		if strings.HasPrefix(name, toComplete) {
			completions = append(completions, name+"\t[basis] "+plural(len(f.Members(name)), "credential"))
		}
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

// completeCredentialNames offers the stored credential names
func (a *App) completeCredentialNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, ok := a.completionConfig(cmd)
	if !ok {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	a.cfg = cfg

	s, closeStore, err := a.openStore()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer closeStore()

	entries, err := s.Enumerate()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var completions []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name, toComplete) {
			completions = append(completions, e.Name+"\t"+e.Username)
		}
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}
