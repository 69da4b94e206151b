package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phillarmonic/credential-store/internal/archive"
	"github.com/phillarmonic/credential-store/internal/basis"
	cserrors "github.com/phillarmonic/credential-store/internal/errors"
)

// Domain: Basis File Sharing
// This file contains the export-bases and import-bases commands

func (a *App) bundle() (archive.Bundle, error) {
	if a.cfg.BasisFile == "" {
		return archive.Bundle{}, &cserrors.ConfigurationError{Message: "the credential basis file location is unknown"}
	}
	return archive.Bundle{
		BasisFile:    a.cfg.BasisFile,
		SettingsFile: a.cfg.SettingsFile,
	}, nil
}

func (a *App) createExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export-bases <archive.tar.gz>",
		Short: "Write the basis file and settings file to a tar.gz archive",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.bundle()
			if err != nil {
				return err
			}
			entries, err := archive.Export(cmd.Context(), args[0], b)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(a.out, "Exported: %s\n", e)
			}
			return nil
		},
	}
}

func (a *App) createImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import-bases <archive>",
		Short: "Restore the basis file and settings file from an archive",
		Long: `Restores credential-bases.txt and credential-store.yml from an archive made
by export-bases. Replaced files are kept with a .bak suffix. The restored
basis file is checked and its warnings are printed.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.bundle()
			if err != nil {
				return err
			}
			written, err := archive.Import(cmd.Context(), args[0], b)
			for _, w := range written {
				fmt.Fprintf(a.out, "Imported: %s\n", w)
			}
			if err != nil {
				if errors.Is(err, archive.ErrNoBasisFile) {
					return fmt.Errorf("%s: %w", args[0], err)
				}
				return err
			}

			f, warnings := basis.Load(b.BasisFile)
			if len(warnings) > 0 {
				fmt.Fprint(a.errOut, cserrors.FormatDiagnostics(basis.Diagnostics(warnings), a.colorErrors()))
			}
			fmt.Fprintf(a.out, "%d bases available\n", f.Len())
			return nil
		},
	}
}
