package app

import (
	"fmt"
	"io"

	"github.com/phillarmonic/figlet/figletlib"
	"github.com/spf13/cobra"
)

// Domain: Version Display
// This file contains logic for displaying version information

func (a *App) createVersionCommand() *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if plain {
				return PrintVersion(a.out, a.version, a.commit, a.date)
			}
			return ShowVersion(a.out, a.version, a.commit, a.date)
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "Print version information without the banner")
	return cmd
}

// ShowVersion displays version information with ASCII art
func ShowVersion(w io.Writer, version, commit, date string) error {
	loader := figletlib.NewEmbededLoader()
	font, err := loader.GetFontByName("standard")
	if err != nil {
		return err
	}

	startColor, _ := figletlib.ParseColor("#00FF95")
	endColor, _ := figletlib.ParseColor("#00C2FF")
	gradientConfig := figletlib.ColorConfig{
		Mode:       figletlib.ColorModeGradient,
		StartColor: startColor,
		EndColor:   endColor,
	}

	fmt.Fprintln(w, "")
	figletlib.FPrintColoredMsg(w, "credential-store", font, 80, font.Settings(), "left", gradientConfig)

	fmt.Fprintln(w, "Credential store and basis propagation for Holy Gradle")
	fmt.Fprintln(w, "")
	return PrintVersion(w, version, commit, date)
}

// PrintVersion prints the version lines only
func PrintVersion(w io.Writer, version, commit, date string) error {
	fmt.Fprintf(w, "Version %s\n", version)
	if commit != "unknown" {
		fmt.Fprintf(w, "commit: %s\n", commit)
	}
	if date != "unknown" {
		fmt.Fprintf(w, "built: %s\n", date)
	}
	return nil
}
