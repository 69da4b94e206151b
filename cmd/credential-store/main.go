package main

import (
	"fmt"
	"os"

	"github.com/phillarmonic/credential-store/cmd/credential-store/app"
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := app.NewApp(version, commit, date).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}
