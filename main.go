package main

import (
	"fmt"
	"os"

	"github.com/tphakala/exoplanet-go/cmd"
	"github.com/tphakala/exoplanet-go/internal/conf"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   string
	buildDate string
)

func main() {
	if version != "" {
		conf.BuildVersion = version
	}
	if buildDate != "" {
		conf.BuildDate = buildDate
	}

	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cmd.RootCommand(settings).Execute(); err != nil {
		os.Exit(1)
	}
}
