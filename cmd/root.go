// Package cmd holds the command line interface of exoplanet-go.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/exoplanet-go/cmd/lightcurve"
	"github.com/tphakala/exoplanet-go/cmd/predict"
	"github.com/tphakala/exoplanet-go/cmd/serve"
	"github.com/tphakala/exoplanet-go/cmd/stats"
	"github.com/tphakala/exoplanet-go/internal/conf"
)

// RootCommand creates and returns the root command. Without a subcommand
// it runs the HTTP server.
func RootCommand(settings *conf.Settings) *cobra.Command {
	serveCmd := serve.Command(settings)

	rootCmd := &cobra.Command{
		Use:           "exoplanet-go",
		Short:         "Exoplanet candidate classification service",
		Version:       fmt.Sprintf("%s (built %s)", settings.Version, settings.BuildDate),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          serveCmd.RunE,
	}

	if err := setupFlags(rootCmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
	}

	rootCmd.AddCommand(
		serveCmd,
		predict.Command(settings),
		lightcurve.Command(settings),
		stats.Command(settings),
	)

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Datastore.SQLite.Path, "db", viper.GetString("datastore.sqlite.path"), "Path to the SQLite database")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
