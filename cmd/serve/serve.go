package serve

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/exoplanet-go/internal/api"
	"github.com/tphakala/exoplanet-go/internal/app"
	"github.com/tphakala/exoplanet-go/internal/conf"
)

// Command creates the serve command running the HTTP API.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the classification HTTP API",
		Long:  "Load the datasets and serve predictions, search, history and light curves over HTTP.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.WebServer.Host, "host", viper.GetString("webserver.host"), "Address to listen on, empty for all interfaces")
	cmd.Flags().StringVarP(&settings.WebServer.Port, "port", "p", viper.GetString("webserver.port"), "Port to listen on")
	cmd.Flags().BoolVar(&settings.Lightcurve.Enabled, "lightcurves", viper.GetBool("lightcurve.enabled"), "Enable light-curve generation")
	cmd.Flags().BoolVar(&settings.Metrics.Enabled, "metrics", viper.GetBool("metrics.enabled"), "Expose Prometheus metrics at /api/metrics")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}

func run(ctx context.Context, settings *conf.Settings) error {
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.New(ctx, settings)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	opts := []api.ServerOption{
		api.WithLogger(a.Log.Module("api")),
		api.WithCatalog(a.Catalog),
		api.WithPredictor(a.Predictor),
		api.WithDataStore(a.Store),
		api.WithMetrics(a.Metrics),
	}
	if a.Lightcurves != nil {
		opts = append(opts, api.WithLightcurves(a.Lightcurves))
	}

	server, err := api.New(settings, opts...)
	if err != nil {
		return err
	}
	return server.StartWithGracefulShutdown()
}
