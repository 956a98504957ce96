package lightcurve

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tphakala/exoplanet-go/internal/app"
	"github.com/tphakala/exoplanet-go/internal/conf"
)

var (
	outputPath string
	dataset    string
)

// Command creates the lightcurve command writing one PNG light curve.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lightcurve <identifier>",
		Short: "Generate or fetch the light curve of a candidate",
		Long:  "Generate the light curve of a candidate, store it and write the PNG to a file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings.Lightcurve.Enabled = true

			a, err := app.New(cmd.Context(), settings)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			artifact, err := a.Lightcurves.GenerateOrFetch(cmd.Context(), dataset, args[0])
			if err != nil {
				return err
			}

			path := outputPath
			if path == "" {
				path = artifact.Filename
			}
			if err := os.WriteFile(path, artifact.Image, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}

			source := "archive"
			if artifact.Synthetic {
				source = "synthetic"
			}
			if artifact.Cached {
				source += ", cached"
			}
			fmt.Printf("%s: %s (%s)\n", artifact.Identifier, path, source)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output PNG file, defaults to lightcurve_{id}.png")
	cmd.Flags().StringVar(&dataset, "dataset", "kepler", "Dataset the identifier belongs to")

	return cmd
}
