package predict

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/exoplanet-go/internal/app"
	"github.com/tphakala/exoplanet-go/internal/conf"
	"github.com/tphakala/exoplanet-go/internal/datastore"
)

var save bool

// Command creates the predict command scoring one candidate.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict <dataset> <identifier>",
		Short: "Classify one candidate from the command line",
		Long:  "Look a candidate up in a dataset, score it and print the result as JSON.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context(), settings)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			p, err := a.Predict(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			if save {
				record := &datastore.PredictionRecord{
					ExoplanetID: p.Identifier,
					Dataset:     p.Dataset,
					Timestamp:   p.CreatedAt.UTC().Format(time.RFC3339Nano),
					Prediction: &datastore.PredictionDetail{
						Confidence:   p.Confidence,
						IsExoplanet:  p.IsExoplanet,
						ModelVersion: p.ModelVersion,
					},
				}
				if _, err := a.Store.SavePrediction(cmd.Context(), record); err != nil {
					return fmt.Errorf("failed to save prediction: %w", err)
				}
			}

			out := map[string]any{"prediction": p.Result}
			if p.Disposition != "" {
				out["nasa_classification"] = p.Disposition
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "Store the prediction in the history")

	return cmd
}
