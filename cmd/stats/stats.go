package stats

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/tphakala/exoplanet-go/internal/app"
	"github.com/tphakala/exoplanet-go/internal/conf"
)

// Command creates the stats command summarizing the prediction history.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print prediction history statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context(), settings)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			stats, err := a.Store.PredictionStats(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Total predictions:  %d\n", stats.TotalPredictions)
			fmt.Printf("Exoplanets found:   %d\n", stats.ExoplanetsFound)
			fmt.Printf("Average confidence: %.2f\n", stats.AverageConfidence)
			fmt.Printf("Success rate:       %.2f%%\n", stats.SuccessRate)

			names := make([]string, 0, len(stats.DatasetBreakdown))
			for name := range stats.DatasetBreakdown {
				names = append(names, name)
			}
			slices.Sort(names)
			for _, name := range names {
				fmt.Printf("  %-10s %d\n", name, stats.DatasetBreakdown[name])
			}
			return nil
		},
	}
}
