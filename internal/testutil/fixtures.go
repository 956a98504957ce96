package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tphakala/exoplanet-go/internal/conf"
)

// Fixture identifiers present in the generated datasets.
const (
	KeplerConfirmed     = "K00752.01"
	KeplerFalsePositive = "K00752.02"
	KeplerSparse        = "K00753.01" // several feature cells left empty
	KeplerKepid         = int64(10797460)
	TESSCandidate       = "1000.01"
	TESSTid             = int64(50365310)

	// OptionsPerDataset is the length of each generated options file
	OptionsPerDataset = 30
)

// WriteDatasetFixtures writes Kepler and TESS tables and options files into
// dir and returns settings that find them there.
func WriteDatasetFixtures(t *testing.T, dir string) *conf.Settings {
	t.Helper()

	settings := conf.NewTestSettings().
		WithDataDir(dir).
		WithSQLite(filepath.Join(dir, "predictions.db")).
		Build()

	kepler := settings.Datasets["kepler"]
	writeCSV(t, filepath.Join(dir, kepler.CSVFile),
		append([]string{"kepid", "kepoi_name", "koi_disposition"}, kepler.Features...),
		[][]string{
			keplerRow(KeplerKepid, KeplerConfirmed, "CONFIRMED", len(kepler.Features), 1),
			keplerRow(KeplerKepid, KeplerFalsePositive, "FALSE POSITIVE", len(kepler.Features), 2),
			sparseRow([]string{"10811496", KeplerSparse, "CANDIDATE"}, len(kepler.Features)),
			keplerRow(99, KeplerConfirmed, "DUPLICATE", len(kepler.Features), 9),
		})

	tess := settings.Datasets["tess"]
	writeCSV(t, filepath.Join(dir, tess.CSVFile),
		append([]string{"tid", "toi"}, tess.Features...),
		[][]string{
			numericRow([]string{fmt.Sprint(TESSTid), TESSCandidate}, len(tess.Features), 3),
			numericRow([]string{"88863718", "1001.01"}, len(tess.Features), 4),
		})

	writeOptions(t, filepath.Join(dir, kepler.OptionsFile), "K%05d.01")
	writeOptions(t, filepath.Join(dir, tess.OptionsFile), "%d.01")
	writeLogisticModel(t, filepath.Join(dir, kepler.Model.Path), kepler.Features)

	return settings
}

func keplerRow(kepid int64, name, disposition string, features, seed int) []string {
	return numericRow([]string{fmt.Sprint(kepid), name, disposition}, features, seed)
}

func numericRow(prefix []string, features, seed int) []string {
	row := append([]string(nil), prefix...)
	for i := range features {
		row = append(row, fmt.Sprintf("%g", float64(seed)+float64(i)/10))
	}
	return row
}

func sparseRow(prefix []string, features int) []string {
	row := append([]string(nil), prefix...)
	for i := range features {
		if i%3 == 0 {
			row = append(row, "")
		} else {
			row = append(row, "1.5")
		}
	}
	return row
}

func writeCSV(t *testing.T, path string, header []string, rows [][]string) {
	t.Helper()
	var b strings.Builder
	b.WriteString(strings.Join(header, ",") + "\n")
	for _, row := range rows {
		b.WriteString(strings.Join(row, ",") + "\n")
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
}

// writeOptions writes OptionsPerDataset identifiers. The first entry of the
// Kepler list is 752 so the confirmed fixture appears in it.
func writeOptions(t *testing.T, path, format string) {
	t.Helper()
	var b strings.Builder
	for i := range OptionsPerDataset {
		fmt.Fprintf(&b, format+"\n", 752+i)
	}
	b.WriteString("\n   \n")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
}

// writeLogisticModel writes an unscaled artifact with small positive weights,
// so every fully populated fixture row scores as a planet.
func writeLogisticModel(t *testing.T, path string, columns []string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))

	var b strings.Builder
	b.WriteString("version: Kepler-Fixture-0.1.0\nfeatures:\n")
	weights := make([]string, len(columns))
	for i, col := range columns {
		fmt.Fprintf(&b, "  - %s\n", col)
		weights[i] = "0.1"
	}
	fmt.Fprintf(&b, "weights: [%s]\nbias: -0.5\n", strings.Join(weights, ", "))
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
}
