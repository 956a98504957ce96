// Package dataset loads the survey candidate tables and identifier lists and
// serves read-only lookups over them.
package dataset

import (
	"slices"

	"github.com/tphakala/exoplanet-go/internal/conf"
)

// Spec describes one dataset's files and column roles.
type Spec struct {
	Name         string
	Title        string
	IDField      string // request body field carrying the identifier
	IDColumn     string
	Disposition  string // empty when the dataset has no catalog disposition
	SecondaryKey string // empty when the dataset has no numeric survey ID
	CSVFile      string
	OptionsFile  string
	SearchPaths  []string
	Features     []string
}

// SpecFromSettings builds a Spec from a dataset configuration block
func SpecFromSettings(name string, ds *conf.DatasetSettings) Spec {
	title := ds.Title
	if title == "" {
		title = name
	}
	return Spec{
		Name:         name,
		Title:        title,
		IDField:      ds.IDField,
		IDColumn:     ds.IDColumn,
		Disposition:  ds.Disposition,
		SecondaryKey: ds.SecondaryKey,
		CSVFile:      ds.CSVFile,
		OptionsFile:  ds.OptionsFile,
		SearchPaths:  slices.Clone(ds.SearchPaths),
		Features:     slices.Clone(ds.Features),
	}
}
