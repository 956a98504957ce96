// Package features turns dataset rows into the fixed-order vectors a model
// was trained on.
package features

import (
	"slices"
	"strings"

	"github.com/tphakala/exoplanet-go/internal/errors"
)

// Vector is an ordered feature vector
type Vector []float32

// Source is anything that exposes named numeric cells, such as dataset.Row.
// Get reports whether the column exists; Float whether its value is usable.
type Source interface {
	Get(column string) (string, bool)
	Float(column string) (float64, bool)
}

// Extractor selects and orders a fixed set of columns.
type Extractor struct {
	columns []string
}

// NewExtractor creates an extractor for columns, in model order
func NewExtractor(columns []string) *Extractor {
	return &Extractor{columns: slices.Clone(columns)}
}

// Columns returns the feature columns in order
func (e *Extractor) Columns() []string { return slices.Clone(e.columns) }

// Len returns the vector length this extractor produces
func (e *Extractor) Len() int { return len(e.columns) }

// CheckSchema verifies every feature column exists in header. Run once when
// a dataset is loaded; a failure means the dataset and model disagree.
func (e *Extractor) CheckSchema(header []string) error {
	var missing []string
	for _, col := range e.columns {
		if !slices.Contains(header, col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return errors.FeatureMismatch("dataset is missing feature columns: " + strings.Join(missing, ", "))
	}
	return nil
}

// Extract builds the vector for src. Empty or NaN cells become zero; a column
// absent from the schema is a contract violation.
func (e *Extractor) Extract(src Source) (Vector, error) {
	vec := make(Vector, len(e.columns))
	for i, col := range e.columns {
		if _, ok := src.Get(col); !ok {
			return nil, errors.FeatureMismatch("feature column " + col + " is not in the dataset")
		}
		if v, ok := src.Float(col); ok {
			vec[i] = float32(v)
		}
	}
	return vec, nil
}

// Float64s returns a float64 copy of v
func (v Vector) Float64s() []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
