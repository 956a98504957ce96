package classifier

import (
	"fmt"
	"os"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/exoplanet-go/internal/errors"
	"github.com/tphakala/exoplanet-go/internal/features"
)

// LogisticArtifact is the on-disk form of a standardized logistic regression.
type LogisticArtifact struct {
	Version  string    `yaml:"version"`
	Features []string  `yaml:"features"`
	Weights  []float64 `yaml:"weights"`
	Bias     float64   `yaml:"bias"`
	Scale    *struct {
		Mean []float64 `yaml:"mean"`
		Std  []float64 `yaml:"std"`
	} `yaml:"scale,omitempty"`
}

// LogisticScorer evaluates a LogisticArtifact. It holds no mutable state.
type LogisticScorer struct {
	artifact LogisticArtifact
}

// LoadLogistic reads and validates a logistic artifact
func LoadLogistic(path string) (*LogisticScorer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(err).
			Component("classifier").
			Category(errors.CategoryFileIO).
			FileContext(path).
			Build()
	}

	var artifact LogisticArtifact
	if err := yaml.Unmarshal(data, &artifact); err != nil {
		return nil, errors.New(err).
			Component("classifier").
			Category(errors.CategoryFileParsing).
			FileContext(path).
			Build()
	}

	return NewLogistic(artifact)
}

// NewLogistic validates artifact and wraps it in a scorer
func NewLogistic(artifact LogisticArtifact) (*LogisticScorer, error) {
	n := len(artifact.Weights)
	if n == 0 {
		return nil, errors.NewStd("logistic artifact has no weights")
	}
	if len(artifact.Features) != 0 && len(artifact.Features) != n {
		return nil, fmt.Errorf("logistic artifact lists %d features for %d weights", len(artifact.Features), n)
	}
	if artifact.Scale != nil {
		if len(artifact.Scale.Mean) != n || len(artifact.Scale.Std) != n {
			return nil, fmt.Errorf("logistic artifact scale must have %d means and stds", n)
		}
		if slices.Contains(artifact.Scale.Std, 0) {
			return nil, errors.NewStd("logistic artifact has a zero standard deviation")
		}
	}
	return &LogisticScorer{artifact: artifact}, nil
}

// Features returns the columns the artifact was fitted on, if it lists them
func (s *LogisticScorer) Features() []string { return slices.Clone(s.artifact.Features) }

func (s *LogisticScorer) InputSize() int { return len(s.artifact.Weights) }
func (s *LogisticScorer) Version() string { return s.artifact.Version }
func (s *LogisticScorer) Close() error { return nil }

// Score standardizes vec when the artifact carries a scale and applies the
// logistic function to the weighted sum.
func (s *LogisticScorer) Score(vec features.Vector) ([2]float64, error) {
	x := vec.Float64s()
	if scale := s.artifact.Scale; scale != nil {
		floats.Sub(x, scale.Mean)
		floats.Div(x, scale.Std)
	}
	p := sigmoid(floats.Dot(x, s.artifact.Weights) + s.artifact.Bias)
	return [2]float64{1 - p, p}, nil
}
