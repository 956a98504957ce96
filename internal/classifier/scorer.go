// Package classifier scores feature vectors with a per-dataset model and
// turns the class probabilities into a prediction.
package classifier

import (
	"math"

	"github.com/tphakala/exoplanet-go/internal/features"
)

// Scorer returns the two-class probability pair [p(not planet), p(planet)].
// Implementations must be safe for concurrent use.
type Scorer interface {
	Score(vec features.Vector) ([2]float64, error)
	// InputSize is the vector length the model expects, 0 if it accepts any
	InputSize() int
	// Version is the artifact's own version tag, empty if it declares none
	Version() string
	Close() error
}

// normalize clamps each probability into [0,1] and rescales the pair to sum
// to one. A pair with no mass becomes an even split.
func normalize(p [2]float64) [2]float64 {
	for i := range p {
		switch {
		case math.IsNaN(p[i]), p[i] < 0:
			p[i] = 0
		case p[i] > 1:
			p[i] = 1
		}
	}
	sum := p[0] + p[1]
	if sum == 0 {
		return [2]float64{0.5, 0.5}
	}
	return [2]float64{p[0] / sum, p[1] / sum}
}

// decide picks the more likely class and reports its probability, so
// confidence is never below 0.5.
func decide(p [2]float64) (isExoplanet bool, confidence float64) {
	p = normalize(p)
	isExoplanet = p[1] > p[0]
	return isExoplanet, math.Max(p[0], p[1])
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
