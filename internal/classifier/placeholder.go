package classifier

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"math/rand/v2"

	"github.com/tphakala/exoplanet-go/internal/features"
)

// Placeholder score range for datasets without a trained model
const (
	placeholderMin = 0.2
	placeholderMax = 0.9
)

// PlaceholderScorer stands in for a model that was never trained. Its score
// is drawn from [0.2, 0.9), seeded from the vector so a row always gets the
// same answer.
type PlaceholderScorer struct {
	version string
}

// NewPlaceholder creates a placeholder tagged with version
func NewPlaceholder(version string) *PlaceholderScorer {
	return &PlaceholderScorer{version: version}
}

func (s *PlaceholderScorer) InputSize() int { return 0 }
func (s *PlaceholderScorer) Version() string { return s.version }
func (s *PlaceholderScorer) Close() error { return nil }

func (s *PlaceholderScorer) Score(vec features.Vector) ([2]float64, error) {
	h := fnv.New64a()
	var buf [4]byte
	for _, v := range vec {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
		_, _ = h.Write(buf[:])
	}
	rng := rand.New(rand.NewPCG(h.Sum64(), uint64(len(vec))))

	p := placeholderMin + rng.Float64()*(placeholderMax-placeholderMin)
	return [2]float64{1 - p, p}, nil
}
