package lightcurve

import (
	"math"
	"math/rand/v2"
)

// Synthetic curve shape
const (
	syntheticPoints   = 500
	syntheticDays     = 100.0
	syntheticNoise    = 0.02
	syntheticDipDepth = 0.15
	syntheticDipWidth = 1.0 // days either side of a transit centre
	syntheticYMin     = 0.8
	syntheticYMax     = 1.2
)

var syntheticTransits = []float64{20, 40, 60, 80}

// Synthetic builds a demonstration curve: two sinusoids, gaussian noise and
// four transit dips. The noise is seeded from key, so a key always yields
// the same curve.
func Synthetic(key int64) Series {
	rng := rand.New(rand.NewPCG(uint64(key), 0x6c69676874)) //nolint:gosec // not security sensitive

	s := Series{
		Time: make([]float64, syntheticPoints),
		Flux: make([]float64, syntheticPoints),
	}
	step := syntheticDays / float64(syntheticPoints-1)
	for i := range syntheticPoints {
		t := float64(i) * step
		f := 1 + 0.1*math.Sin(2*math.Pi*t/10) + 0.05*math.Sin(2*math.Pi*t/3)
		f += syntheticNoise * rng.NormFloat64()
		for _, tc := range syntheticTransits {
			if math.Abs(t-tc) < syntheticDipWidth {
				f -= syntheticDipDepth
			}
		}
		s.Time[i] = t
		s.Flux[i] = f
	}
	return s
}
