package lightcurve

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Cleaning limits
const (
	maxClipIterations = 5
	savgolOrder       = 2
	gapFactor         = 1.5 // a step longer than this many cadences is a gap
	maxFillFactor     = 4   // gap filling never grows a series beyond this multiple
)

// Series is a time-ordered light curve with normalized flux
type Series struct {
	Time []float64
	Flux []float64
}

// Len returns the number of samples
func (s Series) Len() int { return len(s.Time) }

func (s Series) Swap(i, j int) {
	s.Time[i], s.Time[j] = s.Time[j], s.Time[i]
	s.Flux[i], s.Flux[j] = s.Flux[j], s.Flux[i]
}

func (s Series) Less(i, j int) bool { return s.Time[i] < s.Time[j] }

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

// Stitch normalizes each segment by its median flux and joins them in time
// order. Non-finite samples and segments without usable flux are dropped.
func Stitch(segments []Segment) (Series, error) {
	var out Series
	for i, seg := range segments {
		if len(seg.Time) != len(seg.Flux) {
			return Series{}, fmt.Errorf("segment %d has %d times for %d flux values", i, len(seg.Time), len(seg.Flux))
		}

		var t, f []float64
		for j := range seg.Time {
			if finite(seg.Time[j]) && finite(seg.Flux[j]) {
				t = append(t, seg.Time[j])
				f = append(f, seg.Flux[j])
			}
		}

		m := median(f)
		if !finite(m) || m == 0 {
			continue
		}
		for j := range f {
			f[j] /= m
		}
		out.Time = append(out.Time, t...)
		out.Flux = append(out.Flux, f...)
	}

	if out.Len() == 0 {
		return Series{}, fmt.Errorf("no usable samples in %d segments", len(segments))
	}
	sort.Stable(out)
	return out, nil
}

// SigmaClip removes samples further than sigma standard deviations from the
// median, repeating until nothing more is removed.
func SigmaClip(s Series, sigma float64) Series {
	if sigma <= 0 || s.Len() < 3 {
		return s
	}

	for range maxClipIterations {
		m := median(s.Flux)
		_, std := stat.MeanStdDev(s.Flux, nil)
		if std == 0 || !finite(std) {
			return s
		}

		var kept Series
		for i := range s.Time {
			if math.Abs(s.Flux[i]-m) <= sigma*std {
				kept.Time = append(kept.Time, s.Time[i])
				kept.Flux = append(kept.Flux, s.Flux[i])
			}
		}
		if kept.Len() == s.Len() || kept.Len() < 3 {
			return kept
		}
		s = kept
	}
	return s
}

// FillGaps inserts linearly interpolated samples on the median cadence
// wherever consecutive samples are more than gapFactor cadences apart.
func FillGaps(s Series) Series {
	if s.Len() < 3 {
		return s
	}

	steps := make([]float64, 0, s.Len()-1)
	for i := 1; i < s.Len(); i++ {
		steps = append(steps, s.Time[i]-s.Time[i-1])
	}
	cadence := median(steps)
	if cadence <= 0 || !finite(cadence) {
		return s
	}

	limit := s.Len() * maxFillFactor
	out := Series{
		Time: make([]float64, 0, s.Len()),
		Flux: make([]float64, 0, s.Len()),
	}
	for i := range s.Time {
		if i > 0 {
			t0, t1 := s.Time[i-1], s.Time[i]
			if t1-t0 > gapFactor*cadence {
				f0, f1 := s.Flux[i-1], s.Flux[i]
				for t := t0 + cadence; t < t1-cadence/2 && out.Len() < limit; t += cadence {
					frac := (t - t0) / (t1 - t0)
					out.Time = append(out.Time, t)
					out.Flux = append(out.Flux, f0+frac*(f1-f0))
				}
			}
		}
		out.Time = append(out.Time, s.Time[i])
		out.Flux = append(out.Flux, s.Flux[i])
	}
	return out
}

// savgolCoefficients returns the (order+1) x window least squares projection
// matrix C, so that C*y gives the polynomial coefficients fitted to a window
// centred on offset zero.
func savgolCoefficients(window, order int) (*mat.Dense, error) {
	half := window / 2
	a := mat.NewDense(window, order+1, nil)
	for i := range window {
		x := float64(i - half)
		for j := 0; j <= order; j++ {
			a.Set(i, j, math.Pow(x, float64(j)))
		}
	}

	var ata, inv mat.Dense
	ata.Mul(a.T(), a)
	if err := inv.Inverse(&ata); err != nil {
		return nil, fmt.Errorf("savitzky-golay normal matrix: %w", err)
	}

	var c mat.Dense
	c.Mul(&inv, a.T())
	return &c, nil
}

func evalPoly(coef *mat.VecDense, x float64) float64 {
	v, p := 0.0, 1.0
	for j := range coef.Len() {
		v += coef.AtVec(j) * p
		p *= x
	}
	return v
}

// Flatten divides out a Savitzky-Golay trend. The window shrinks to fit
// short series; series too short to fit a quadratic are returned unchanged.
func Flatten(s Series, window int) (Series, error) {
	n := s.Len()
	if window > n {
		window = n
	}
	if window%2 == 0 {
		window--
	}
	if window < savgolOrder+3 {
		return s, nil
	}

	c, err := savgolCoefficients(window, savgolOrder)
	if err != nil {
		return Series{}, err
	}

	half := window / 2
	trend := make([]float64, n)
	coef := mat.NewVecDense(savgolOrder+1, nil)

	fit := func(start int) {
		coef.MulVec(c, mat.NewVecDense(window, s.Flux[start:start+window]))
	}

	fit(0)
	for i := 0; i < half; i++ {
		trend[i] = evalPoly(coef, float64(i-half))
	}
	for i := half; i < n-half; i++ {
		fit(i - half)
		trend[i] = coef.AtVec(0)
	}
	fit(n - window)
	for i := n - half; i < n; i++ {
		trend[i] = evalPoly(coef, float64(i-(n-window)-half))
	}

	out := Series{Time: slices.Clone(s.Time), Flux: make([]float64, n)}
	for i := range trend {
		if trend[i] == 0 || !finite(trend[i]) {
			out.Flux[i] = 1
			continue
		}
		out.Flux[i] = s.Flux[i] / trend[i]
	}
	return out, nil
}

// Bin averages the series into at most bins equal-width time bins. Empty
// bins are skipped.
func Bin(s Series, bins int) Series {
	if bins <= 0 || s.Len() <= bins {
		return s
	}

	start, end := s.Time[0], s.Time[s.Len()-1]
	width := (end - start) / float64(bins)
	if width <= 0 {
		return s
	}

	out := Series{
		Time: make([]float64, 0, bins),
		Flux: make([]float64, 0, bins),
	}
	i := 0
	for b := range bins {
		hi := start + float64(b+1)*width
		j := i
		for j < s.Len() && (s.Time[j] < hi || b == bins-1) {
			j++
		}
		if j > i {
			out.Time = append(out.Time, stat.Mean(s.Time[i:j], nil))
			out.Flux = append(out.Flux, stat.Mean(s.Flux[i:j], nil))
		}
		i = j
	}
	return out
}

// Clean applies the full cleaning chain. Reduced mode stops after clipping.
func Clean(s Series, sigma float64, window, bins int, reduced bool) (Series, error) {
	s = SigmaClip(s, sigma)
	if reduced {
		return s, nil
	}
	s = FillGaps(s)
	s, err := Flatten(s, window)
	if err != nil {
		return Series{}, err
	}
	return Bin(s, bins), nil
}
