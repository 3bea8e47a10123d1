// Package threshold provides the global threshold strategies used to decide
// whether a DoG response is strong enough to count as a blob.
//
// Three strategies are available. Mean admits the most candidates and the
// most false positives, Otsu sits in between, and Yen is the most
// conservative.
package threshold

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Errors returned by the threshold strategies.
var (
	ErrUnknownMethod = errors.New("threshold: unknown method")
	ErrEmptyLayer    = errors.New("threshold: empty layer")
	ErrNonFinite     = errors.New("threshold: layer contains NaN")
)

// Bins is the number of histogram bins used by Otsu and Yen.
const Bins = 256

// Method names a threshold strategy.
type Method string

const (
	Mean Method = "mean"
	Otsu Method = "otsu"
	Yen  Method = "yen"
)

// Methods lists every supported method.
var Methods = []Method{Mean, Otsu, Yen}

// Strategy computes a single global threshold for a layer's samples.
//
// When the samples span no range at all (a uniform layer) every strategy
// returns the common value, so a strict "greater than" test admits nothing.
type Strategy interface {
	Threshold(values []float64) (float64, error)
	Method() Method
}

// Parse converts a case-insensitive method name to a Method.
func Parse(name string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Methods {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMethod, name)
}

// New returns the strategy for method.
func New(method Method) (Strategy, error) {
	switch method {
	case Mean:
		return MeanStrategy{}, nil
	case Otsu:
		return OtsuStrategy{Bins: Bins}, nil
	case Yen:
		return YenStrategy{Bins: Bins}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}

// MeanStrategy thresholds at the arithmetic mean.
type MeanStrategy struct{}

func (MeanStrategy) Method() Method { return Mean }

func (MeanStrategy) Threshold(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptyLayer
	}
	if floats.HasNaN(values) {
		return 0, ErrNonFinite
	}
	lo, hi := floats.Min(values), floats.Max(values)
	if !(hi > lo) {
		return hi, nil
	}
	return stat.Mean(values, nil), nil
}

// histogram bins values into n equal-width bins over [min, max]; the top bin
// is closed so the maximum is counted. It returns the bin counts, the bin
// centres, and degenerate=true when the values span no range.
func histogram(values []float64, n int) (counts, centers []float64, degenerate bool, err error) {
	if len(values) == 0 {
		return nil, nil, false, ErrEmptyLayer
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	// sort.Float64s orders NaN first
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if math.IsNaN(lo) {
		return nil, nil, false, ErrNonFinite
	}
	if !(hi > lo) || math.IsInf(hi-lo, 0) {
		return nil, []float64{hi}, true, nil
	}

	dividers := floats.Span(make([]float64, n+1), lo, hi)
	centers = make([]float64, n)
	for i := range centers {
		centers[i] = (dividers[i] + dividers[i+1]) / 2
	}
	dividers[n] = math.Nextafter(hi, math.Inf(1))

	counts = stat.Histogram(nil, dividers, sorted, nil)
	return counts, centers, false, nil
}

// argmax returns the index of the first maximum, ignoring NaN.
func argmax(s []float64) int {
	best := 0
	for i := 1; i < len(s); i++ {
		if s[i] > s[best] || math.IsNaN(s[best]) {
			best = i
		}
	}
	return best
}
