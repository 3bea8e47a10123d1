// Package kernel synthesizes the normalized Gaussian filters used to build
// scale-space octaves.
package kernel

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/mdabdk/Image-Blob-Detection/internal/models"
)

// ErrInvalidSigma is returned for a non-positive or non-finite standard deviation.
var ErrInvalidSigma = errors.New("kernel: sigma must be positive")

// truncate is the number of standard deviations covered by the smoothing
// operator applied to the impulse.
const truncate = 4.0

// Size returns the side length of the kernel for sigma: ceil(6*sigma),
// bumped to the next odd value when even.
func Size(sigma float64) int {
	m := int(math.Ceil(6 * sigma))
	if m%2 == 0 {
		m++
	}
	return m
}

// Gaussian returns a square, odd-sized 2D Gaussian kernel with standard
// deviation sigma whose weights sum to 1.
//
// The kernel is the response of a Gaussian smoothing operator to a unit
// impulse placed at the exact centre of the grid. Because the operator's
// support (4 sigma) is wider than the grid's half-width (3 sigma), the tails
// are reflected back at the grid edges rather than dropped, which keeps the
// kernel normalized.
//
// Parameters:
//   - sigma: standard deviation in pixels, must be > 0
//
// Returns:
//   - A Float64 grid of side Size(sigma)
func Gaussian(sigma float64) (*models.Grid, error) {
	if !(sigma > 0) || math.IsInf(sigma, 1) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidSigma, sigma)
	}

	m := Size(sigma)
	profile := impulseResponse(m, sigma)

	k := models.NewGrid(m, m, models.Float64)
	for r := 0; r < m; r++ {
		for c := 0; c < m; c++ {
			k.Data[r*m+c] = profile[r] * profile[c]
		}
	}
	return k, nil
}

// weights1D returns the normalized sampled Gaussian of radius int(4*sigma+0.5).
func weights1D(sigma float64) []float64 {
	radius := int(truncate*sigma + 0.5)
	w := make([]float64, 2*radius+1)
	for i := range w {
		x := float64(i - radius)
		w[i] = math.Exp(-0.5 * x * x / (sigma * sigma))
	}
	floats.Scale(1/floats.Sum(w), w)
	return w
}

// impulseResponse smooths a length-m unit impulse at m/2 with the 1D
// Gaussian. The 2D kernel is separable, so its rows and columns both follow
// this profile.
func impulseResponse(m int, sigma float64) []float64 {
	w := weights1D(sigma)
	radius := len(w) / 2
	center := m / 2

	out := make([]float64, m)
	for x := range out {
		for j := -radius; j <= radius; j++ {
			if reflect(x+j, m) == center {
				out[x] += w[j+radius]
			}
		}
	}
	return out
}

// reflect maps an out-of-range index back into [0, n) using half-sample
// symmetric extension (d c b a | a b c d | d c b a).
func reflect(i, n int) int {
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i - 1
	}
	return i
}
