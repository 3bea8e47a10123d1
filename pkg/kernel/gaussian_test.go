package kernel

import (
	"errors"
	"math"
	"testing"
)

// TestSize verifies the odd side length rule
func TestSize(t *testing.T) {
	cases := []struct {
		sigma float64
		want  int
	}{
		{0.5, 3},
		{1.0, 7},
		{1.6, 11},
		{2.0, 13},
		{1.6 * math.Sqrt2, 15},
	}

	for _, tc := range cases {
		if got := Size(tc.sigma); got != tc.want {
			t.Errorf("Size(%v): expected %d, got %d", tc.sigma, tc.want, got)
		}
	}
}

// TestGaussianNormalized checks shape, normalization, symmetry and peak position
func TestGaussianNormalized(t *testing.T) {
	for _, sigma := range []float64{0.5, 1.0, 1.6, 2.26, 3.2, 6.4} {
		k, err := Gaussian(sigma)
		if err != nil {
			t.Fatalf("Gaussian(%v) failed: %v", sigma, err)
		}

		m := Size(sigma)
		if k.Rows != m || k.Cols != m {
			t.Fatalf("Gaussian(%v): expected %dx%d, got %dx%d", sigma, m, m, k.Rows, k.Cols)
		}
		if m%2 != 1 {
			t.Errorf("Gaussian(%v): side %d is not odd", sigma, m)
		}

		sum := 0.0
		for _, v := range k.Data {
			if v < 0 {
				t.Errorf("Gaussian(%v): negative weight %g", sigma, v)
			}
			sum += v
		}
		if math.Abs(sum-1) > 1e-12 {
			t.Errorf("Gaussian(%v): weights sum to %.15f, expected 1", sigma, sum)
		}

		c := m / 2
		peak := k.At(c, c)
		for r := 0; r < m; r++ {
			for col := 0; col < m; col++ {
				if k.At(r, col) > peak {
					t.Errorf("Gaussian(%v): weight at (%d,%d) exceeds centre", sigma, r, col)
				}
				if math.Abs(k.At(r, col)-k.At(m-1-r, m-1-col)) > 1e-15 {
					t.Errorf("Gaussian(%v): kernel not point-symmetric at (%d,%d)", sigma, r, col)
				}
				if math.Abs(k.At(r, col)-k.At(col, r)) > 1e-15 {
					t.Errorf("Gaussian(%v): kernel not transpose-symmetric at (%d,%d)", sigma, r, col)
				}
			}
		}
	}
}

// TestGaussianMatchesAnalyticCore compares the centre row against the sampled
// Gaussian where no reflected tail reaches
func TestGaussianMatchesAnalyticCore(t *testing.T) {
	sigma := 2.0
	k, err := Gaussian(sigma)
	if err != nil {
		t.Fatal(err)
	}

	w := weights1D(sigma)
	radius := len(w) / 2
	c := k.Rows / 2

	// the centre sample only receives the direct contribution
	want := w[radius] * w[radius]
	if math.Abs(k.At(c, c)-want) > 1e-15 {
		t.Errorf("Centre weight: expected %g, got %g", want, k.At(c, c))
	}
}

// TestGaussianInvalidSigma ensures value-domain errors are reported
func TestGaussianInvalidSigma(t *testing.T) {
	for _, sigma := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if _, err := Gaussian(sigma); !errors.Is(err, ErrInvalidSigma) {
			t.Errorf("Gaussian(%v): expected ErrInvalidSigma, got %v", sigma, err)
		}
	}
}

// TestReflect exercises half-sample symmetric index mapping
func TestReflect(t *testing.T) {
	n := 4
	cases := map[int]int{-1: 0, -2: 1, -4: 3, -5: 3, 0: 0, 3: 3, 4: 3, 5: 2, 7: 0, 8: 0}
	for in, want := range cases {
		if got := reflect(in, n); got != want {
			t.Errorf("reflect(%d, %d): expected %d, got %d", in, n, want, got)
		}
	}
}
