// Package convolution implements linear (non-circular) 2D convolution in the
// frequency domain.
//
// Both operands are zero-padded to the full linear-convolution size before
// their spectra are multiplied, so the product never wraps around. The
// result is shifted and cropped back to the footprint of the first operand,
// which matches a "same" mode spatial convolution.
//
// When the second operand is a filter applied to an image, the output can
// be shaped like a conventional image filter (clamped to [0, 255] and cast
// back to the input's integral type); otherwise it is returned as a plain
// floating point convolution.
package convolution

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/mdabdk/Image-Blob-Detection/internal/models"
)

// Errors returned by the convolution engine.
var (
	ErrEmptyInput      = errors.New("convolution: empty input")
	ErrEmptyKernel     = errors.New("convolution: empty kernel")
	ErrMalformedGrid   = errors.New("convolution: sample count does not match shape")
	ErrUnsupportedKind = errors.New("convolution: unsupported element kind")
)

// Engine convolves grids using a worker pool for the 2D transforms.
// An Engine holds no per-call state and is safe for concurrent use.
type Engine struct {
	workers int
}

// NewEngine creates an engine that spreads each transform over the given
// number of goroutines. Values below 1 select runtime.NumCPU().
func NewEngine(workers int) *Engine {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &Engine{workers: workers}
}

// Workers returns the number of goroutines used per transform.
func (e *Engine) Workers() int {
	return e.workers
}

var defaultEngine = NewEngine(0)

// Convolve convolves f with h using an engine sized to the machine.
func Convolve(f, h *models.Grid, imageFilter bool) (*models.Grid, error) {
	return defaultEngine.Convolve(f, h, imageFilter)
}

// PaddedShape returns the minimum canvas that holds the linear convolution
// of an a x b array with a c x d array: (a+c-1) x (b+d-1).
func PaddedShape(a, b, c, d int) (p, q int) {
	return a + c - 1, b + d - 1
}

// PadSizes returns how many zero rows/columns go before and after a
// rows x cols array so that it sits centred in a p x q canvas. When the
// required padding is odd the extra row/column goes before the content.
func PadSizes(rows, cols, p, q int) (top, bottom, left, right int) {
	top = (p - rows + 1) / 2
	bottom = (p - rows) / 2
	left = (q - cols + 1) / 2
	right = (q - cols) / 2
	return top, bottom, left, right
}

// Center returns the centre index along a dimension of length n:
// n/2 for odd n and n/2-1 for even n.
func Center(n int) int {
	if n%2 == 1 {
		return n / 2
	}
	return n/2 - 1
}

// Convolve returns the linear convolution of f (A x B) with h (C x D),
// cropped to A x B and typed according to imageFilter:
//
//   - generic, either operand floating: floating result, unchanged
//   - image filter, both floating: clamped to [0, 255], floating
//   - image filter, f integral: clamped, rounded, cast to f's kind
//   - generic, both integral: rounded, cast to f's kind
//   - otherwise (floating f, integral h, image filter): floating, unchanged
//
// Rounding is half-to-even. Casting to Uint8 or Int32 wraps like a
// narrowing integer conversion.
func (e *Engine) Convolve(f, h *models.Grid, imageFilter bool) (*models.Grid, error) {
	if err := validate(f, ErrEmptyInput); err != nil {
		return nil, err
	}
	if err := validate(h, ErrEmptyKernel); err != nil {
		return nil, err
	}

	p, q := PaddedShape(f.Rows, f.Cols, h.Rows, h.Cols)

	fSpec := e.spectrum(f, p, q)
	hSpec := e.spectrum(h, p, q)

	// element-wise product of the spectra is spatial convolution
	for i := range fSpec {
		fSpec[i] *= hSpec[i]
	}
	e.fft2D(fSpec, p, q, true)

	cropped := crop(fSpec, p, q, f.Rows, f.Cols)
	return shape(cropped, f.Kind, h.Kind, imageFilter), nil
}

func validate(g *models.Grid, empty error) error {
	if g == nil || g.Rows <= 0 || g.Cols <= 0 {
		return empty
	}
	if len(g.Data) != g.Rows*g.Cols {
		return fmt.Errorf("%w: %dx%d grid with %d samples", ErrMalformedGrid, g.Rows, g.Cols, len(g.Data))
	}
	switch g.Kind {
	case models.Uint8, models.Int32, models.Float64:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedKind, g.Kind)
	}
}

// spectrum zero-pads g to p x q, centred, and returns its 2D DFT.
func (e *Engine) spectrum(g *models.Grid, p, q int) []complex128 {
	top, _, left, _ := PadSizes(g.Rows, g.Cols, p, q)

	padded := make([]complex128, p*q)
	for r := 0; r < g.Rows; r++ {
		dst := padded[(r+top)*q+left:]
		for c := 0; c < g.Cols; c++ {
			dst[c] = complex(g.Data[r*g.Cols+c], 0)
		}
	}

	e.fft2D(padded, p, q, false)
	return padded
}

// crop takes the real part of the p x q circular result, applies the
// inverse quadrant shift and cuts out the rows x cols window centred where
// the first operand sat before padding.
func crop(g []complex128, p, q, rows, cols int) *models.Grid {
	startRow := Center(p) - Center(rows)
	startCol := Center(q) - Center(cols)

	out := models.NewGrid(rows, cols, models.Float64)
	for r := 0; r < rows; r++ {
		// inverse shift: shifted[i] = g[(i + n/2) % n]
		sr := (r + startRow + p/2) % p
		for c := 0; c < cols; c++ {
			sc := (c + startCol + q/2) % q
			out.Data[r*cols+c] = real(g[sr*q+sc])
		}
	}
	return out
}

// shape converts the floating crop into the output type selected by the
// operand kinds and mode. It reuses the crop's storage.
func shape(out *models.Grid, fKind, hKind models.Kind, imageFilter bool) *models.Grid {
	fFloat := fKind.IsFloat()
	hFloat := hKind.IsFloat()

	switch {
	case (fFloat || hFloat) && !imageFilter:
		return out

	case fFloat && hFloat && imageFilter:
		for i, v := range out.Data {
			out.Data[i] = clamp(v)
		}
		return out

	case !fFloat && imageFilter:
		for i, v := range out.Data {
			out.Data[i] = cast(math.RoundToEven(clamp(v)), fKind)
		}
		out.Kind = fKind
		return out

	case !imageFilter:
		for i, v := range out.Data {
			out.Data[i] = cast(math.RoundToEven(v), fKind)
		}
		out.Kind = fKind
		return out

	default:
		return out
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// cast narrows an integral float to the value range of kind.
func cast(v float64, kind models.Kind) float64 {
	switch kind {
	case models.Uint8:
		return float64(uint8(int64(v)))
	case models.Int32:
		return float64(int32(int64(v)))
	default:
		return v
	}
}
