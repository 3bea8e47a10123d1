package models

import (
	"fmt"
	"image"

	"gonum.org/v1/gonum/mat"
)

// Kind identifies the element type a Grid's samples represent.
type Kind int

const (
	// Uint8 is the element type of raw 8-bit grayscale images.
	Uint8 Kind = iota

	// Int32 is used for integral filter kernels.
	Int32

	// Float64 is the element type of every derived layer.
	Float64
)

func (k Kind) String() string {
	switch k {
	case Uint8:
		return "uint8"
	case Int32:
		return "int32"
	case Float64:
		return "float64"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// IsFloat reports whether the kind is a floating point type.
func (k Kind) IsFloat() bool {
	return k == Float64
}

// Grid is a dense 2D array of samples stored in row-major order.
//
// Samples are always held as float64; Kind records the element type they
// stand for, so integral grids only ever contain integral values. A Grid is
// treated as immutable once a component has returned it.
type Grid struct {
	// Rows and Cols are the grid's shape
	Rows int
	Cols int

	// Kind is the element type of the samples
	Kind Kind

	// Data holds Rows*Cols samples, row-major
	Data []float64
}

// NewGrid allocates a zero-filled grid of the given shape and kind.
func NewGrid(rows, cols int, kind Kind) *Grid {
	if rows < 0 || cols < 0 {
		rows, cols = 0, 0
	}
	return &Grid{
		Rows: rows,
		Cols: cols,
		Kind: kind,
		Data: make([]float64, rows*cols),
	}
}

// NewGridFromRows builds a grid from a slice of equally long rows.
func NewGridFromRows(rows [][]float64, kind Kind) (*Grid, error) {
	if len(rows) == 0 {
		return NewGrid(0, 0, kind), nil
	}
	cols := len(rows[0])
	g := NewGrid(len(rows), cols, kind)
	for r, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", r, len(row), cols)
		}
		copy(g.Data[r*cols:(r+1)*cols], row)
	}
	return g, nil
}

// FromGray converts an 8-bit grayscale image into a Uint8 grid.
func FromGray(img *image.Gray) *Grid {
	b := img.Bounds()
	g := NewGrid(b.Dy(), b.Dx(), Uint8)
	for y := 0; y < g.Rows; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+g.Cols]
		for x, v := range row {
			g.Data[y*g.Cols+x] = float64(v)
		}
	}
	return g
}

// Empty reports whether the grid has no samples.
func (g *Grid) Empty() bool {
	return g == nil || g.Rows <= 0 || g.Cols <= 0
}

// At returns the sample at (r, c).
func (g *Grid) At(r, c int) float64 {
	return g.Data[r*g.Cols+c]
}

// Set stores v at (r, c).
func (g *Grid) Set(r, c int, v float64) {
	g.Data[r*g.Cols+c] = v
}

// SameShape reports whether g and o have identical dimensions.
func (g *Grid) SameShape(o *Grid) bool {
	return g.Rows == o.Rows && g.Cols == o.Cols
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	c := NewGrid(g.Rows, g.Cols, g.Kind)
	copy(c.Data, g.Data)
	return c
}

// Dense returns a gonum matrix view sharing the grid's backing storage.
func (g *Grid) Dense() *mat.Dense {
	return mat.NewDense(g.Rows, g.Cols, g.Data)
}

// Downsample keeps every second row and column starting at (0, 0).
// No low-pass filter is applied before decimation.
func (g *Grid) Downsample() *Grid {
	rows := (g.Rows + 1) / 2
	cols := (g.Cols + 1) / 2
	out := NewGrid(rows, cols, g.Kind)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out.Data[r*cols+c] = g.Data[(2*r)*g.Cols+2*c]
		}
	}
	return out
}

// Rows2D copies the grid into a slice of rows.
func (g *Grid) Rows2D() [][]float64 {
	out := make([][]float64, g.Rows)
	for r := range out {
		out[r] = make([]float64, g.Cols)
		copy(out[r], g.Data[r*g.Cols:(r+1)*g.Cols])
	}
	return out
}
