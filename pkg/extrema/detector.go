// Package extrema finds local maxima in a stack of squared DoG layers.
//
// A pixel in interior layer i is a maximum when its value matches the
// largest value in the 3x3 spatial window across layers i-1, i and i+1, and
// it strictly exceeds a global threshold computed from layer i alone.
package extrema

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/mdabdk/Image-Blob-Detection/internal/models"
	"github.com/mdabdk/Image-Blob-Detection/pkg/threshold"
)

// Errors returned by the detector.
var (
	ErrShapeMismatch = errors.New("extrema: DoG layers differ in shape")
	ErrEmptyLayer    = errors.New("extrema: empty DoG layer")
	ErrNoStrategy    = errors.New("extrema: no threshold strategy")
)

// Default tolerances for matching a pixel against its neighbourhood maximum.
const (
	DefaultRelTol = 1e-5
	DefaultAbsTol = 1e-8
)

// Detector runs non-maximum suppression over a DoG stack.
type Detector struct {
	// Strategy computes the per-layer threshold
	Strategy threshold.Strategy

	// Workers is the number of goroutines scanning row tiles of a layer
	Workers int

	// RelTol and AbsTol define approximate equality with the neighbourhood
	// maximum: |v - max| <= AbsTol + RelTol*|max|
	RelTol float64
	AbsTol float64
}

// NewDetector creates a detector with the default tolerances. Workers
// below 1 select runtime.NumCPU().
func NewDetector(strategy threshold.Strategy, workers int) *Detector {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &Detector{
		Strategy: strategy,
		Workers:  workers,
		RelTol:   DefaultRelTol,
		AbsTol:   DefaultAbsTol,
	}
}

// IsClose reports whether a and b are equal within the given tolerances.
func IsClose(a, b, relTol, absTol float64) bool {
	return math.Abs(a-b) <= absTol+relTol*math.Abs(b)
}

// Detect scans every interior layer of dog (1 .. len(dog)-2) and returns the
// maxima ordered by layer, then row, then column. Stacks with fewer than
// three layers have no interior layer and yield no maxima.
//
// DoG values are non-negative, so the one-pixel border is padded with zeros:
// padding never beats a genuine maximum and never exceeds a threshold.
func (d *Detector) Detect(dog []*models.Grid) ([]models.Extremum, error) {
	if d.Strategy == nil {
		return nil, ErrNoStrategy
	}
	if len(dog) == 0 {
		return nil, nil
	}
	for i, layer := range dog {
		if layer.Empty() {
			return nil, fmt.Errorf("%w: layer %d", ErrEmptyLayer, i)
		}
		if !layer.SameShape(dog[0]) {
			return nil, fmt.Errorf("%w: layer %d is %dx%d, layer 0 is %dx%d",
				ErrShapeMismatch, i, layer.Rows, layer.Cols, dog[0].Rows, dog[0].Cols)
		}
	}

	var found []models.Extremum
	for i := 1; i < len(dog)-1; i++ {
		layerMax, err := d.detectLayer(dog[i-1], dog[i], dog[i+1], i)
		if err != nil {
			return nil, err
		}
		found = append(found, layerMax...)
	}
	return found, nil
}

// detectLayer finds the maxima of the middle layer of one 3-layer window.
func (d *Detector) detectLayer(below, middle, above *models.Grid, index int) ([]models.Extremum, error) {
	thresh, err := d.Strategy.Threshold(middle.Data)
	if err != nil {
		return nil, fmt.Errorf("threshold for layer %d: %w", index, err)
	}

	rows, cols := middle.Rows, middle.Cols
	volume := [3][]float64{pad(below), pad(middle), pad(above)}

	workers := d.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > rows {
		workers = rows
	}
	chunk := (rows + workers - 1) / workers

	// one result slice per tile, merged in tile order
	tiles := make([][]models.Extremum, 0, workers)
	for start := 0; start < rows; start += chunk {
		tiles = append(tiles, nil)
	}

	var wg sync.WaitGroup
	for t := range tiles {
		start := t * chunk
		end := start + chunk
		if end > rows {
			end = rows
		}
		wg.Add(1)
		go func(t, start, end int) {
			defer wg.Done()
			tiles[t] = d.scanRows(volume, rows, cols, start, end, thresh, index)
		}(t, start, end)
	}
	wg.Wait()

	var out []models.Extremum
	for _, tile := range tiles {
		out = append(out, tile...)
	}
	return out, nil
}

// scanRows tests every pixel in rows [start, end) of the original grid.
// volume holds the zero-padded layers, (rows+2) x (cols+2) each.
func (d *Detector) scanRows(volume [3][]float64, rows, cols, start, end int, thresh float64, index int) []models.Extremum {
	stride := cols + 2
	var out []models.Extremum

	for r := start; r < end; r++ {
		for c := 0; c < cols; c++ {
			// (r, c) in the original grid is (r+1, c+1) in the padded one
			centre := volume[1][(r+1)*stride+c+1]
			if !(centre > thresh) {
				continue
			}

			windowMax := math.Inf(-1)
			for _, plane := range volume {
				for dr := 0; dr < 3; dr++ {
					row := plane[(r+dr)*stride+c : (r+dr)*stride+c+3]
					for _, v := range row {
						if v > windowMax {
							windowMax = v
						}
					}
				}
			}

			if IsClose(centre, windowMax, d.RelTol, d.AbsTol) {
				out = append(out, models.Extremum{Row: r, Col: c, Layer: index})
			}
		}
	}
	return out
}

// pad copies g into a zero-filled grid one sample larger on every side.
func pad(g *models.Grid) []float64 {
	stride := g.Cols + 2
	out := make([]float64, (g.Rows+2)*stride)
	for r := 0; r < g.Rows; r++ {
		copy(out[(r+1)*stride+1:(r+1)*stride+1+g.Cols], g.Data[r*g.Cols:(r+1)*g.Cols])
	}
	return out
}
