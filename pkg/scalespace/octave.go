// Package scalespace builds Gaussian scale-space octaves and their squared
// Difference-of-Gaussian stacks.
package scalespace

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/mdabdk/Image-Blob-Detection/internal/models"
	"github.com/mdabdk/Image-Blob-Detection/pkg/convolution"
	"github.com/mdabdk/Image-Blob-Detection/pkg/kernel"
)

// Errors returned by the octave and DoG builders.
var (
	ErrInvalidLayerCount = errors.New("scalespace: layer count must be positive")
	ErrInvalidScale      = errors.New("scalespace: scale multiplier must be positive")
	ErrShapeMismatch     = errors.New("scalespace: octave layers differ in shape")
)

// Builder produces octaves, computing the layers of one octave concurrently.
type Builder struct {
	engine  *convolution.Engine
	workers int
}

// NewBuilder creates a builder that convolves with engine and computes up
// to workers layers at once. A nil engine or workers below 1 select
// machine-sized defaults.
func NewBuilder(engine *convolution.Engine, workers int) *Builder {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if engine == nil {
		engine = convolution.NewEngine(workers)
	}
	return &Builder{engine: engine, workers: workers}
}

// Sigmas returns the n standard deviations sigma*k^i, i = 0..n-1.
func Sigmas(n int, sigma, k float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = sigma * math.Pow(k, float64(i))
	}
	return out
}

// Octave returns n layers, layer i being base convolved with a Gaussian of
// standard deviation sigma*k^i. Every layer is blurred directly from base;
// layers do not depend on each other.
func (b *Builder) Octave(base *models.Grid, n int, sigma, k float64) ([]*models.Grid, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLayerCount, n)
	}
	if !(k > 0) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidScale, k)
	}

	sigmas := Sigmas(n, sigma, k)

	type layerResult struct {
		index int
		layer *models.Grid
		err   error
	}
	resultChan := make(chan layerResult, n)
	slots := make(chan struct{}, b.workers)

	for i, s := range sigmas {
		go func(index int, s float64) {
			slots <- struct{}{}
			defer func() { <-slots }()

			layer, err := b.layer(base, s)
			resultChan <- layerResult{index: index, layer: layer, err: err}
		}(i, s)
	}

	layers := make([]*models.Grid, n)
	var firstErr error
	for range sigmas {
		res := <-resultChan
		if res.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("layer %d (sigma %.4f): %w", res.index, sigmas[res.index], res.err)
			}
			continue
		}
		layers[res.index] = res.layer
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return layers, nil
}

func (b *Builder) layer(base *models.Grid, sigma float64) (*models.Grid, error) {
	g, err := kernel.Gaussian(sigma)
	if err != nil {
		return nil, err
	}
	return b.engine.Convolve(base, g, false)
}
