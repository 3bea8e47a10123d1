// Package detection runs the multi-octave Difference-of-Gaussian blob
// detection pipeline.
//
// Each octave blurs its base image at n = DoGLayers+1 scales, squares the
// differences of adjacent layers and keeps the 3x3x3 maxima that exceed a
// per-layer threshold. Detections are mapped back to the input image frame
// and numbered on a single global layer scale. The next octave starts from
// the third layer of the current one, decimated by two.
package detection

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"github.com/mdabdk/Image-Blob-Detection/internal/logger"
	"github.com/mdabdk/Image-Blob-Detection/internal/models"
	"github.com/mdabdk/Image-Blob-Detection/pkg/convolution"
	"github.com/mdabdk/Image-Blob-Detection/pkg/extrema"
	"github.com/mdabdk/Image-Blob-Detection/pkg/scalespace"
	"github.com/mdabdk/Image-Blob-Detection/pkg/threshold"
)

// Errors returned by the pipeline.
var (
	ErrInvalidParams = errors.New("detection: invalid parameters")
	ErrEmptyImage    = errors.New("detection: empty image")
)

// nextBaseLayer is the octave layer that seeds the following octave.
const nextBaseLayer = 2

// Params holds the detection parameters.
type Params struct {
	// Octaves is the number of octaves processed
	Octaves int

	// DoGLayers is the number of DoG layers per octave; each octave holds
	// one more Gaussian layer than this
	DoGLayers int

	// SigmaInit is the standard deviation of the first layer of every octave
	SigmaInit float64

	// KScale is the ratio between the sigmas of adjacent layers
	KScale float64

	// Threshold selects the global threshold strategy
	Threshold threshold.Method

	// Workers bounds the goroutines used by each stage. Values below 1
	// select runtime.NumCPU()
	Workers int

	// Logger receives per-octave progress. Nil disables logging
	Logger *zerolog.Logger
}

// DefaultParams returns the classical scale-space detector settings:
// 3 octaves of 4 DoG layers, sigma 1.6, k = sqrt(2) and Yen thresholding.
func DefaultParams() Params {
	return Params{
		Octaves:   3,
		DoGLayers: 4,
		SigmaInit: 1.6,
		KScale:    math.Sqrt2,
		Threshold: threshold.Yen,
		Workers:   runtime.NumCPU(),
	}
}

// Validate checks that the parameters describe a runnable pipeline.
func (p Params) Validate() error {
	switch {
	case p.Octaves < 1:
		return fmt.Errorf("%w: octaves must be at least 1, got %d", ErrInvalidParams, p.Octaves)
	case p.DoGLayers < 2:
		return fmt.Errorf("%w: DoG layers must be at least 2, got %d", ErrInvalidParams, p.DoGLayers)
	case !(p.SigmaInit > 0) || math.IsInf(p.SigmaInit, 1):
		return fmt.Errorf("%w: initial sigma must be positive and finite, got %v", ErrInvalidParams, p.SigmaInit)
	case !(p.KScale > 1) || math.IsInf(p.KScale, 1):
		return fmt.Errorf("%w: scale multiplier must be greater than 1, got %v", ErrInvalidParams, p.KScale)
	}
	if _, err := threshold.New(p.Threshold); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

// Sigma returns the effective standard deviation of a global layer number:
// SigmaInit * KScale^(layer mod DoGLayers) * 2^(layer div DoGLayers).
func Sigma(layer int, p Params) float64 {
	octave, local := layer/p.DoGLayers, layer%p.DoGLayers
	return p.SigmaInit * math.Pow(p.KScale, float64(local)) * math.Pow(2, float64(octave))
}

// Radius returns the circle radius of a global layer number,
// ceil(sqrt(2) * Sigma(layer)).
func Radius(layer int, p Params) int {
	return int(math.Ceil(Sigma(layer, p) * math.Sqrt2))
}

// RescaleExtrema maps maxima found in octave to the input image frame:
// coordinates are multiplied by 2^octave and layers offset by
// octave*dogLayers. The input slice is left untouched.
func RescaleExtrema(found []models.Extremum, octave, dogLayers int) []models.Extremum {
	scale := 1 << uint(octave)
	out := make([]models.Extremum, len(found))
	for i, e := range found {
		out[i] = models.Extremum{
			Row:   e.Row * scale,
			Col:   e.Col * scale,
			Layer: e.Layer + octave*dogLayers,
		}
	}
	return out
}

// ToBlob converts a rescaled extremum into a blob record.
func ToBlob(e models.Extremum, p Params) models.Blob {
	return models.Blob{
		X:      e.Col,
		Y:      e.Row,
		Radius: Radius(e.Layer, p),
		Layer:  e.Layer,
		Octave: e.Layer / p.DoGLayers,
		Sigma:  Sigma(e.Layer, p),
	}
}

// Detector runs the octave pipeline with a fixed set of parameters.
// A Detector is safe for concurrent use.
type Detector struct {
	params  Params
	builder *scalespace.Builder
	extrema *extrema.Detector
	log     zerolog.Logger
}

// NewDetector validates params and creates a detector.
//
// Parameters:
//   - params: Detection parameters, see DefaultParams
//
// Returns:
//   - A Detector ready to process images
//   - ErrInvalidParams when params cannot describe a pipeline
func NewDetector(params Params) (*Detector, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.Workers < 1 {
		params.Workers = runtime.NumCPU()
	}

	strategy, err := threshold.New(params.Threshold)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	log := zerolog.Nop()
	if params.Logger != nil {
		log = *params.Logger
	}

	engine := convolution.NewEngine(params.Workers)
	return &Detector{
		params:  params,
		builder: scalespace.NewBuilder(engine, params.Workers),
		extrema: extrema.NewDetector(strategy, params.Workers),
		log:     logger.Component(log, "detection"),
	}, nil
}

// Params returns the parameters the detector was built with.
func (d *Detector) Params() Params {
	return d.params
}

// Detect runs every octave over img and returns the blobs ordered by
// octave, then layer, row and column.
func (d *Detector) Detect(img *models.Grid) ([]models.Blob, error) {
	found, err := d.DetectExtrema(img)
	if err != nil {
		return nil, err
	}

	blobs := make([]models.Blob, len(found))
	for i, e := range found {
		blobs[i] = ToBlob(e, d.params)
	}
	return blobs, nil
}

// DetectExtrema runs every octave over img and returns the maxima already
// rescaled to the input image frame and global layer numbers.
func (d *Detector) DetectExtrema(img *models.Grid) ([]models.Extremum, error) {
	if img.Empty() {
		return nil, ErrEmptyImage
	}

	start := time.Now()
	base := img
	var found []models.Extremum

	for i := 0; i < d.params.Octaves; i++ {
		octaveStart := time.Now()

		local, next, err := d.octave(base)
		if err != nil {
			return nil, fmt.Errorf("octave %d: %w", i, err)
		}
		found = append(found, RescaleExtrema(local, i, d.params.DoGLayers)...)

		d.log.Debug().
			Int("octave", i).
			Int("rows", base.Rows).
			Int("cols", base.Cols).
			Int("extrema", len(local)).
			Dur("elapsed", time.Since(octaveStart)).
			Msg("octave processed")

		base = next
	}

	d.log.Info().
		Int("octaves", d.params.Octaves).
		Int("blobs", len(found)).
		Str("threshold", string(d.params.Threshold)).
		Dur("elapsed", time.Since(start)).
		Msg("detection finished")

	return found, nil
}

// octave processes one octave and returns its local maxima together with
// the base image of the next octave.
func (d *Detector) octave(base *models.Grid) ([]models.Extremum, *models.Grid, error) {
	layers, err := d.builder.Octave(base, d.params.DoGLayers+1, d.params.SigmaInit, d.params.KScale)
	if err != nil {
		return nil, nil, fmt.Errorf("building octave: %w", err)
	}

	dog, err := scalespace.DoGSquared(layers)
	if err != nil {
		return nil, nil, fmt.Errorf("building DoG stack: %w", err)
	}

	local, err := d.extrema.Detect(dog)
	if err != nil {
		return nil, nil, fmt.Errorf("finding extrema: %w", err)
	}

	return local, layers[nextBaseLayer].Downsample(), nil
}
