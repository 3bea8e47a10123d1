package detection

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mdabdk/Image-Blob-Detection/internal/models"
	"github.com/mdabdk/Image-Blob-Detection/pkg/threshold"
)

// diskImage draws a bright disk of radius r centred at (cx, cy) on a black
// size x size Uint8 grid.
func diskImage(size int, cx, cy, r float64) *models.Grid {
	g := models.NewGrid(size, size, models.Uint8)
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			dy, dx := float64(row)-cy, float64(col)-cx
			if dy*dy+dx*dx <= r*r {
				g.Set(row, col, 255)
			}
		}
	}
	return g
}

func newTestDetector(t *testing.T, workers int) *Detector {
	t.Helper()
	params := DefaultParams()
	params.Workers = workers
	d, err := NewDetector(params)
	if err != nil {
		t.Fatalf("NewDetector failed: %v", err)
	}
	return d
}

// TestFlatImage verifies a uniform black field produces no blobs
func TestFlatImage(t *testing.T) {
	d := newTestDetector(t, 2)

	blobs, err := d.Detect(models.NewGrid(64, 64, models.Uint8))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(blobs) != 0 {
		t.Errorf("Expected no blobs on a flat image, got %d: %v", len(blobs), blobs)
	}
}

// TestSingleDisk checks that an isolated disk is reported once, at its
// centre, with a radius matching the disk
func TestSingleDisk(t *testing.T) {
	testCases := []struct {
		name   string
		cx, cy float64
		r      float64
		want   models.Blob
	}{
		{
			name: "radius 5 centred",
			cx:   32,
			cy:   32,
			r:    5,
			want: models.Blob{X: 32, Y: 32, Radius: 5, Layer: 2, Octave: 0},
		},
		{
			name: "radius 4 off centre",
			cx:   20,
			cy:   24,
			r:    4,
			want: models.Blob{X: 20, Y: 24, Radius: 4, Layer: 1, Octave: 0},
		},
	}

	d := newTestDetector(t, 4)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			blobs, err := d.Detect(diskImage(64, tc.cx, tc.cy, tc.r))
			if err != nil {
				t.Fatalf("Detect failed: %v", err)
			}
			if len(blobs) != 1 {
				t.Fatalf("Expected exactly one blob, got %d: %v", len(blobs), blobs)
			}

			got := blobs[0]
			if got.X != tc.want.X || got.Y != tc.want.Y {
				t.Errorf("Expected centre (%d, %d), got (%d, %d)", tc.want.X, tc.want.Y, got.X, got.Y)
			}
			if got.Radius != tc.want.Radius || got.Layer != tc.want.Layer || got.Octave != tc.want.Octave {
				t.Errorf("Expected radius %d layer %d octave %d, got radius %d layer %d octave %d",
					tc.want.Radius, tc.want.Layer, tc.want.Octave, got.Radius, got.Layer, got.Octave)
			}
			if math.Abs(float64(got.Radius)-tc.r) > 1 {
				t.Errorf("Radius %d is not within one pixel of %v", got.Radius, tc.r)
			}
		})
	}
}

// TestWorkerCountDoesNotChangeResult compares a serial and a parallel run
func TestWorkerCountDoesNotChangeResult(t *testing.T) {
	img := diskImage(48, 20, 26, 4)

	serial, err := newTestDetector(t, 1).Detect(img)
	if err != nil {
		t.Fatal(err)
	}
	parallel, err := newTestDetector(t, 8).Detect(img)
	if err != nil {
		t.Fatal(err)
	}

	if len(serial) != len(parallel) {
		t.Fatalf("Blob counts differ: %d vs %d", len(serial), len(parallel))
	}
	for i := range serial {
		if serial[i] != parallel[i] {
			t.Errorf("Blob %d differs: %+v vs %+v", i, serial[i], parallel[i])
		}
	}
}

// TestRescaleExtrema checks coordinate scaling and global layer numbering
func TestRescaleExtrema(t *testing.T) {
	local := []models.Extremum{{Row: 3, Col: 5, Layer: 1}, {Row: 0, Col: 7, Layer: 2}}

	for octave := 0; octave < 4; octave++ {
		got := RescaleExtrema(local, octave, 4)
		scale := int(math.Pow(2, float64(octave)))
		for i, e := range got {
			if e.Row != local[i].Row*scale || e.Col != local[i].Col*scale {
				t.Errorf("Octave %d: expected (%d, %d), got (%d, %d)",
					octave, local[i].Row*scale, local[i].Col*scale, e.Row, e.Col)
			}
			if e.Layer != local[i].Layer+octave*4 {
				t.Errorf("Octave %d: expected layer %d, got %d", octave, local[i].Layer+octave*4, e.Layer)
			}
		}
	}

	if local[0].Row != 3 || local[0].Layer != 1 {
		t.Error("RescaleExtrema modified its input")
	}
}

// TestRadius checks the characteristic radius of each global layer
func TestRadius(t *testing.T) {
	p := DefaultParams()
	expected := map[int]int{0: 3, 1: 4, 2: 5, 3: 7, 4: 5, 5: 7, 6: 10, 8: 10}

	for layer, want := range expected {
		if got := Radius(layer, p); got != want {
			t.Errorf("Layer %d: expected radius %d, got %d (sigma %f)", layer, want, got, Sigma(layer, p))
		}
	}

	if s := Sigma(6, p); math.Abs(s-6.4) > 1e-9 {
		t.Errorf("Expected sigma 6.4 for layer 6, got %f", s)
	}
}

// TestToBlob checks the record built from a rescaled extremum
func TestToBlob(t *testing.T) {
	p := DefaultParams()
	b := ToBlob(models.Extremum{Row: 8, Col: 12, Layer: 6}, p)

	if b.X != 12 || b.Y != 8 {
		t.Errorf("Expected (x, y) = (12, 8), got (%d, %d)", b.X, b.Y)
	}
	if b.Octave != 1 || b.Layer != 6 || b.Radius != 10 {
		t.Errorf("Unexpected blob %+v", b)
	}
}

// TestValidate covers parameter validation
func TestValidate(t *testing.T) {
	mutate := []struct {
		name string
		fn   func(p *Params)
	}{
		{"zero octaves", func(p *Params) { p.Octaves = 0 }},
		{"one DoG layer", func(p *Params) { p.DoGLayers = 1 }},
		{"zero sigma", func(p *Params) { p.SigmaInit = 0 }},
		{"NaN sigma", func(p *Params) { p.SigmaInit = math.NaN() }},
		{"k of one", func(p *Params) { p.KScale = 1 }},
		{"unknown threshold", func(p *Params) { p.Threshold = "median" }},
	}

	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("Default params rejected: %v", err)
	}

	for _, m := range mutate {
		t.Run(m.name, func(t *testing.T) {
			p := DefaultParams()
			m.fn(&p)
			if err := p.Validate(); !errors.Is(err, ErrInvalidParams) {
				t.Errorf("Expected ErrInvalidParams, got %v", err)
			}
			if _, err := NewDetector(p); !errors.Is(err, ErrInvalidParams) {
				t.Errorf("NewDetector: expected ErrInvalidParams, got %v", err)
			}
		})
	}
}

// TestEmptyImage checks that an empty grid is rejected
func TestEmptyImage(t *testing.T) {
	d := newTestDetector(t, 1)
	if _, err := d.Detect(models.NewGrid(0, 0, models.Uint8)); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("Expected ErrEmptyImage, got %v", err)
	}
}

// TestLogging checks that every octave is reported
func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	p := DefaultParams()
	p.Threshold = threshold.Otsu
	p.Logger = &log
	d, err := NewDetector(p)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.Detect(diskImage(32, 16, 16, 3)); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if n := strings.Count(out, "octave processed"); n != p.Octaves {
		t.Errorf("Expected %d octave events, got %d:\n%s", p.Octaves, n, out)
	}
	if !strings.Contains(out, `"component":"detection"`) {
		t.Errorf("Missing component field:\n%s", out)
	}
	if !strings.Contains(out, "detection finished") {
		t.Errorf("Missing summary event:\n%s", out)
	}
}
