// Package visualization renders detected blobs over the source image and
// exports blob records.
package visualization

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	xdraw "golang.org/x/image/draw"
	"gopkg.in/yaml.v3"

	"github.com/mdabdk/Image-Blob-Detection/internal/models"
)

// ErrUnsupportedFormat is returned when an output file extension is neither
// PNG nor JPEG.
var ErrUnsupportedFormat = errors.New("visualization: unsupported output format")

// DefaultThickness is the stroke width of blob circles in pixels.
const DefaultThickness = 2

// CircleColor is the colour blob circles are drawn in.
var CircleColor = color.RGBA{R: 255, A: 255}

// Viewer draws blob circles over a copy of the image they were detected in.
type Viewer struct {
	// base is the original image, colour or gray
	base image.Image

	// blobs are the detections to draw
	blobs []models.Blob

	// thickness is the circle stroke width in pixels
	thickness int
}

// NewViewer creates a viewer for blobs detected in base. Thickness values
// below 1 select DefaultThickness.
func NewViewer(base image.Image, blobs []models.Blob, thickness int) *Viewer {
	if thickness < 1 {
		thickness = DefaultThickness
	}
	return &Viewer{
		base:      base,
		blobs:     blobs,
		thickness: thickness,
	}
}

// Render returns an RGBA copy of the base image, anchored at the origin,
// with one circle per blob centred at (X, Y) with the blob's radius.
// The base image is not modified.
func (v *Viewer) Render() *image.RGBA {
	b := v.base.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Copy(out, image.Point{}, v.base, b, xdraw.Src, nil)

	for _, blob := range v.blobs {
		DrawCircle(out, blob.X, blob.Y, blob.Radius, v.thickness, CircleColor)
	}
	return out
}

// DrawCircle strokes a circle of the given radius centred at (cx, cy).
// A pixel is painted when its distance from the centre is within
// thickness/2 of radius. Parts outside the image are clipped.
func DrawCircle(img *image.RGBA, cx, cy, radius, thickness int, c color.Color) {
	half := float64(thickness) / 2
	outer := int(math.Ceil(float64(radius) + half))

	area := image.Rect(cx-outer, cy-outer, cx+outer+1, cy+outer+1).Intersect(img.Bounds())
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			d := math.Hypot(float64(x-cx), float64(y-cy))
			if math.Abs(d-float64(radius)) <= half {
				img.Set(x, y, c)
			}
		}
	}
}

// Save renders the overlay and writes it to filename.
func (v *Viewer) Save(filename string) error {
	return SaveImage(v.Render(), filename)
}

// SaveImage writes img as PNG or JPEG, chosen by the file extension.
func SaveImage(img image.Image, filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".png" && ext != ".jpg" && ext != ".jpeg" {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if ext == ".png" {
		return png.Encode(file, img)
	}
	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// blobFile is the YAML document written by WriteBlobs.
type blobFile struct {
	Count int           `yaml:"count"`
	Blobs []models.Blob `yaml:"blobs"`
}

// WriteBlobs saves the blob records to filename as YAML.
func WriteBlobs(blobs []models.Blob, filename string) error {
	data, err := yaml.Marshal(blobFile{Count: len(blobs), Blobs: blobs})
	if err != nil {
		return fmt.Errorf("error marshaling blobs: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

// ReadBlobs loads blob records written by WriteBlobs.
func ReadBlobs(filename string) ([]models.Blob, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var doc blobFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing blobs file: %w", err)
	}
	return doc.Blobs, nil
}
