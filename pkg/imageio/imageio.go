// Package imageio decodes input images and converts them to the grayscale
// grids consumed by the detection pipeline.
package imageio

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/mdabdk/Image-Blob-Detection/internal/models"
)

// ErrEmptyImage is returned for images with no pixels.
var ErrEmptyImage = errors.New("imageio: image has no pixels")

// Load decodes the image stored at path. PNG, JPEG, GIF, BMP, TIFF and
// WebP files are recognised by their content.
//
// Returns:
//   - The decoded image and the name of its format
func Load(path string) (image.Image, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	return Decode(file)
}

// Decode reads an image in any of the formats Load accepts.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, "", ErrEmptyImage
	}
	return img, format, nil
}

// ToGray converts img to 8-bit luma anchored at the origin. Gray images are
// copied so the result never aliases the input.
func ToGray(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Copy(gray, image.Point{}, img, b, xdraw.Src, nil)
	return gray
}

// ToGrid converts img to a Uint8 grid, rows top to bottom.
func ToGrid(img image.Image) (*models.Grid, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	return models.FromGray(ToGray(img)), nil
}

// LoadGrid loads the image at path and returns it along with its
// grayscale grid.
func LoadGrid(path string) (image.Image, *models.Grid, error) {
	img, _, err := Load(path)
	if err != nil {
		return nil, nil, err
	}
	grid, err := ToGrid(img)
	if err != nil {
		return nil, nil, err
	}
	return img, grid, nil
}
