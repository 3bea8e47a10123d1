package scalespace

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/mdabdk/Image-Blob-Detection/internal/models"
)

// DoGSquared returns len(octave)-1 layers, layer i being the element-wise
// square of octave[i+1] - octave[i]. Squaring makes bright-on-dark and
// dark-on-bright blobs both show up as positive maxima.
func DoGSquared(octave []*models.Grid) ([]*models.Grid, error) {
	if len(octave) < 2 {
		return nil, nil
	}
	for i, layer := range octave {
		if layer.Empty() || !layer.SameShape(octave[0]) {
			return nil, fmt.Errorf("%w: layer %d", ErrShapeMismatch, i)
		}
	}

	rows, cols := octave[0].Rows, octave[0].Cols
	out := make([]*models.Grid, len(octave)-1)
	for i := range out {
		diff := mat.NewDense(rows, cols, nil)
		diff.Sub(octave[i+1].Dense(), octave[i].Dense())
		diff.MulElem(diff, diff)

		layer := models.NewGrid(rows, cols, models.Float64)
		for r := 0; r < rows; r++ {
			copy(layer.Data[r*cols:(r+1)*cols], diff.RawRowView(r))
		}
		out[i] = layer
	}
	return out, nil
}
