package convolution

import (
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

// fft2D performs an in-place 2D discrete Fourier transform on data, a
// row-major rows x cols array. Rows are transformed first, then columns.
//
// The inverse transform is normalized by 1/(rows*cols) so that a forward
// transform followed by an inverse returns the original data.
//
// Row and column transforms are spread over e.workers goroutines. gonum
// plans keep internal scratch space, so each goroutine builds its own.
func (e *Engine) fft2D(data []complex128, rows, cols int, inverse bool) {
	e.parallel(rows, func(start, end int) {
		plan := fourier.NewCmplxFFT(cols)
		for r := start; r < end; r++ {
			row := data[r*cols : (r+1)*cols]
			if inverse {
				plan.Sequence(row, row)
			} else {
				plan.Coefficients(row, row)
			}
		}
	})

	e.parallel(cols, func(start, end int) {
		plan := fourier.NewCmplxFFT(rows)
		col := make([]complex128, rows)
		for c := start; c < end; c++ {
			for r := 0; r < rows; r++ {
				col[r] = data[r*cols+c]
			}
			if inverse {
				plan.Sequence(col, col)
			} else {
				plan.Coefficients(col, col)
			}
			for r := 0; r < rows; r++ {
				data[r*cols+c] = col[r]
			}
		}
	})

	if inverse {
		scale := complex(1/float64(rows*cols), 0)
		for i := range data {
			data[i] *= scale
		}
	}
}

// parallel splits [0, n) into contiguous chunks and runs fn on each chunk in
// its own goroutine, waiting for all of them to finish.
func (e *Engine) parallel(n int, fn func(start, end int)) {
	workers := e.workers
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		fn(0, n)
		return
	}

	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(start, end)
	}
	wg.Wait()
}
