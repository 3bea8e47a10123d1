package threshold

// OtsuStrategy picks the bin centre that maximizes the between-class
// variance of the two classes it separates.
type OtsuStrategy struct {
	Bins int
}

func (OtsuStrategy) Method() Method { return Otsu }

func (o OtsuStrategy) Threshold(values []float64) (float64, error) {
	counts, centers, degenerate, err := histogram(values, binsOrDefault(o.Bins))
	if err != nil {
		return 0, err
	}
	if degenerate {
		return centers[0], nil
	}

	n := len(counts)

	// class weights and means below (1) and above (2) each split
	weight1 := make([]float64, n)
	mean1 := make([]float64, n)
	var w, s float64
	for i := 0; i < n; i++ {
		w += counts[i]
		s += counts[i] * centers[i]
		weight1[i] = w
		mean1[i] = s / w
	}

	weight2 := make([]float64, n)
	mean2 := make([]float64, n)
	w, s = 0, 0
	for i := n - 1; i >= 0; i-- {
		w += counts[i]
		s += counts[i] * centers[i]
		weight2[i] = w
		mean2[i] = s / w
	}

	variance := make([]float64, n-1)
	for i := range variance {
		d := mean1[i] - mean2[i+1]
		variance[i] = weight1[i] * weight2[i+1] * d * d
	}

	return centers[argmax(variance)], nil
}

func binsOrDefault(n int) int {
	if n < 2 {
		return Bins
	}
	return n
}
