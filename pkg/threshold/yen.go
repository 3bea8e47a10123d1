package threshold

import "math"

// YenStrategy implements Yen's maximum correlation criterion: the threshold
// maximizes the combined entropic correlation of the classes below and
// above it.
type YenStrategy struct {
	Bins int
}

func (YenStrategy) Method() Method { return Yen }

func (y YenStrategy) Threshold(values []float64) (float64, error) {
	counts, centers, degenerate, err := histogram(values, binsOrDefault(y.Bins))
	if err != nil {
		return 0, err
	}
	if degenerate {
		return centers[0], nil
	}

	n := len(counts)
	total := 0.0
	for _, c := range counts {
		total += c
	}

	pmf := make([]float64, n)
	for i, c := range counts {
		pmf[i] = c / total
	}

	p1 := make([]float64, n)
	p1Sq := make([]float64, n)
	var acc, accSq float64
	for i, p := range pmf {
		acc += p
		accSq += p * p
		p1[i] = acc
		p1Sq[i] = accSq
	}

	p2Sq := make([]float64, n)
	accSq = 0
	for i := n - 1; i >= 0; i-- {
		accSq += pmf[i] * pmf[i]
		p2Sq[i] = accSq
	}

	crit := make([]float64, n-1)
	for i := range crit {
		a := p1[i] * (1 - p1[i])
		crit[i] = math.Log(a * a / (p1Sq[i] * p2Sq[i+1]))
	}

	return centers[argmax(crit)], nil
}
