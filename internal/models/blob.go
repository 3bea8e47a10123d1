package models

// Extremum is a pixel that is the maximum of its 3x3x3 scale-space
// neighbourhood and exceeds its layer's threshold.
type Extremum struct {
	// Row and Col locate the pixel in the grid it was detected in
	Row int
	Col int

	// Layer is the DoG layer index the maximum was found in
	Layer int
}

// Blob is a detection expressed in the coordinate frame of the input image.
type Blob struct {
	// X and Y are the column and row of the blob centre
	X int `yaml:"x"`
	Y int `yaml:"y"`

	// Radius is ceil(sqrt(2) * Sigma)
	Radius int `yaml:"radius"`

	// Layer is the global layer number, local layer + octave*DoG layers
	Layer int `yaml:"layer"`

	// Octave is the index of the octave the blob was detected in
	Octave int `yaml:"octave"`

	// Sigma is the characteristic scale of the detection layer
	Sigma float64 `yaml:"sigma"`
}
