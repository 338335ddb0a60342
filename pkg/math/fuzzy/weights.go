package fuzzy

// UniformWeights returns n equal weights summing to 1.
func UniformWeights(n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}
	return w
}

// DecreasingWeights returns n, n-1, ..., 1 normalised by n(n+1)/2.
func DecreasingWeights(n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	den := float64(n * (n + 1) / 2)
	w := make([]float64, n)
	for i := range w {
		w[i] = float64(n-i) / den
	}
	return w
}
