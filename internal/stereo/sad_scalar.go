package stereo

// sadRowScalar is the portable reference kernel.
func sadRowScalar(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return sum
}

// sadRowUnrolled processes four elements per iteration with independent
// accumulators, then finishes the remainder one element at a time.
func sadRowUnrolled(a, b []float32) float64 {
	n := len(a)
	b = b[:n]

	var s0, s1, s2, s3 float64
	i := 0
	for ; i+4 <= n; i += 4 {
		s0 += absDiff(a[i+0], b[i+0])
		s1 += absDiff(a[i+1], b[i+1])
		s2 += absDiff(a[i+2], b[i+2])
		s3 += absDiff(a[i+3], b[i+3])
	}
	for ; i < n; i++ {
		s0 += absDiff(a[i], b[i])
	}
	return (s0 + s1) + (s2 + s3)
}

func absDiff(a, b float32) float64 {
	d := float64(a) - float64(b)
	if d < 0 {
		return -d
	}
	return d
}
