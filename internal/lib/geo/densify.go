package geo

// DefaultDensifyResolution is the number of output points emitted per input vertex
// when callers have no preference
const DefaultDensifyResolution = 16

// Densify subdivides a closed loop into a denser ring for smoother rendering.
//
// Each vertex is emitted followed by resolution-1 points linearly interpolated
// toward the next vertex, wrapping from the last vertex back to the first. The
// result has len(path)*resolution points. This is linear subdivision only: corners
// stay exactly where they were. Paths with two or fewer points are returned unchanged.
func Densify(path Path, resolution int) Path {
	if len(path) <= 2 {
		return path
	}
	if resolution < 1 {
		resolution = 1
	}

	dense := make(Path, 0, len(path)*resolution)
	for i := range path {
		from := path[i]
		to := path[(i+1)%len(path)]

		dense = append(dense, from)
		for j := 1; j < resolution; j++ {
			dense = append(dense, Interpolate(from, to, float64(j)/float64(resolution)))
		}
	}
	return dense
}
