package geo

import "math"

// ProgressAlong returns the part of path covered at the given completion fraction.
//
// The fraction is clamped to [0, 1] (NaN counts as 0). Distances are great-circle,
// but the boundary point is found by interpolating latitude and longitude linearly
// within the segment that contains the target distance. Paths with fewer than two
// points are returned as-is, with the zero point standing in for an empty path.
func ProgressAlong(path Path, fraction float64) ProgressResult {
	if len(path) <= 1 {
		point := Point{}
		if len(path) == 1 {
			point = path[0]
		}
		return ProgressResult{ConsumedPath: Path{point}, CurrentPoint: point}
	}

	fraction = clampFraction(fraction)

	// Short-circuit both ends so accumulated floating point error never leaves
	// the marker a hair away from the first or last vertex.
	if fraction >= 1 {
		return ProgressResult{ConsumedPath: path.Clone(), CurrentPoint: path.Last()}
	}
	if fraction == 0 {
		return ProgressResult{ConsumedPath: Path{path[0]}, CurrentPoint: path[0]}
	}

	target := fraction * path.Length()
	consumed := Path{path[0]}
	travelled := 0.0

	for i := 0; i < len(path)-1; i++ {
		start, end := path[i], path[i+1]
		segment := Distance(start, end)

		if travelled+segment >= target {
			ratio := 0.0
			if segment > 0 {
				ratio = (target - travelled) / segment
			}
			current := Interpolate(start, end, ratio)
			return ProgressResult{ConsumedPath: append(consumed, current), CurrentPoint: current}
		}

		travelled += segment
		consumed = append(consumed, end)
	}

	return ProgressResult{ConsumedPath: path.Clone(), CurrentPoint: path.Last()}
}

func clampFraction(fraction float64) float64 {
	if math.IsNaN(fraction) || fraction < 0 {
		return 0
	}
	if fraction > 1 {
		return 1
	}
	return fraction
}
