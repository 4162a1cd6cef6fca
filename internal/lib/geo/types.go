package geo

// Point represents a geographic coordinate
type Point struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// Path is an ordered sequence of points. Order defines the direction of travel.
type Path []Point

// Span is the angular size of a region in degrees
type Span struct {
	LatitudeDelta  float64 `json:"lat_delta"`
	LongitudeDelta float64 `json:"lng_delta"`
}

// Polyline represents an encoded polyline with optional decoded points
type Polyline struct {
	EncodedPolyline string `json:"encoded_polyline"`
	Points          Path   `json:"points"`
}

// ProgressResult is the portion of a path covered at a given completion fraction
type ProgressResult struct {
	// ConsumedPath is never empty. It holds the visited prefix of the input path
	// followed by the interpolated boundary point when one was computed.
	ConsumedPath Path  `json:"consumed_path"`
	CurrentPoint Point `json:"current_point"`
}

// Len returns the number of points in the path
func (p Path) Len() int {
	return len(p)
}

// Last returns the final point of the path, or the zero point for an empty path
func (p Path) Last() Point {
	if len(p) == 0 {
		return Point{}
	}
	return p[len(p)-1]
}

// Clone returns a copy that does not share storage with p
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	out := make(Path, len(p))
	copy(out, p)
	return out
}
