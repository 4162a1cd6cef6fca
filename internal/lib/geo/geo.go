package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/twpayne/go-polyline"
)

// EarthRadiusKm is the mean Earth radius used by all distance calculations
const EarthRadiusKm = 6371.0

// ErrInvalidCoordinate is returned when latitude or longitude is out of range
var ErrInvalidCoordinate = errors.New("invalid coordinates: latitude must be [-90, 90], longitude must be [-180, 180]")

// Distance calculates the great-circle distance between two points in kilometers
// using the Haversine formula
func Distance(p1, p2 Point) float64 {
	if p1 == p2 {
		return 0
	}

	lat1 := toRadians(p1.Latitude)
	lat2 := toRadians(p2.Latitude)
	dlat := toRadians(p2.Latitude - p1.Latitude)
	dlon := toRadians(p2.Longitude - p1.Longitude)

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// Length returns the sum of the distances between consecutive points, in kilometers
func (p Path) Length() float64 {
	total := 0.0
	for i := 0; i < len(p)-1; i++ {
		total += Distance(p[i], p[i+1])
	}
	return total
}

// Interpolate returns the point a fraction t of the way from start to end.
// Latitude and longitude are interpolated independently; t=0 returns start, t=1 returns end.
func Interpolate(start, end Point, t float64) Point {
	return Point{
		Latitude:  start.Latitude + (end.Latitude-start.Latitude)*t,
		Longitude: start.Longitude + (end.Longitude-start.Longitude)*t,
	}
}

// Destination returns the point reached by travelling distanceKm from origin
// along the initial bearing (degrees clockwise from north)
func Destination(origin Point, bearingDegrees, distanceKm float64) Point {
	angular := distanceKm / EarthRadiusKm
	bearing := toRadians(bearingDegrees)
	lat1 := toRadians(origin.Latitude)
	lon1 := toRadians(origin.Longitude)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(angular) +
		math.Cos(lat1)*math.Sin(angular)*math.Cos(bearing))
	lon2 := lon1 + math.Atan2(
		math.Sin(bearing)*math.Sin(angular)*math.Cos(lat1),
		math.Cos(angular)-math.Sin(lat1)*math.Sin(lat2))

	return Point{
		Latitude:  toDegrees(lat2),
		Longitude: normalizeLongitude(toDegrees(lon2)),
	}
}

// CircleRing approximates a circle of radiusKm around center as a closed ring of
// segments+1 points (the first point is repeated at the end)
func CircleRing(center Point, radiusKm float64, segments int) Path {
	if segments < 3 {
		segments = 3
	}
	ring := make(Path, 0, segments+1)
	for i := 0; i < segments; i++ {
		bearing := 360 * float64(i) / float64(segments)
		ring = append(ring, Destination(center, bearing, radiusKm))
	}
	return append(ring, ring[0])
}

// NewPoint creates a Point from latitude and longitude values with validation
func NewPoint(latitude, longitude float64) (Point, error) {
	point := Point{Latitude: latitude, Longitude: longitude}
	if !IsValid(point) {
		return Point{}, fmt.Errorf("%w: (%f, %f)", ErrInvalidCoordinate, latitude, longitude)
	}
	return point, nil
}

// IsValid reports whether the point's latitude and longitude are in range
func IsValid(point Point) bool {
	return point.Latitude >= -90 && point.Latitude <= 90 &&
		point.Longitude >= -180 && point.Longitude <= 180
}

// DecodePath decodes a Google encoded polyline string to a path
func DecodePath(encoded string) (Path, error) {
	if encoded == "" {
		return nil, errors.New("encoded polyline string is empty")
	}

	coords, rest, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to decode polyline: %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("failed to decode polyline: %d trailing bytes", len(rest))
	}

	path := make(Path, len(coords))
	for i, coord := range coords {
		path[i] = Point{Latitude: coord[0], Longitude: coord[1]}
		if !IsValid(path[i]) {
			return nil, fmt.Errorf("decoded polyline point %d: %w", i, ErrInvalidCoordinate)
		}
	}

	return path, nil
}

// EncodePath encodes a path as a Google encoded polyline string
func EncodePath(path Path) string {
	coords := make([][]float64, len(path))
	for i, p := range path {
		coords[i] = []float64{p.Latitude, p.Longitude}
	}
	return string(polyline.EncodeCoords(coords))
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

func toDegrees(radians float64) float64 {
	return radians * 180 / math.Pi
}

func normalizeLongitude(lon float64) float64 {
	return math.Mod(lon+540, 360) - 180
}
