package geo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	// Highway 4 coordinates: Angels Camp to Murphys
	angelsCamp := Point{Latitude: 38.0675, Longitude: -120.5436}
	murphys := Point{Latitude: 38.1391, Longitude: -120.4561}

	assert.InDelta(t, 11.046, Distance(angelsCamp, murphys), 0.1, "Distance should be approximately 11.0km")
	assert.InDelta(t, Distance(angelsCamp, murphys), Distance(murphys, angelsCamp), 1e-9, "Distance should be symmetric")
	assert.Equal(t, 0.0, Distance(angelsCamp, angelsCamp), "Distance from point to itself should be 0")

	// One degree of longitude on the equator
	assert.InDelta(t, 111.195, Distance(Point{0, 0}, Point{0, 1}), 0.01)
}

func TestPathLength(t *testing.T) {
	assert.Equal(t, 0.0, Path{}.Length())
	assert.Equal(t, 0.0, Path{{Latitude: 10, Longitude: 10}}.Length())

	path := Path{{0, 0}, {0, 1}, {0, 3}}
	assert.InDelta(t, 3*111.195, path.Length(), 0.05)
}

func TestInterpolate(t *testing.T) {
	start := Point{Latitude: 10, Longitude: 20}
	end := Point{Latitude: 20, Longitude: 40}

	assert.Equal(t, start, Interpolate(start, end, 0))
	assert.Equal(t, end, Interpolate(start, end, 1))
	assert.Equal(t, Point{Latitude: 15, Longitude: 30}, Interpolate(start, end, 0.5))
}

func TestDestination(t *testing.T) {
	north := Destination(Point{0, 0}, 0, 111.195)
	assert.InDelta(t, 1.0, north.Latitude, 1e-3)
	assert.InDelta(t, 0.0, north.Longitude, 1e-9)

	east := Destination(Point{0, 0}, 90, 111.195)
	assert.InDelta(t, 0.0, east.Latitude, 1e-9)
	assert.InDelta(t, 1.0, east.Longitude, 1e-3)

	// Crossing the antimeridian stays in range
	wrapped := Destination(Point{0, 179.9}, 90, 50)
	assert.True(t, IsValid(wrapped))
	assert.Less(t, wrapped.Longitude, 0.0)
}

func TestCircleRing(t *testing.T) {
	center := Point{Latitude: 38.1327, Longitude: -120.4606}
	ring := CircleRing(center, 2.0, 32)

	require.Len(t, ring, 33)
	assert.Equal(t, ring[0], ring[len(ring)-1], "Ring should be closed")
	for _, p := range ring {
		assert.InDelta(t, 2.0, Distance(center, p), 1e-6)
	}

	assert.Len(t, CircleRing(center, 1, 1), 4, "Fewer than 3 segments is raised to 3")
}

func TestNewPoint(t *testing.T) {
	p, err := NewPoint(38.0675, -120.5436)
	require.NoError(t, err)
	assert.Equal(t, Point{Latitude: 38.0675, Longitude: -120.5436}, p)

	_, err = NewPoint(200, -300)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidCoordinate))
}

func TestDecodePath(t *testing.T) {
	encoded := "_p~iF~ps|U_ulLnnqC_mqNvxq`@"

	path, err := DecodePath(encoded)
	require.NoError(t, err)
	require.Len(t, path, 3)
	assert.InDelta(t, 38.5, path[0].Latitude, 1e-5)
	assert.InDelta(t, -120.2, path[0].Longitude, 1e-5)
	assert.InDelta(t, 43.252, path[2].Latitude, 1e-5)
	assert.InDelta(t, -126.453, path[2].Longitude, 1e-5)

	assert.Equal(t, encoded, EncodePath(path))

	_, err = DecodePath("")
	assert.Error(t, err, "Should return error for empty polyline")
}
