package area

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skytrails/trailmap/internal/lib/geo"
)

var anchor = geo.Point{Latitude: 10, Longitude: 10}

func ptr[T any](v T) *T {
	return &v
}

func assertPointsInDelta(t *testing.T, expected, actual []geo.Point) {
	t.Helper()
	require.Len(t, actual, len(expected))
	for i := range expected {
		assert.InDelta(t, expected[i].Latitude, actual[i].Latitude, 1e-9, "latitude of point %d", i)
		assert.InDelta(t, expected[i].Longitude, actual[i].Longitude, 1e-9, "longitude of point %d", i)
	}
}

func TestResolve_TrustedRegionBecomesPolygon(t *testing.T) {
	candidate := Candidate{
		Anchor:        anchor,
		RegionCenter:  geo.Point{Latitude: 10.0005, Longitude: 10.0005},
		RegionSpan:    geo.Span{LatitudeDelta: 0.01, LongitudeDelta: 0.01},
		NearestResult: &geo.Point{Latitude: 10.0003, Longitude: 10.0004},
	}

	overlay, decision := NewResolver(DefaultThresholds()).ResolveWithDecision(candidate)

	assert.Equal(t, DecisionAccepted, decision)
	assert.Equal(t, KindPolygon, overlay.Kind)
	assert.True(t, overlay.IsPolygon())
	assertPointsInDelta(t, []geo.Point{
		{Latitude: 10.0055, Longitude: 9.9955},  // NW
		{Latitude: 10.0055, Longitude: 10.0055}, // NE
		{Latitude: 9.9955, Longitude: 10.0055},  // SE
		{Latitude: 9.9955, Longitude: 9.9955},   // SW
	}, overlay.Points)
}

func TestResolve_DistantRegionFallsBack(t *testing.T) {
	candidate := Candidate{
		Anchor:       anchor,
		RegionCenter: geo.Point{Latitude: 10.5, Longitude: 10.5},
		RegionSpan:   geo.Span{LatitudeDelta: 0.01, LongitudeDelta: 0.01},
	}

	overlay, decision := NewResolver(DefaultThresholds()).ResolveWithDecision(candidate)

	assert.Equal(t, DecisionRegionTooFar, decision)
	assert.Equal(t, Circle(2.0), overlay)
}

func TestResolve_DistantNearestResult(t *testing.T) {
	// Roughly 5 km north of the anchor
	farResult := geo.Point{Latitude: 10.045, Longitude: 10}
	base := Candidate{
		Anchor:        anchor,
		RegionCenter:  geo.Point{Latitude: 10.0005, Longitude: 10.0005},
		RegionSpan:    geo.Span{LatitudeDelta: 0.01, LongitudeDelta: 0.01},
		NearestResult: &farResult,
	}
	resolver := NewResolver(DefaultThresholds())

	overlay, decision := resolver.ResolveWithDecision(base)
	assert.Equal(t, DecisionNearestTooFar, decision)
	assert.Equal(t, Circle(2.0), overlay, "No known radius uses the default circle")

	withRadius := base
	withRadius.NearestResultRadiusKm = ptr(0.75)
	assert.Equal(t, Circle(0.75), resolver.Resolve(withRadius))

	tinyRadius := base
	tinyRadius.NearestResultRadiusKm = ptr(0.05)
	assert.Equal(t, Circle(0.2), resolver.Resolve(tinyRadius), "Radius is floored at 0.2 km")
}

func TestResolve_DegenerateSpan(t *testing.T) {
	spans := []geo.Span{
		{LatitudeDelta: 0, LongitudeDelta: 0},
		{LatitudeDelta: 0.0001, LongitudeDelta: 0.01},
		{LatitudeDelta: 0.01, LongitudeDelta: 0.0001},
		{LatitudeDelta: -0.01, LongitudeDelta: 0.01},
		{LatitudeDelta: math.NaN(), LongitudeDelta: 0.01},
	}

	for _, span := range spans {
		candidate := Candidate{Anchor: anchor, RegionCenter: anchor, RegionSpan: span}
		overlay, decision := NewResolver(DefaultThresholds()).ResolveWithDecision(candidate)
		assert.Equal(t, DecisionDegenerateSpan, decision, "span %+v", span)
		assert.Equal(t, Circle(2.0), overlay)
	}
}

func TestResolve_OversizedRegion(t *testing.T) {
	candidate := Candidate{
		Anchor:       anchor,
		RegionCenter: geo.Point{Latitude: 10.005, Longitude: 10.005},
		RegionSpan:   geo.Span{LatitudeDelta: 0.2, LongitudeDelta: 0.2},
	}

	overlay, decision := NewResolver(DefaultThresholds()).ResolveWithDecision(candidate)
	assert.Equal(t, DecisionCornerTooFar, decision)
	assert.Equal(t, KindCircle, overlay.Kind)

	relaxed := DefaultThresholds()
	relaxed.MaxCornerDistanceKm = 20
	overlay, decision = NewResolver(relaxed).ResolveWithDecision(candidate)
	assert.Equal(t, DecisionAccepted, decision)
	assert.Len(t, overlay.Points, 4)
}

func TestResolve_Deterministic(t *testing.T) {
	candidate := Candidate{
		Anchor:                anchor,
		RegionCenter:          geo.Point{Latitude: 10.0005, Longitude: 10.0005},
		RegionSpan:            geo.Span{LatitudeDelta: 0.01, LongitudeDelta: 0.01},
		NearestResult:         &geo.Point{Latitude: 10.0003, Longitude: 10.0004},
		NearestResultRadiusKm: ptr(0.4),
	}

	first := Resolve(candidate)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Resolve(candidate))
	}
}

func TestResolve_NaNRadiusUsesDefault(t *testing.T) {
	candidate := Candidate{Anchor: anchor, NearestResultRadiusKm: ptr(math.NaN())}
	assert.Equal(t, Circle(2.0), Resolve(candidate))
}

func TestBoundingCorners(t *testing.T) {
	corners := BoundingCorners(geo.Point{Latitude: 0, Longitude: 0}, geo.Span{LatitudeDelta: 2, LongitudeDelta: 4})

	assert.Equal(t, [4]geo.Point{
		{Latitude: 1, Longitude: -2},
		{Latitude: 1, Longitude: 2},
		{Latitude: -1, Longitude: 2},
		{Latitude: -1, Longitude: -2},
	}, corners)
}

func TestNewCandidate(t *testing.T) {
	region := &Region{
		Center: geo.Point{Latitude: 10.001, Longitude: 10.001},
		Span:   geo.Span{LatitudeDelta: 0.02, LongitudeDelta: 0.03},
	}
	results := []Result{
		{Location: geo.Point{Latitude: 10.02, Longitude: 10.02}, RadiusKm: ptr(1.2)},
		{Location: geo.Point{Latitude: 10.001, Longitude: 10.0005}, RadiusKm: ptr(0.3)},
		{Location: geo.Point{Latitude: 10.01, Longitude: 9.99}},
	}

	candidate := NewCandidate(anchor, region, results)

	assert.Equal(t, anchor, candidate.Anchor)
	assert.Equal(t, region.Center, candidate.RegionCenter)
	assert.Equal(t, region.Span, candidate.RegionSpan)
	require.NotNil(t, candidate.NearestResult)
	assert.Equal(t, results[1].Location, *candidate.NearestResult)
	require.NotNil(t, candidate.NearestResultRadiusKm)
	assert.Equal(t, 0.3, *candidate.NearestResultRadiusKm)

	// The candidate owns its radius
	*results[1].RadiusKm = 9
	assert.Equal(t, 0.3, *candidate.NearestResultRadiusKm)
}

func TestNewCandidate_NoResults(t *testing.T) {
	candidate := NewCandidate(anchor, nil, nil)

	assert.Nil(t, candidate.NearestResult)
	assert.Nil(t, candidate.NearestResultRadiusKm)
	assert.Equal(t, geo.Span{}, candidate.RegionSpan)

	overlay, decision := NewResolver(DefaultThresholds()).ResolveWithDecision(candidate)
	assert.Equal(t, DecisionDegenerateSpan, decision)
	assert.Equal(t, Circle(2.0), overlay)
}
