package area

import (
	"math"

	"github.com/skytrails/trailmap/internal/lib/geo"
)

// Default thresholds for trusting a search region. Distances are in kilometers.
const (
	DefaultMinSpanDegrees       = 0.0001
	DefaultMaxRegionCenterKm    = 1.0
	DefaultMaxNearestResultKm   = 1.5
	DefaultMaxCornerDistanceKm  = 8.0
	DefaultMinCircleRadiusKm    = 0.2
	DefaultFallbackCircleRadius = 2.0
)

// Thresholds tune when a search region is trusted as a polygon
type Thresholds struct {
	MinSpanDegrees      float64 `koanf:"min_span_degrees"`
	MaxRegionCenterKm   float64 `koanf:"max_region_center_km"`
	MaxNearestResultKm  float64 `koanf:"max_nearest_result_km"`
	MaxCornerDistanceKm float64 `koanf:"max_corner_distance_km"`
	MinCircleRadiusKm   float64 `koanf:"min_circle_radius_km"`
	FallbackRadiusKm    float64 `koanf:"fallback_radius_km"`
}

// DefaultThresholds returns the standard thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinSpanDegrees:      DefaultMinSpanDegrees,
		MaxRegionCenterKm:   DefaultMaxRegionCenterKm,
		MaxNearestResultKm:  DefaultMaxNearestResultKm,
		MaxCornerDistanceKm: DefaultMaxCornerDistanceKm,
		MinCircleRadiusKm:   DefaultMinCircleRadiusKm,
		FallbackRadiusKm:    DefaultFallbackCircleRadius,
	}
}

// Resolver decides between a precise polygon and a fallback circle
type Resolver struct {
	thresholds Thresholds
}

// NewResolver creates a resolver with the given thresholds
func NewResolver(thresholds Thresholds) *Resolver {
	return &Resolver{thresholds: thresholds}
}

// Thresholds returns the resolver's configuration
func (r *Resolver) Thresholds() Thresholds {
	return r.thresholds
}

// Resolve resolves a candidate with the default thresholds
func Resolve(candidate Candidate) Overlay {
	overlay, _ := NewResolver(DefaultThresholds()).ResolveWithDecision(candidate)
	return overlay
}

// Resolve returns the overlay for a candidate. It is total: every candidate
// produces either a polygon or a circle.
func (r *Resolver) Resolve(candidate Candidate) Overlay {
	overlay, _ := r.ResolveWithDecision(candidate)
	return overlay
}

// ResolveWithDecision returns the overlay together with the rule that decided it.
//
// The search region is trusted only when it is non-degenerate, centred near the
// anchor, agrees with the nearest result, and does not reach far beyond the anchor.
// Anything else falls back to a circle around the anchor.
func (r *Resolver) ResolveWithDecision(candidate Candidate) (Overlay, Decision) {
	t := r.thresholds
	span := candidate.RegionSpan

	// Comparisons are written so that NaN inputs fail them and fall back.
	if !(span.LatitudeDelta > t.MinSpanDegrees) || !(span.LongitudeDelta > t.MinSpanDegrees) {
		return r.fallback(candidate), DecisionDegenerateSpan
	}

	if !(geo.Distance(candidate.RegionCenter, candidate.Anchor) <= t.MaxRegionCenterKm) {
		return r.fallback(candidate), DecisionRegionTooFar
	}

	if candidate.NearestResult != nil && !(geo.Distance(*candidate.NearestResult, candidate.Anchor) <= t.MaxNearestResultKm) {
		return r.fallback(candidate), DecisionNearestTooFar
	}

	corners := BoundingCorners(candidate.RegionCenter, span)
	for _, corner := range corners {
		if !(geo.Distance(corner, candidate.Anchor) <= t.MaxCornerDistanceKm) {
			return r.fallback(candidate), DecisionCornerTooFar
		}
	}

	return Polygon(corners[:]...), DecisionAccepted
}

// fallback returns the circle used when the region is not trusted
func (r *Resolver) fallback(candidate Candidate) Overlay {
	if radius := candidate.NearestResultRadiusKm; radius != nil && !math.IsNaN(*radius) {
		return Circle(math.Max(r.thresholds.MinCircleRadiusKm, *radius))
	}
	return Circle(r.thresholds.FallbackRadiusKm)
}

// BoundingCorners returns the corners of the axis-aligned rectangle described by
// center and span, clockwise from north-west: NW, NE, SE, SW
func BoundingCorners(center geo.Point, span geo.Span) [4]geo.Point {
	halfLat := span.LatitudeDelta / 2
	halfLon := span.LongitudeDelta / 2
	north := center.Latitude + halfLat
	south := center.Latitude - halfLat
	west := center.Longitude - halfLon
	east := center.Longitude + halfLon

	return [4]geo.Point{
		{Latitude: north, Longitude: west},
		{Latitude: north, Longitude: east},
		{Latitude: south, Longitude: east},
		{Latitude: south, Longitude: west},
	}
}
