package area

import (
	"github.com/skytrails/trailmap/internal/lib/geo"
)

// OverlayKind distinguishes the two shapes a prediction area can take
type OverlayKind string

const (
	KindPolygon OverlayKind = "polygon" // precise bounding rectangle
	KindCircle  OverlayKind = "circle"  // fallback buffer around the anchor
)

// Overlay is a renderable prediction area. Polygon overlays carry exactly four
// corners (NW, NE, SE, SW); circle overlays carry a radius and are centred on the anchor.
type Overlay struct {
	Kind     OverlayKind `json:"kind"`
	Points   []geo.Point `json:"points,omitempty"`
	RadiusKm float64     `json:"radius_km,omitempty"`
}

// Polygon creates a polygon overlay
func Polygon(points ...geo.Point) Overlay {
	return Overlay{Kind: KindPolygon, Points: points}
}

// Circle creates a circle overlay
func Circle(radiusKm float64) Overlay {
	return Overlay{Kind: KindCircle, RadiusKm: radiusKm}
}

// IsPolygon reports whether the overlay is a precise boundary
func (o Overlay) IsPolygon() bool {
	return o.Kind == KindPolygon
}

// Candidate is everything the resolver knows about one search response, relative to
// the anchor the caller asked about. It is built per request and discarded afterwards.
type Candidate struct {
	Anchor       geo.Point `json:"anchor"`
	RegionCenter geo.Point `json:"region_center"`
	RegionSpan   geo.Span  `json:"region_span"`

	// NearestResult is the search result closest to the anchor, if any
	NearestResult *geo.Point `json:"nearest_result,omitempty"`
	// NearestResultRadiusKm is the known circular-region radius of NearestResult
	NearestResultRadiusKm *float64 `json:"nearest_result_radius_km,omitempty"`
}

// Decision records which rule produced an overlay
type Decision string

const (
	DecisionAccepted       Decision = "accepted"
	DecisionDegenerateSpan Decision = "degenerate_span"
	DecisionRegionTooFar   Decision = "region_too_far"
	DecisionNearestTooFar  Decision = "nearest_too_far"
	DecisionCornerTooFar   Decision = "corner_too_far"
)

// PlacedOverlay is an overlay positioned for the renderer
type PlacedOverlay struct {
	Name     string    `json:"name"`
	Center   geo.Point `json:"center"`
	Overlay  Overlay   `json:"overlay"`
	Decision Decision  `json:"decision"`
	Token    uint64    `json:"token"`
}
