package search

import (
	"context"
	"net/http"

	"github.com/skytrails/trailmap/internal/lib/geo"
)

// DefaultWindowKm is the side of the square search window centred on the anchor
const DefaultWindowKm = 10.0

// Request describes one nearby-place search
type Request struct {
	// Query is a free-text name hint. An empty query searches for whatever place
	// contains the anchor.
	Query    string
	Anchor   geo.Point
	WindowKm float64
}

// Place is one ranked search result
type Place struct {
	Name     string    `json:"name"`
	Location geo.Point `json:"location"`
	// RadiusKm is the radius of the circle that covers the place's own extent
	RadiusKm *float64 `json:"radius_km,omitempty"`
}

// Region is the effective coverage of a search response
type Region struct {
	Center geo.Point `json:"center"`
	Span   geo.Span  `json:"span"`
}

// Response holds the ranked places and the region they cover
type Response struct {
	Places []Place `json:"places"`
	Region *Region `json:"region,omitempty"`
}

// Searcher performs nearby-place searches
type Searcher interface {
	Search(ctx context.Context, req Request) (*Response, error)
}

// HTTPDoer is the subset of *http.Client used by the client
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}
