package area

import (
	"github.com/skytrails/trailmap/internal/lib/geo"
)

// Result is one place returned by a nearby search
type Result struct {
	Location geo.Point
	// RadiusKm is the place's known circular-region radius, when the search provides one
	RadiusKm *float64
}

// Region is the effective coverage of a search response
type Region struct {
	Center geo.Point
	Span   geo.Span
}

// NewCandidate builds a candidate from a search response. The nearest result is
// chosen by straight-line distance to the anchor; ties keep the earlier (higher
// ranked) result. A nil region produces a zero span, which the resolver rejects.
func NewCandidate(anchor geo.Point, region *Region, results []Result) Candidate {
	candidate := Candidate{Anchor: anchor}
	if region != nil {
		candidate.RegionCenter = region.Center
		candidate.RegionSpan = region.Span
	}

	nearest := -1
	nearestDistance := 0.0
	for i, result := range results {
		distance := geo.Distance(anchor, result.Location)
		if nearest < 0 || distance < nearestDistance {
			nearest = i
			nearestDistance = distance
		}
	}

	if nearest >= 0 {
		location := results[nearest].Location
		candidate.NearestResult = &location
		if radius := results[nearest].RadiusKm; radius != nil {
			r := *radius
			candidate.NearestResultRadiusKm = &r
		}
	}

	return candidate
}
