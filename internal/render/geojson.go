package render

import (
	"net/http"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/skytrails/trailmap/internal/lib/area"
	"github.com/skytrails/trailmap/internal/lib/geo"
)

// CircleSegments is the number of segments used to approximate circle overlays
const CircleSegments = 64

// Ring returns the closed outline of a placed overlay. Polygon outlines are
// densified with the given resolution; circles are approximated around the centre.
func Ring(placed area.PlacedOverlay, resolution int) geo.Path {
	if placed.Overlay.IsPolygon() {
		ring := geo.Densify(geo.Path(placed.Overlay.Points), resolution)
		if len(ring) == 0 {
			return ring
		}
		return append(ring, ring[0])
	}
	return geo.CircleRing(placed.Center, placed.Overlay.RadiusKm, CircleSegments)
}

// FeatureCollection converts a scene to GeoJSON. Overlays become polygons, layers
// become line strings and the marker becomes a point.
func FeatureCollection(scene Scene, resolution int) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, placed := range scene.Overlays {
		feature := geojson.NewFeature(orb.Polygon{toRing(Ring(placed, resolution))})
		feature.Properties["name"] = placed.Name
		feature.Properties["kind"] = string(placed.Overlay.Kind)
		feature.Properties["decision"] = string(placed.Decision)
		feature.Properties["token"] = placed.Token
		if placed.Overlay.Kind == area.KindCircle {
			feature.Properties["radius_km"] = placed.Overlay.RadiusKm
		}
		fc.Append(feature)
	}

	for _, name := range scene.LayerNames() {
		feature := geojson.NewFeature(toLineString(scene.Layers[name]))
		feature.Properties["layer"] = name
		fc.Append(feature)
	}

	if scene.Marker != nil {
		feature := geojson.NewFeature(toOrbPoint(*scene.Marker))
		feature.Properties["layer"] = "marker"
		fc.Append(feature)
	}

	return fc
}

// GeoJSONHandler serves the renderer's current scene as a GeoJSON feature collection
func (r *Renderer) GeoJSONHandler(resolution int) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		data, err := FeatureCollection(r.Snapshot(), resolution).MarshalJSON()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		_, _ = w.Write(data)
	}
}

// GeoJSON coordinates are [lon, lat]
func toOrbPoint(p geo.Point) orb.Point {
	return orb.Point{p.Longitude, p.Latitude}
}

func toRing(path geo.Path) orb.Ring {
	ring := make(orb.Ring, len(path))
	for i, p := range path {
		ring[i] = toOrbPoint(p)
	}
	return ring
}

func toLineString(path geo.Path) orb.LineString {
	ls := make(orb.LineString, len(path))
	for i, p := range path {
		ls[i] = toOrbPoint(p)
	}
	return ls
}
