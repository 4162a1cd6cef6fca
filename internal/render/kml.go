package render

import (
	"fmt"
	"io"

	"github.com/twpayne/go-kml/v2"

	"github.com/skytrails/trailmap/internal/lib/geo"
)

// WriteKML writes a scene as an indented KML document
func WriteKML(w io.Writer, scene Scene, resolution int) error {
	var placemarks []kml.Element

	for _, placed := range scene.Overlays {
		description := fmt.Sprintf("%s (%s)", placed.Overlay.Kind, placed.Decision)
		placemarks = append(placemarks, kml.Placemark(
			kml.Name(placed.Name),
			kml.Description(description),
			kml.Polygon(
				kml.OuterBoundaryIs(
					kml.LinearRing(
						kml.Coordinates(toCoordinates(Ring(placed, resolution))...),
					),
				),
			),
		))
	}

	for _, name := range scene.LayerNames() {
		placemarks = append(placemarks, kml.Placemark(
			kml.Name(name),
			kml.LineString(
				kml.Coordinates(toCoordinates(scene.Layers[name])...),
			),
		))
	}

	if scene.Marker != nil {
		placemarks = append(placemarks, kml.Placemark(
			kml.Name("marker"),
			kml.Point(
				kml.Coordinates(kml.Coordinate{Lon: scene.Marker.Longitude, Lat: scene.Marker.Latitude}),
			),
		))
	}

	doc := kml.KML(kml.Document(append([]kml.Element{kml.Name("trailmap")}, placemarks...)...))
	if err := doc.WriteIndent(w, "", "  "); err != nil {
		return fmt.Errorf("failed to write KML: %w", err)
	}
	return nil
}

func toCoordinates(path geo.Path) []kml.Coordinate {
	coords := make([]kml.Coordinate, len(path))
	for i, p := range path {
		coords[i] = kml.Coordinate{Lon: p.Longitude, Lat: p.Latitude}
	}
	return coords
}
