package render

import (
	"sort"
	"sync"

	"github.com/skytrails/trailmap/internal/lib/area"
	"github.com/skytrails/trailmap/internal/lib/geo"
)

// Layer names used by the route progress animation
const (
	LayerRoute    = "route"
	LayerProgress = "progress"
)

// Scene is everything currently drawn on the map
type Scene struct {
	Overlays []area.PlacedOverlay
	Layers   map[string]geo.Path
	Marker   *geo.Point
	Version  uint64
}

// LayerNames returns the scene's layer names in a stable order
func (s Scene) LayerNames() []string {
	names := make([]string, 0, len(s.Layers))
	for name := range s.Layers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Renderer is an in-memory map surface. Every mutation replaces a whole part of
// the scene; readers get deep copies.
type Renderer struct {
	mu    sync.RWMutex
	scene Scene
}

// NewRenderer creates an empty renderer
func NewRenderer() *Renderer {
	return &Renderer{scene: Scene{Layers: make(map[string]geo.Path)}}
}

// ReplaceOverlays swaps the complete overlay set
func (r *Renderer) ReplaceOverlays(overlays []area.PlacedOverlay) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.scene.Overlays = cloneOverlays(overlays)
	r.scene.Version++
}

// SetPath replaces the path drawn on a layer. An empty path removes the layer.
func (r *Renderer) SetPath(layer string, path geo.Path) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(path) == 0 {
		delete(r.scene.Layers, layer)
	} else {
		r.scene.Layers[layer] = path.Clone()
	}
	r.scene.Version++
}

// SetMarker moves the current-position marker
func (r *Renderer) SetMarker(point geo.Point) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.scene.Marker = &point
	r.scene.Version++
}

// Snapshot returns a copy of the current scene
func (r *Renderer) Snapshot() Scene {
	r.mu.RLock()
	defer r.mu.RUnlock()

	scene := Scene{
		Overlays: cloneOverlays(r.scene.Overlays),
		Layers:   make(map[string]geo.Path, len(r.scene.Layers)),
		Version:  r.scene.Version,
	}
	for name, path := range r.scene.Layers {
		scene.Layers[name] = path.Clone()
	}
	if r.scene.Marker != nil {
		marker := *r.scene.Marker
		scene.Marker = &marker
	}
	return scene
}

func cloneOverlays(overlays []area.PlacedOverlay) []area.PlacedOverlay {
	out := make([]area.PlacedOverlay, len(overlays))
	for i, o := range overlays {
		out[i] = o
		if o.Overlay.Points != nil {
			out[i].Overlay.Points = append([]geo.Point(nil), o.Overlay.Points...)
		}
	}
	return out
}
