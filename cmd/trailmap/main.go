package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/dpup/prefab"

	"github.com/skytrails/trailmap/internal/cache"
	"github.com/skytrails/trailmap/internal/clients/search"
	"github.com/skytrails/trailmap/internal/config"
	"github.com/skytrails/trailmap/internal/lib/area"
	"github.com/skytrails/trailmap/internal/lib/geo"
	"github.com/skytrails/trailmap/internal/metrics"
	"github.com/skytrails/trailmap/internal/render"
	"github.com/skytrails/trailmap/internal/services"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "progress":
		handleProgress()
	case "densify":
		handleDensify()
	case "resolve":
		handleResolve()
	case "areas":
		handleAreas()
	case "animate":
		handleAnimate()
	case "watch":
		handleWatch()
	case "help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleProgress() {
	fs := flag.NewFlagSet("progress", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config file")
	routeID := fs.String("route", "", "ID of a configured route")
	polylineStr := fs.String("polyline", "", "Encoded polyline string (overrides --route)")
	fraction := fs.Float64("fraction", 0.5, "Completion fraction between 0 and 1")

	fs.Parse(os.Args[2:])

	path := loadPath(*configPath, *routeID, *polylineStr)
	progress := geo.ProgressAlong(path, *fraction)

	fmt.Printf("Route progress at %.1f%%:\n", *fraction*100)
	fmt.Printf("  Route length: %.2f km over %d points\n", path.Length(), len(path))
	fmt.Printf("  Travelled: %.2f km\n", progress.ConsumedPath.Length())
	fmt.Printf("  Current point: (%.6f, %.6f)\n", progress.CurrentPoint.Latitude, progress.CurrentPoint.Longitude)
	fmt.Printf("  Consumed path (%d points): %s\n", len(progress.ConsumedPath), geo.EncodePath(progress.ConsumedPath))
}

func handleDensify() {
	fs := flag.NewFlagSet("densify", flag.ExitOnError)
	polylineStr := fs.String("polyline", "", "Encoded polyline of a closed boundary")
	resolution := fs.Int("resolution", geo.DefaultDensifyResolution, "Points emitted per edge")

	fs.Parse(os.Args[2:])

	if *polylineStr == "" {
		fmt.Println("Example usage:")
		fmt.Println("  trailmap densify --polyline '_p~iF~ps|U_ulLnnqC_mqNvxq`@' --resolution 8")
		os.Exit(1)
	}

	path, err := geo.DecodePath(*polylineStr)
	if err != nil {
		log.Fatalf("Error decoding polyline: %v", err)
	}

	dense := geo.Densify(path, *resolution)
	fmt.Printf("Densified %d points into %d points\n", len(path), len(dense))
	fmt.Printf("  Encoded: %s\n", geo.EncodePath(dense))
}

func handleResolve() {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config file (for thresholds)")
	anchorLat := fs.Float64("lat", 0, "Anchor latitude")
	anchorLng := fs.Float64("lng", 0, "Anchor longitude")
	centerLat := fs.Float64("center-lat", 0, "Search region centre latitude")
	centerLng := fs.Float64("center-lng", 0, "Search region centre longitude")
	spanLat := fs.Float64("span-lat", 0, "Search region latitude span in degrees")
	spanLng := fs.Float64("span-lng", 0, "Search region longitude span in degrees")
	nearestLat := fs.Float64("nearest-lat", 0, "Nearest result latitude")
	nearestLng := fs.Float64("nearest-lng", 0, "Nearest result longitude")
	radius := fs.Float64("radius", 0, "Known radius of the nearest result in km")

	fs.Parse(os.Args[2:])

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if !set["lat"] || !set["lng"] {
		fmt.Println("Example usage:")
		fmt.Println("  trailmap resolve --lat 10 --lng 10 --center-lat 10.0005 --center-lng 10.0005 --span-lat 0.01 --span-lng 0.01")
		os.Exit(1)
	}

	cfg := loadConfig(*configPath)
	candidate := area.Candidate{
		Anchor:       geo.Point{Latitude: *anchorLat, Longitude: *anchorLng},
		RegionCenter: geo.Point{Latitude: *centerLat, Longitude: *centerLng},
		RegionSpan:   geo.Span{LatitudeDelta: *spanLat, LongitudeDelta: *spanLng},
	}
	if set["nearest-lat"] || set["nearest-lng"] {
		candidate.NearestResult = &geo.Point{Latitude: *nearestLat, Longitude: *nearestLng}
	}
	if set["radius"] {
		candidate.NearestResultRadiusKm = radius
	}

	overlay, decision := area.NewResolver(cfg.Area).ResolveWithDecision(candidate)

	fmt.Printf("Decision: %s\n", decision)
	printJSON(overlay)
}

func handleAreas() {
	fs := flag.NewFlagSet("areas", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config file")
	format := fs.String("format", "geojson", "Output format: geojson or kml")
	resolution := fs.Int("resolution", geo.DefaultDensifyResolution, "Boundary densify resolution")
	output := fs.String("out", "", "Output file (default stdout)")
	timeout := fs.Duration("timeout", 2*time.Minute, "Overall timeout")

	fs.Parse(os.Args[2:])

	cfg := loadConfig(*configPath)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	responseCache, closeCache := newResponseCache(ctx, cfg)
	defer closeCache()

	renderer := render.NewRenderer()
	orchestrator := services.NewOverlayOrchestrator(
		search.NewClient(cfg.Search, responseCache),
		area.NewResolver(cfg.Area),
		renderer,
		&cfg.Overlays,
	)

	log.Printf("Resolving prediction areas for %d locations", len(cfg.Overlays.Locations))
	orchestrator.Refresh(ctx, services.LocationsFromConfig(cfg.Overlays.Locations))
	orchestrator.Wait()

	for _, placed := range orchestrator.Overlays() {
		log.Printf("  %s: %s (%s)", placed.Name, placed.Overlay.Kind, placed.Decision)
	}

	data, err := encodeScene(renderer.Snapshot(), *format, *resolution)
	if err != nil {
		log.Fatalf("Error encoding areas: %v", err)
	}
	writeOutput(*output, data)
}

func handleAnimate() {
	fs := flag.NewFlagSet("animate", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config file")
	routeID := fs.String("route", "", "ID of a configured route")
	polylineStr := fs.String("polyline", "", "Encoded polyline string (overrides --route)")
	duration := fs.Duration("duration", 0, "Animation duration (default from config)")

	fs.Parse(os.Args[2:])

	cfg := loadConfig(*configPath)
	if *duration > 0 {
		cfg.Animation.Duration = *duration
	}
	path := loadPath(*configPath, *routeID, *polylineStr)

	animator := services.NewProgressAnimator(path, &framePrinter{started: time.Now()}, &cfg.Animation)
	done, err := animator.Start(context.Background())
	if err != nil {
		log.Fatalf("Error starting animation: %v", err)
	}
	<-done
}

func handleWatch() {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config file")
	resolution := fs.Int("resolution", geo.DefaultDensifyResolution, "Boundary densify resolution")

	fs.Parse(os.Args[2:])

	cfg := loadConfig(*configPath)
	ctx := context.Background()

	responseCache, closeCache := newResponseCache(ctx, cfg)
	defer closeCache()

	renderer := render.NewRenderer()
	orchestrator := services.NewOverlayOrchestrator(
		search.NewClient(cfg.Search, responseCache),
		area.NewResolver(cfg.Area),
		renderer,
		&cfg.Overlays,
	)

	periodicRefresh := services.NewPeriodicRefreshService(orchestrator,
		services.LocationsFromConfig(cfg.Overlays.Locations), cfg.Overlays.RefreshInterval)
	if err := periodicRefresh.StartPeriodicRefresh(ctx); err != nil {
		log.Printf("Failed to start periodic refresh: %v", err)
	}
	defer periodicRefresh.Stop()

	log.Printf("Watching %d locations every %v", len(cfg.Overlays.Locations), cfg.Overlays.RefreshInterval)

	// Server configuration (port, etc.) is loaded from prefab.yaml/env vars
	server := prefab.New(
		prefab.WithHTTPHandlerFunc("/overlays.geojson", renderer.GeoJSONHandler(*resolution)),
		prefab.WithHTTPHandlerFunc("/overlays.kml", kmlHandler(renderer, *resolution)),
		prefab.WithHTTPHandlerFunc("/metrics", metrics.Handler().ServeHTTP),
	)

	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func kmlHandler(renderer *render.Renderer, resolution int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := render.WriteKML(&buf, renderer.Snapshot(), resolution); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.google-earth.kml+xml")
		_, _ = w.Write(buf.Bytes())
	}
}

// newResponseCache returns a Valkey cache when one is configured and reachable,
// otherwise an in-memory cache with periodic cleanup
func newResponseCache(ctx context.Context, cfg *config.Config) (search.ResponseCache, func()) {
	if cfg.Cache.ValkeyAddr != "" {
		valkeyCache, err := cache.NewValkeyCache(cfg.Cache.ValkeyAddr, cfg.Cache.KeyPrefix)
		if err == nil {
			log.Printf("Caching search responses in Valkey at %s", cfg.Cache.ValkeyAddr)
			return valkeyCache, valkeyCache.Close
		}
		log.Printf("Valkey unavailable, using in-memory cache: %v", err)
	}

	memoryCache := cache.NewCache()
	cleanupCtx, cancel := context.WithCancel(ctx)
	memoryCache.StartPeriodicCleanup(cleanupCtx, cfg.Cache.CleanupInterval)
	return memoryCache, cancel
}

func encodeScene(scene render.Scene, format string, resolution int) ([]byte, error) {
	switch format {
	case "geojson":
		return render.FeatureCollection(scene, resolution).MarshalJSON()
	case "kml":
		var buf bytes.Buffer
		if err := render.WriteKML(&buf, scene, resolution); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func writeOutput(path string, data []byte) {
	if path == "" {
		os.Stdout.Write(data)
		fmt.Println()
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Fatalf("Error writing %s: %v", path, err)
	}
	log.Printf("Wrote %s", path)
}

func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path, nil)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// loadPath resolves a route from an explicit polyline or a configured route ID.
// With neither, the first configured route is used.
func loadPath(configPath, routeID, polylineStr string) geo.Path {
	if polylineStr != "" {
		path, err := geo.DecodePath(polylineStr)
		if err != nil {
			log.Fatalf("Error decoding polyline: %v", err)
		}
		return path
	}

	cfg := loadConfig(configPath)
	if len(cfg.Routes) == 0 {
		log.Fatalf("No routes configured; pass --polyline")
	}

	route := cfg.Routes[0]
	if routeID != "" {
		var ok bool
		if route, ok = cfg.Route(routeID); !ok {
			log.Fatalf("Unknown route: %s", routeID)
		}
	}

	path, err := route.Path()
	if err != nil {
		log.Fatalf("Error loading route: %v", err)
	}
	return path
}

// framePrinter prints each animation frame
type framePrinter struct {
	started time.Time
}

func (f *framePrinter) SetPath(layer string, path geo.Path) {
	if layer == render.LayerRoute {
		fmt.Printf("Route: %d points, %.2f km\n", len(path), path.Length())
	}
}

func (f *framePrinter) SetMarker(point geo.Point) {
	fmt.Printf("  %6dms  (%.6f, %.6f)\n", time.Since(f.started).Milliseconds(), point.Latitude, point.Longitude)
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Error encoding JSON: %v", err)
	}
	fmt.Println(string(data))
}

func printUsage() {
	fmt.Println("trailmap - route progress and prediction area tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  trailmap <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  progress  Show how far along a route a completion fraction reaches")
	fmt.Println("  densify   Subdivide a closed boundary into a smoother outline")
	fmt.Println("  resolve   Decide between a polygon and a fallback circle for one search result")
	fmt.Println("  areas     Search configured locations and export their prediction areas")
	fmt.Println("  animate   Play a route progress animation in the terminal")
	fmt.Println("  watch     Refresh prediction areas periodically and serve them over HTTP")
	fmt.Println("  help      Show this help message")
	fmt.Println()
	fmt.Println("Run 'trailmap <command> --help' for command flags.")
}
