package services

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/dpup/prefab/errors"
	"github.com/dpup/prefab/logging"
	"golang.org/x/sync/semaphore"

	"github.com/skytrails/trailmap/internal/clients/search"
	"github.com/skytrails/trailmap/internal/config"
	"github.com/skytrails/trailmap/internal/lib/area"
	"github.com/skytrails/trailmap/internal/lib/geo"
	"github.com/skytrails/trailmap/internal/metrics"
)

// RequestToken identifies one refresh. Tokens increase monotonically and are never reused.
type RequestToken uint64

// Location is a named anchor whose prediction area is displayed
type Location struct {
	Name   string
	Anchor geo.Point
}

// LocationsFromConfig converts configured locations
func LocationsFromConfig(locations []config.Location) []Location {
	out := make([]Location, len(locations))
	for i, loc := range locations {
		out[i] = Location{Name: loc.Name, Anchor: loc.Point()}
	}
	return out
}

// OverlayRenderer receives the complete overlay set on every change
type OverlayRenderer interface {
	ReplaceOverlays(overlays []area.PlacedOverlay)
}

// OverlayOrchestrator issues nearby-place searches for a set of locations, resolves
// each response into an overlay and publishes it only while its refresh is current
type OverlayOrchestrator struct {
	searcher search.Searcher
	resolver *area.Resolver
	renderer OverlayRenderer
	sem      *semaphore.Weighted
	windowKm float64

	mu       sync.Mutex
	token    RequestToken
	overlays []area.PlacedOverlay

	inflight sync.WaitGroup
}

// NewOverlayOrchestrator creates a new orchestrator
func NewOverlayOrchestrator(searcher search.Searcher, resolver *area.Resolver, renderer OverlayRenderer, config *config.OverlaysConfig) *OverlayOrchestrator {
	maxConcurrent := config.MaxConcurrentSearches
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	windowKm := config.SearchWindowKm
	if windowKm <= 0 {
		windowKm = search.DefaultWindowKm
	}

	return &OverlayOrchestrator{
		searcher: searcher,
		resolver: resolver,
		renderer: renderer,
		sem:      semaphore.NewWeighted(maxConcurrent),
		windowKm: windowKm,
	}
}

// Refresh supersedes every earlier refresh, clears the displayed overlays and
// starts one search per location. It returns without waiting for the searches.
// Superseded searches are not cancelled; their results are dropped on arrival.
func (o *OverlayOrchestrator) Refresh(ctx context.Context, locations []Location) RequestToken {
	o.mu.Lock()
	o.token++
	token := o.token
	o.overlays = nil
	o.publishLocked()
	o.mu.Unlock()

	metrics.RefreshesTotal.Inc()
	logging.Infow(ctx, "Refreshing prediction areas", "token", token, "locations", len(locations))

	for _, loc := range locations {
		o.inflight.Add(1)
		go o.resolveLocation(ctx, token, loc)
	}

	return token
}

// Token returns the current request token
func (o *OverlayOrchestrator) Token() RequestToken {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.token
}

// Overlays returns a snapshot of the displayed overlays
func (o *OverlayOrchestrator) Overlays() []area.PlacedOverlay {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Wait blocks until every search started so far has finished
func (o *OverlayOrchestrator) Wait() {
	o.inflight.Wait()
}

// resolveLocation runs one location through Issued, Resolved and then Published
// or Discarded
func (o *OverlayOrchestrator) resolveLocation(ctx context.Context, token RequestToken, loc Location) {
	defer o.inflight.Done()
	defer func() {
		if r := recover(); r != nil {
			err, _ := errors.ParseStack(debug.Stack())
			skipFrames := 3
			numFrames := 5
			logging.Errorw(ctx, "Overlay resolution: recovered from panic",
				"location", loc.Name, "error", r, "error.stack_trace", err.MinimalStack(skipFrames, numFrames))
		}
	}()

	logging.Debugw(ctx, "Prediction area search issued", "location", loc.Name, "token", token)
	candidate := o.search(ctx, loc)

	overlay, decision := o.resolver.ResolveWithDecision(candidate)
	metrics.ResolutionsTotal.WithLabelValues(string(overlay.Kind), string(decision)).Inc()
	logging.Debugw(ctx, "Prediction area resolved",
		"location", loc.Name, "token", token, "kind", overlay.Kind, "decision", decision)

	placed := area.PlacedOverlay{
		Name:     loc.Name,
		Center:   loc.Anchor,
		Overlay:  overlay,
		Decision: decision,
		Token:    uint64(token),
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if token != o.token {
		metrics.OverlaysDiscarded.Inc()
		logging.Debugw(ctx, "Prediction area discarded",
			"location", loc.Name, "token", token, "current_token", o.token)
		return
	}

	o.overlays = append(o.overlays, placed)
	o.publishLocked()
	metrics.OverlaysPublished.Inc()
	logging.Debugw(ctx, "Prediction area published", "location", loc.Name, "token", token)
}

// search returns the candidate for a location. Any failure produces an empty
// candidate, which resolves to the default circle.
func (o *OverlayOrchestrator) search(ctx context.Context, loc Location) area.Candidate {
	empty := area.Candidate{Anchor: loc.Anchor}

	if err := o.sem.Acquire(ctx, 1); err != nil {
		logging.Warnw(ctx, "Prediction area search not started", "location", loc.Name, "error", err)
		metrics.SearchesTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return empty
	}
	defer o.sem.Release(1)

	started := time.Now()
	resp, err := o.searcher.Search(ctx, search.Request{
		Query:    loc.Name,
		Anchor:   loc.Anchor,
		WindowKm: o.windowKm,
	})
	if err != nil {
		metrics.ObserveSearch(metrics.OutcomeError, started)
		logging.Warnw(ctx, "Prediction area search failed", "location", loc.Name, "error", err)
		return empty
	}
	if resp == nil || len(resp.Places) == 0 {
		metrics.ObserveSearch(metrics.OutcomeEmpty, started)
		return empty
	}
	metrics.ObserveSearch(metrics.OutcomeOK, started)

	return candidateFromResponse(loc.Anchor, resp)
}

func candidateFromResponse(anchor geo.Point, resp *search.Response) area.Candidate {
	results := make([]area.Result, len(resp.Places))
	for i, place := range resp.Places {
		results[i] = area.Result{Location: place.Location, RadiusKm: place.RadiusKm}
	}

	var region *area.Region
	if resp.Region != nil {
		region = &area.Region{Center: resp.Region.Center, Span: resp.Region.Span}
	}

	return area.NewCandidate(anchor, region, results)
}

func (o *OverlayOrchestrator) publishLocked() {
	metrics.OverlaysCurrent.Set(float64(len(o.overlays)))
	if o.renderer != nil {
		o.renderer.ReplaceOverlays(o.snapshotLocked())
	}
}

func (o *OverlayOrchestrator) snapshotLocked() []area.PlacedOverlay {
	out := make([]area.PlacedOverlay, len(o.overlays))
	copy(out, o.overlays)
	return out
}
