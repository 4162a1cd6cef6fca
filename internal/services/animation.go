package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dpup/prefab/logging"

	"github.com/skytrails/trailmap/internal/config"
	"github.com/skytrails/trailmap/internal/lib/geo"
	"github.com/skytrails/trailmap/internal/render"
)

// ErrAnimationRunning is returned when Start is called on a running animation
var ErrAnimationRunning = errors.New("animation already running")

// ProgressRenderer draws route layers and the current-position marker
type ProgressRenderer interface {
	SetPath(layer string, path geo.Path)
	SetMarker(point geo.Point)
}

// ProgressAnimator plays a route from start to finish over a fixed duration,
// drawing the consumed part of the route on every frame
type ProgressAnimator struct {
	route    geo.Path
	renderer ProgressRenderer
	config   *config.AnimationConfig
	now      func() time.Time

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	done     chan struct{}
}

// NewProgressAnimator creates a new animator for route
func NewProgressAnimator(route geo.Path, renderer ProgressRenderer, config *config.AnimationConfig) *ProgressAnimator {
	return &ProgressAnimator{
		route:    route.Clone(),
		renderer: renderer,
		config:   config,
		now:      time.Now,
	}
}

// Frame draws the animation at a completion fraction and returns the progress
func (a *ProgressAnimator) Frame(fraction float64) geo.ProgressResult {
	progress := geo.ProgressAlong(a.route, fraction)
	a.renderer.SetPath(render.LayerProgress, progress.ConsumedPath)
	a.renderer.SetMarker(progress.CurrentPoint)
	return progress
}

// Start draws the full route and plays the animation in the background. The
// returned channel is closed once the animation finishes or is stopped.
func (a *ProgressAnimator) Start(ctx context.Context) (<-chan struct{}, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return nil, ErrAnimationRunning
	}
	a.running = true
	a.stopChan = make(chan struct{})
	a.done = make(chan struct{})

	a.renderer.SetPath(render.LayerRoute, a.route)
	a.Frame(0)

	logging.Infow(ctx, "Starting route animation",
		"points", len(a.route), "length_km", a.route.Length(), "duration", a.config.Duration)

	go a.animationLoop(ctx, a.stopChan, a.done)
	return a.done, nil
}

// Stop ends a running animation where it is
func (a *ProgressAnimator) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	close(a.stopChan)
	done := a.done
	a.mu.Unlock()

	<-done
}

// IsRunning returns whether the animation is playing
func (a *ProgressAnimator) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

func (a *ProgressAnimator) animationLoop(ctx context.Context, stop <-chan struct{}, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(a.config.FrameInterval)
	defer ticker.Stop()

	started := a.now()
	for {
		select {
		case <-ctx.Done():
			logging.Debugw(ctx, "Route animation stopping due to context cancellation")
			a.finish()
			return
		case <-stop:
			logging.Debugw(ctx, "Route animation stopping due to stop signal")
			return
		case <-ticker.C:
			fraction := 1.0
			if a.config.Duration > 0 {
				fraction = float64(a.now().Sub(started)) / float64(a.config.Duration)
			}
			a.Frame(fraction)
			if fraction >= 1 {
				logging.Debugw(ctx, "Route animation finished")
				a.finish()
				return
			}
		}
	}
}

func (a *ProgressAnimator) finish() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.running = false
}
