package services

import (
	"context"
	"sync"
	"time"

	"github.com/dpup/prefab/logging"
)

// AreaRefresher starts a refresh of the displayed prediction areas
type AreaRefresher interface {
	Refresh(ctx context.Context, locations []Location) RequestToken
}

// PeriodicRefreshService re-requests prediction areas for a fixed set of locations
// so the displayed overlays follow changes in the search back-end
type PeriodicRefreshService struct {
	refresher AreaRefresher
	locations []Location
	interval  time.Duration

	mu       sync.Mutex
	stopChan chan struct{}
	running  bool
}

// NewPeriodicRefreshService creates a new periodic refresh service
func NewPeriodicRefreshService(refresher AreaRefresher, locations []Location, interval time.Duration) *PeriodicRefreshService {
	return &PeriodicRefreshService{
		refresher: refresher,
		locations: locations,
		interval:  interval,
	}
}

// StartPeriodicRefresh refreshes immediately and then once per interval
func (p *PeriodicRefreshService) StartPeriodicRefresh(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil // Already running
	}
	p.running = true
	p.stopChan = make(chan struct{})

	logging.Infow(ctx, "Starting periodic area refresh", "interval", p.interval, "locations", len(p.locations))

	go p.refreshLoop(ctx, p.stopChan)
	return nil
}

// Stop gracefully stops the periodic refresh
func (p *PeriodicRefreshService) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	p.running = false
	close(p.stopChan)
}

// IsRunning returns whether periodic refresh is active
func (p *PeriodicRefreshService) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *PeriodicRefreshService) refreshLoop(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			logging.Infow(ctx, "Periodic area refresh stopping due to context cancellation")
			return
		case <-stop:
			logging.Infow(ctx, "Periodic area refresh stopping due to stop signal")
			return
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

func (p *PeriodicRefreshService) refresh(ctx context.Context) {
	token := p.refresher.Refresh(ctx, p.locations)
	logging.Debugw(ctx, "Periodic area refresh issued", "token", token)
}
