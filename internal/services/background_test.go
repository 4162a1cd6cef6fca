package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/skytrails/trailmap/internal/config"
	"github.com/skytrails/trailmap/internal/lib/geo"
	"github.com/skytrails/trailmap/internal/render"
)

// MockAreaRefresher is a mock implementation of AreaRefresher
type MockAreaRefresher struct {
	mock.Mock
}

func (m *MockAreaRefresher) Refresh(ctx context.Context, locations []Location) RequestToken {
	args := m.Called(ctx, locations)
	return args.Get(0).(RequestToken)
}

func TestPeriodicRefresh_RefreshesUntilStopped(t *testing.T) {
	locations := []Location{{Name: "Marsh", Anchor: marshAnchor}}
	var calls atomic.Int32
	refresher := &MockAreaRefresher{}
	refresher.On("Refresh", mock.Anything, locations).Return(RequestToken(1)).Run(func(mock.Arguments) { calls.Add(1) })

	p := NewPeriodicRefreshService(refresher, locations, 5*time.Millisecond)
	require.NoError(t, p.StartPeriodicRefresh(context.Background()))
	require.NoError(t, p.StartPeriodicRefresh(context.Background()), "Starting twice is a no-op")
	assert.True(t, p.IsRunning())

	assert.Eventually(t, func() bool {
		return calls.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	p.Stop()
	assert.False(t, p.IsRunning())
	p.Stop()
}

func TestPeriodicRefresh_StopsOnContextCancel(t *testing.T) {
	var calls atomic.Int32
	refresher := &MockAreaRefresher{}
	refresher.On("Refresh", mock.Anything, mock.Anything).Return(RequestToken(1)).Run(func(mock.Arguments) { calls.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	p := NewPeriodicRefreshService(refresher, nil, time.Hour)
	require.NoError(t, p.StartPeriodicRefresh(ctx))

	// The first refresh happens immediately
	assert.Eventually(t, func() bool {
		return calls.Load() == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
}

// pathRecorder records the layers and markers drawn by an animation
type pathRecorder struct {
	mu      sync.Mutex
	layers  map[string][]geo.Path
	markers []geo.Point
}

func newPathRecorder() *pathRecorder {
	return &pathRecorder{layers: make(map[string][]geo.Path)}
}

func (p *pathRecorder) SetPath(layer string, path geo.Path) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.layers[layer] = append(p.layers[layer], path)
}

func (p *pathRecorder) SetMarker(point geo.Point) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.markers = append(p.markers, point)
}

var animationRoute = geo.Path{
	{Latitude: 0, Longitude: 0},
	{Latitude: 0, Longitude: 10},
}

func TestProgressAnimator_Frame(t *testing.T) {
	recorder := newPathRecorder()
	a := NewProgressAnimator(animationRoute, recorder, &config.AnimationConfig{Duration: time.Second, FrameInterval: time.Millisecond})

	progress := a.Frame(0.5)

	assert.InDelta(t, 5.0, progress.CurrentPoint.Longitude, 1e-9)
	require.Len(t, recorder.layers[render.LayerProgress], 1)
	assert.Equal(t, progress.ConsumedPath, recorder.layers[render.LayerProgress][0])
	assert.Equal(t, []geo.Point{progress.CurrentPoint}, recorder.markers)
}

func TestProgressAnimator_PlaysToCompletion(t *testing.T) {
	recorder := newPathRecorder()
	a := NewProgressAnimator(animationRoute, recorder, &config.AnimationConfig{
		Duration:      30 * time.Millisecond,
		FrameInterval: 2 * time.Millisecond,
	})

	done, err := a.Start(context.Background())
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("animation did not finish")
	}
	assert.False(t, a.IsRunning())

	recorder.mu.Lock()
	defer recorder.mu.Unlock()

	require.Len(t, recorder.layers[render.LayerRoute], 1)
	assert.Equal(t, animationRoute, recorder.layers[render.LayerRoute][0])

	frames := recorder.layers[render.LayerProgress]
	require.GreaterOrEqual(t, len(frames), 2)
	assert.Equal(t, geo.Path{animationRoute[0]}, frames[0], "First frame is the route start")
	assert.Equal(t, animationRoute, frames[len(frames)-1], "Last frame is the whole route")
	assert.Equal(t, animationRoute[1], recorder.markers[len(recorder.markers)-1])

	// The marker only moves forward
	for i := 1; i < len(recorder.markers); i++ {
		assert.GreaterOrEqual(t, recorder.markers[i].Longitude, recorder.markers[i-1].Longitude)
	}
}

func TestProgressAnimator_Stop(t *testing.T) {
	recorder := newPathRecorder()
	a := NewProgressAnimator(animationRoute, recorder, &config.AnimationConfig{
		Duration:      time.Hour,
		FrameInterval: time.Millisecond,
	})

	done, err := a.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, a.IsRunning())

	_, err = a.Start(context.Background())
	assert.ErrorIs(t, err, ErrAnimationRunning)

	a.Stop()
	assert.False(t, a.IsRunning())
	select {
	case <-done:
	default:
		t.Fatal("done channel not closed after Stop")
	}

	// Restartable after stopping
	_, err = a.Start(context.Background())
	require.NoError(t, err)
	a.Stop()
}
