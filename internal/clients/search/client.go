package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dpup/prefab/logging"
	"github.com/paulmach/orb"
	"golang.org/x/time/rate"

	"github.com/skytrails/trailmap/internal/lib/geo"
)

const kmPerDegreeLatitude = 111.32

// Config holds Nominatim client settings
type Config struct {
	BaseURL        string        `koanf:"base_url"`
	UserAgent      string        `koanf:"user_agent"`
	RequestsPerSec float64       `koanf:"requests_per_sec"`
	Timeout        time.Duration `koanf:"timeout"`
	ResultLimit    int           `koanf:"result_limit"`
	CacheTTL       time.Duration `koanf:"cache_ttl"`
}

// ResponseCache stores decoded search responses between calls
type ResponseCache interface {
	Get(key string, result interface{}) (bool, error)
	Set(key string, data interface{}, ttl time.Duration, source string) error
}

// Client searches for nearby places with the OpenStreetMap Nominatim API
type Client struct {
	config     Config
	httpClient HTTPDoer
	limiter    *rate.Limiter
	cache      ResponseCache
}

// NewClient creates a new Nominatim search client
func NewClient(config Config, cache ResponseCache) *Client {
	config = withDefaults(config)
	return NewClientWithHTTPDoer(config, &http.Client{Timeout: config.Timeout}, cache)
}

// NewClientWithHTTPDoer creates a client that sends requests through doer
func NewClientWithHTTPDoer(config Config, doer HTTPDoer, cache ResponseCache) *Client {
	config = withDefaults(config)
	return &Client{
		config:     config,
		httpClient: doer,
		limiter:    rate.NewLimiter(rate.Limit(config.RequestsPerSec), 1),
		cache:      cache,
	}
}

func withDefaults(config Config) Config {
	if config.BaseURL == "" {
		config.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if config.UserAgent == "" {
		config.UserAgent = "trailmap/1.0"
	}
	if config.RequestsPerSec <= 0 {
		config.RequestsPerSec = 1 // Nominatim usage policy
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.ResultLimit <= 0 {
		config.ResultLimit = 10
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 24 * time.Hour
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return config
}

// Search runs a nearby-place search bounded to a square window around the anchor.
// A response with no places is not an error.
func (c *Client) Search(ctx context.Context, req Request) (*Response, error) {
	if !geo.IsValid(req.Anchor) {
		return nil, fmt.Errorf("search anchor: %w", geo.ErrInvalidCoordinate)
	}
	if req.WindowKm <= 0 {
		req.WindowKm = DefaultWindowKm
	}

	cacheKey := fmt.Sprintf("search:%s:%.4f:%.4f:%.1f",
		strings.ToLower(strings.TrimSpace(req.Query)), req.Anchor.Latitude, req.Anchor.Longitude, req.WindowKm)
	if c.cache != nil {
		var cached Response
		found, err := c.cache.Get(cacheKey, &cached)
		if err != nil {
			logging.Warnw(ctx, "Search cache read failed", "key", cacheKey, "error", err)
		} else if found {
			logging.Debugw(ctx, "Search cache hit", "key", cacheKey)
			return &cached, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var (
		results []nominatimPlace
		err     error
	)
	if strings.TrimSpace(req.Query) == "" {
		results, err = c.reverse(ctx, req)
	} else {
		results, err = c.search(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	response := buildResponse(results)

	if c.cache != nil {
		if err := c.cache.Set(cacheKey, response, c.config.CacheTTL, "nominatim"); err != nil {
			logging.Warnw(ctx, "Failed to cache search response", "key", cacheKey, "error", err)
		}
	}

	return response, nil
}

// search runs a free-text query restricted to the window's viewbox
func (c *Client) search(ctx context.Context, req Request) ([]nominatimPlace, error) {
	window := searchWindow(req.Anchor, req.WindowKm)
	params := url.Values{
		"q":       {req.Query},
		"format":  {"jsonv2"},
		"limit":   {strconv.Itoa(c.config.ResultLimit)},
		"bounded": {"1"},
		// viewbox is <left>,<top>,<right>,<bottom>
		"viewbox": {fmt.Sprintf("%f,%f,%f,%f", window.Left(), window.Top(), window.Right(), window.Bottom())},
	}

	var results []nominatimPlace
	if err := c.get(ctx, "/search", params, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// reverse finds the place that contains the anchor
func (c *Client) reverse(ctx context.Context, req Request) ([]nominatimPlace, error) {
	params := url.Values{
		"lat":    {strconv.FormatFloat(req.Anchor.Latitude, 'f', -1, 64)},
		"lon":    {strconv.FormatFloat(req.Anchor.Longitude, 'f', -1, 64)},
		"format": {"jsonv2"},
	}

	var result struct {
		nominatimPlace
		Error string `json:"error"`
	}
	if err := c.get(ctx, "/reverse", params, &result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		// Nominatim reports "Unable to geocode" for open water and the like
		return nil, nil
	}
	return []nominatimPlace{result.nominatimPlace}, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("rate limit exceeded")
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	logging.Debugw(ctx, "Nominatim request completed", "path", path, "duration", time.Since(started))
	return nil
}

// nominatimPlace is a single place in a Nominatim jsonv2 response
type nominatimPlace struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Lat         string   `json:"lat"`
	Lon         string   `json:"lon"`
	BoundingBox []string `json:"boundingbox"` // [south, north, west, east]
}

// buildResponse converts raw places into a Response. Places with unparseable
// coordinates are skipped. The region is the union of every place's bounding box,
// or of the place locations when no boxes were returned.
func buildResponse(results []nominatimPlace) *Response {
	response := &Response{Places: []Place{}}
	var region orb.Bound
	haveRegion := false

	extend := func(b orb.Bound) {
		if !haveRegion {
			region = b
			haveRegion = true
			return
		}
		region = region.Union(b)
	}

	for _, result := range results {
		lat, errLat := strconv.ParseFloat(result.Lat, 64)
		lon, errLon := strconv.ParseFloat(result.Lon, 64)
		if errLat != nil || errLon != nil {
			continue
		}
		location := geo.Point{Latitude: lat, Longitude: lon}
		if !geo.IsValid(location) {
			continue
		}

		place := Place{Name: result.Name, Location: location}
		if place.Name == "" {
			place.Name = result.DisplayName
		}

		if box, ok := parseBoundingBox(result.BoundingBox); ok {
			radius := coveringRadiusKm(location, box)
			place.RadiusKm = &radius
			extend(box)
		} else {
			extend(orb.Point{lon, lat}.Bound())
		}

		response.Places = append(response.Places, place)
	}

	if haveRegion {
		center := region.Center()
		response.Region = &Region{
			Center: geo.Point{Latitude: center.Lat(), Longitude: center.Lon()},
			Span: geo.Span{
				LatitudeDelta:  region.Top() - region.Bottom(),
				LongitudeDelta: region.Right() - region.Left(),
			},
		}
	}

	return response
}

func parseBoundingBox(values []string) (orb.Bound, bool) {
	if len(values) != 4 {
		return orb.Bound{}, false
	}
	var f [4]float64
	for i, v := range values {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return orb.Bound{}, false
		}
		f[i] = parsed
	}
	south, north, west, east := f[0], f[1], f[2], f[3]
	if south > north || west > east {
		return orb.Bound{}, false
	}
	return orb.Bound{Min: orb.Point{west, south}, Max: orb.Point{east, north}}, true
}

// coveringRadiusKm returns the distance from location to the farthest corner of box
func coveringRadiusKm(location geo.Point, box orb.Bound) float64 {
	radius := 0.0
	for _, corner := range []orb.Point{box.Min, box.Max, {box.Left(), box.Top()}, {box.Right(), box.Bottom()}} {
		radius = math.Max(radius, geo.Distance(location, geo.Point{Latitude: corner.Lat(), Longitude: corner.Lon()}))
	}
	return radius
}

// searchWindow returns the square of side windowKm centred on anchor
func searchWindow(anchor geo.Point, windowKm float64) orb.Bound {
	half := windowKm / 2
	latDelta := half / kmPerDegreeLatitude
	lonDelta := half / (kmPerDegreeLatitude * math.Max(math.Cos(anchor.Latitude*math.Pi/180), 0.01))
	return orb.Bound{
		Min: orb.Point{anchor.Longitude - lonDelta, anchor.Latitude - latDelta},
		Max: orb.Point{anchor.Longitude + lonDelta, anchor.Latitude + latDelta},
	}
}
