package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hourtrack/backend/config"
	"github.com/hourtrack/backend/pkg/redis"
)

// Coordinates is a resolved lat/lng pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Resolver looks up coordinates for a free-form address, caching results in
// Redis and in-process for the lifetime of the service. A nil result with a
// nil error means the address could not be resolved.
type Resolver struct {
	baseURL  string
	client   *http.Client
	redis    *redis.Client
	cacheTTL time.Duration
	logger   *zap.Logger

	mu    sync.RWMutex
	local map[string]*Coordinates
}

// NewResolver creates a resolver. A nil redis client disables the shared
// cache; an empty base URL disables lookups entirely.
func NewResolver(cfg config.GeocodeConfig, rdb *redis.Client, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		baseURL:  cfg.BaseURL,
		client:   &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		redis:    rdb,
		cacheTTL: time.Duration(cfg.CacheTTLHours) * time.Hour,
		logger:   logger,
		local:    make(map[string]*Coordinates),
	}
}

func cacheKey(address string) string {
	return "geocode:" + address
}

// Lookup resolves an address to coordinates, consulting the in-process map,
// then Redis, then the upstream geocoder.
func (r *Resolver) Lookup(ctx context.Context, address string) (*Coordinates, error) {
	if address == "" || r.baseURL == "" {
		return nil, nil
	}

	r.mu.RLock()
	cached, hit := r.local[address]
	r.mu.RUnlock()
	if hit {
		return cached, nil
	}

	if coords, ok := r.fromRedis(ctx, address); ok {
		r.store(address, coords)
		return coords, nil
	}

	coords, err := r.fetch(ctx, address)
	if err != nil {
		return nil, err
	}
	r.store(address, coords)
	r.toRedis(ctx, address, coords)
	return coords, nil
}

// ResolveAsync performs the lookup in the background and hands the result to
// apply. Failures are logged and dropped; callers never wait.
func (r *Resolver) ResolveAsync(address string, apply func(ctx context.Context, coords Coordinates) error) {
	if address == "" || r.baseURL == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		coords, err := r.Lookup(ctx, address)
		if err != nil {
			r.logger.Warn("geocode lookup failed", zap.String("address", address), zap.Error(err))
			return
		}
		if coords == nil {
			return
		}
		if err := apply(ctx, *coords); err != nil {
			r.logger.Warn("geocode apply failed", zap.String("address", address), zap.Error(err))
		}
	}()
}

func (r *Resolver) store(address string, coords *Coordinates) {
	r.mu.Lock()
	r.local[address] = coords
	r.mu.Unlock()
}

func (r *Resolver) fromRedis(ctx context.Context, address string) (*Coordinates, bool) {
	if r.redis == nil {
		return nil, false
	}
	raw, err := r.redis.Get(ctx, cacheKey(address)).Result()
	if err != nil {
		return nil, false
	}
	if raw == "null" {
		return nil, true
	}
	var coords Coordinates
	if err := json.Unmarshal([]byte(raw), &coords); err != nil {
		return nil, false
	}
	return &coords, true
}

func (r *Resolver) toRedis(ctx context.Context, address string, coords *Coordinates) {
	if r.redis == nil {
		return
	}
	payload := []byte("null")
	if coords != nil {
		payload, _ = json.Marshal(coords)
	}
	if err := r.redis.Set(ctx, cacheKey(address), payload, r.cacheTTL).Err(); err != nil {
		r.logger.Warn("geocode cache write failed", zap.Error(err))
	}
}

type lookupResponse struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func (r *Resolver) fetch(ctx context.Context, address string) (*Coordinates, error) {
	u := fmt.Sprintf("%s?address=%s", r.baseURL, url.QueryEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder status %d", resp.StatusCode)
	}
	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if body.Lat == nil || body.Lng == nil {
		return nil, nil
	}
	return &Coordinates{Lat: *body.Lat, Lng: *body.Lng}, nil
}

// Distance returns the great-circle distance between two points in
// kilometers, by the haversine formula.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371

	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}
