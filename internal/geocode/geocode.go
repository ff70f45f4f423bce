// Package geocode proxies address search and reverse lookups to a
// Nominatim-compatible service.  Upstream calls are spaced out to respect
// the public usage policy and answers are cached in Redis.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/volunteer-map/internal/apierr"
)

const (
	DefaultBaseURL     = "https://nominatim.openstreetmap.org"
	DefaultMinInterval = 1100 * time.Millisecond
	DefaultCacheTTL    = 10 * time.Minute
	requestTimeout     = 12 * time.Second
	searchLimit        = 6
	minQueryLen        = 3
)

// Place is one geocoding result.
type Place struct {
	Label string          `json:"label"`
	Lat   float64         `json:"lat"`
	Lng   float64         `json:"lng"`
	Raw   json.RawMessage `json:"raw"`
}

// Client talks to Nominatim.  Cache may be nil.
type Client struct {
	BaseURL     string
	UserAgent   string
	Referer     string
	Country     string
	HTTP        *http.Client
	Cache       *redis.Client
	CacheTTL    time.Duration
	MinInterval time.Duration
	Logger      *zap.Logger

	mu   sync.Mutex
	last time.Time
}

// New returns a client with the default timeout, spacing and cache TTL.
func New(baseURL, userAgent, country string, cache *redis.Client, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		UserAgent:   userAgent,
		Country:     country,
		HTTP:        &http.Client{Timeout: requestTimeout},
		Cache:       cache,
		CacheTTL:    DefaultCacheTTL,
		MinInterval: DefaultMinInterval,
		Logger:      log,
	}
}

// Search looks up addresses matching q.
func (c *Client) Search(ctx context.Context, q string) ([]Place, error) {
	q = strings.TrimSpace(q)
	if len([]rune(q)) < minQueryLen {
		return nil, apierr.BadRequest("query must be at least 3 characters")
	}
	key := "geo:s:" + strings.ToLower(q)
	var places []Place
	if c.cached(ctx, key, &places) {
		return places, nil
	}

	params := url.Values{
		"q":              {q},
		"format":         {"jsonv2"},
		"addressdetails": {"1"},
		"limit":          {strconv.Itoa(searchLimit)},
	}
	if c.Country != "" {
		params.Set("countrycodes", c.Country)
	}
	var raw []json.RawMessage
	if err := c.get(ctx, "/search", params, &raw); err != nil {
		return nil, err
	}

	places = make([]Place, 0, len(raw))
	for _, r := range raw {
		var hit struct {
			DisplayName string `json:"display_name"`
			Lat         string `json:"lat"`
			Lon         string `json:"lon"`
		}
		if err := json.Unmarshal(r, &hit); err != nil {
			continue
		}
		lat, err1 := strconv.ParseFloat(hit.Lat, 64)
		lng, err2 := strconv.ParseFloat(hit.Lon, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		places = append(places, Place{Label: hit.DisplayName, Lat: lat, Lng: lng, Raw: r})
	}
	c.store(ctx, key, places)
	return places, nil
}

// Reverse returns the address at lat,lng, or nil when the coordinates are
// not finite numbers or nothing is there.
func (c *Client) Reverse(ctx context.Context, lat, lng float64) (*Place, error) {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return nil, nil
	}
	key := fmt.Sprintf("geo:r:%.6f:%.6f", lat, lng)
	var place *Place
	if c.cached(ctx, key, &place) {
		return place, nil
	}

	params := url.Values{
		"lat":            {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":            {strconv.FormatFloat(lng, 'f', -1, 64)},
		"format":         {"jsonv2"},
		"zoom":           {"18"},
		"addressdetails": {"1"},
	}
	var raw json.RawMessage
	if err := c.get(ctx, "/reverse", params, &raw); err != nil {
		return nil, err
	}
	var hit struct {
		DisplayName string `json:"display_name"`
		Error       string `json:"error"`
	}
	if err := json.Unmarshal(raw, &hit); err == nil && hit.Error == "" && hit.DisplayName != "" {
		place = &Place{Label: hit.DisplayName, Lat: lat, Lng: lng, Raw: raw}
	}
	c.store(ctx, key, place)
	return place, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")
	if c.Referer != "" {
		req.Header.Set("Referer", c.Referer)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("geocode %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geocode %s: upstream status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("geocode %s: decode: %w", path, err)
	}
	return nil
}

// wait blocks until MinInterval has passed since the previous upstream call.
func (c *Client) wait(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d := c.MinInterval - time.Since(c.last); d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	c.last = time.Now()
	return nil
}

func (c *Client) cached(ctx context.Context, key string, out any) bool {
	if c.Cache == nil {
		return false
	}
	bs, err := c.Cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.Logger.Warn("geocode cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	return json.Unmarshal(bs, out) == nil
}

func (c *Client) store(ctx context.Context, key string, v any) {
	if c.Cache == nil {
		return
	}
	bs, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.Cache.Set(context.WithoutCancel(ctx), key, bs, c.CacheTTL).Err(); err != nil {
		c.Logger.Warn("geocode cache write failed", zap.String("key", key), zap.Error(err))
	}
}
