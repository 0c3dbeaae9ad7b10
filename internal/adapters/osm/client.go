// Package osm talks to the public OpenStreetMap services: Nominatim for
// geocoding and Overpass for the business query.
package osm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/werkstatt/internal/adapters/cache"
	"github.com/okian/werkstatt/internal/config"
	"github.com/okian/werkstatt/internal/domain/model"
	"github.com/okian/werkstatt/pkg/logger"
	"github.com/okian/werkstatt/pkg/metrics"
)

// Service labels used in metrics and logs.
const (
	serviceNominatim = "nominatim"
	serviceOverpass  = "overpass"
)

// maxErrorBody caps how much of an upstream error body is kept.
const maxErrorBody = 512

// Config holds the explicit settings of a Client.
type Config struct {
	ContactEmail string
	UserAgent    string
	NominatimURL string
	OverpassURL  string

	GeocodeTimeout  time.Duration
	OverpassTimeout time.Duration
	RetryBackoff    time.Duration

	GeocodeTTL time.Duration
	QueryTTL   time.Duration
}

// ConfigFrom maps process configuration onto client settings.
func ConfigFrom(c *config.Config) Config {
	return Config{
		ContactEmail:    c.ContactEmail,
		UserAgent:       c.EffectiveUserAgent(),
		NominatimURL:    c.NominatimURL,
		OverpassURL:     c.OverpassURL,
		GeocodeTimeout:  c.GeocodeTimeout(),
		OverpassTimeout: c.OverpassTimeout(),
		RetryBackoff:    c.RetryBackoff(),
		GeocodeTTL:      c.GeocodeCacheTTL(),
		QueryTTL:        c.QueryCacheTTL(),
	}
}

// Client geocodes places and runs Overpass queries, caching both.
type Client struct {
	cfg      Config
	cache    cache.Cache
	geocoder *http.Client
	overpass *http.Client
	logger   logger.Logger
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithCache sets the response cache. The default stores nothing.
func WithCache(c cache.Cache) Option {
	return func(cl *Client) {
		if c != nil {
			cl.cache = c
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// WithHTTPClient replaces both HTTP clients. Timeouts from Config are not
// applied to a caller-supplied client.
func WithHTTPClient(h *http.Client) Option {
	return func(cl *Client) {
		if h != nil {
			cl.geocoder = h
			cl.overpass = h
		}
	}
}

// New creates a Client.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg:      cfg,
		cache:    cache.Nop{},
		geocoder: &http.Client{Timeout: cfg.GeocodeTimeout},
		overpass: &http.Client{Timeout: cfg.OverpassTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Named("osm")
	}
	return c
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode resolves q to its best match inside Germany. An empty answer is
// not an error: it yields the not-found ReferencePoint, which is cached too.
func (c *Client) Geocode(ctx context.Context, q string) (model.ReferencePoint, error) {
	key := "geocode:" + strings.ToLower(strings.TrimSpace(q))
	if b, ok := c.cache.Get(ctx, key); ok {
		var ref model.ReferencePoint
		if err := json.Unmarshal(b, &ref); err == nil {
			metrics.RecordCacheHit(serviceNominatim)
			return ref, nil
		}
	}
	metrics.RecordCacheMiss(serviceNominatim)

	params := url.Values{}
	params.Set("q", q)
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("countrycodes", "de")
	if c.cfg.ContactEmail != "" {
		params.Set("email", c.cfg.ContactEmail)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.NominatimURL+"?"+params.Encode(), nil)
	if err != nil {
		return model.ReferencePoint{}, fmt.Errorf("build geocode request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.do(ctx, c.geocoder, req, serviceNominatim)
	if err != nil {
		return model.ReferencePoint{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return model.ReferencePoint{}, fmt.Errorf("%w: decode nominatim response: %w", model.ErrUpstream, err)
	}

	ref := model.ReferencePoint{}
	if len(places) > 0 {
		ref, err = toReference(places[0])
		if err != nil {
			return model.ReferencePoint{}, err
		}
	}

	if b, err := json.Marshal(ref); err == nil {
		if err := c.cache.Set(ctx, key, b, c.cfg.GeocodeTTL); err != nil {
			c.logger.Warn(ctx, "geocode cache write failed", logger.Error(err))
		}
	}

	c.logger.Debug(ctx, "geocoded location",
		logger.String("query", q),
		logger.Bool("found", ref.Found()),
		logger.String("display_name", ref.DisplayName),
	)
	return ref, nil
}

func toReference(p nominatimPlace) (model.ReferencePoint, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return model.ReferencePoint{}, fmt.Errorf("%w: bad latitude %q", model.ErrUpstream, p.Lat)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return model.ReferencePoint{}, fmt.Errorf("%w: bad longitude %q", model.ErrUpstream, p.Lon)
	}
	return model.ReferencePoint{Lat: model.Float(lat), Lon: model.Float(lon), DisplayName: p.DisplayName}, nil
}

type overpassResponse struct {
	Elements []model.RawRecord `json:"elements"`
}

// Elements runs an Overpass QL query. A 429 answer is retried once after the
// configured back-off; any other non-2xx status fails with model.ErrUpstream.
// A response without an elements key is an empty result.
func (c *Client) Elements(ctx context.Context, query string) ([]model.RawRecord, error) {
	sum := sha256.Sum256([]byte(query))
	key := "overpass:" + hex.EncodeToString(sum[:])
	if b, ok := c.cache.Get(ctx, key); ok {
		var recs []model.RawRecord
		if err := json.Unmarshal(b, &recs); err == nil {
			metrics.RecordCacheHit(serviceOverpass)
			return recs, nil
		}
	}
	metrics.RecordCacheMiss(serviceOverpass)

	resp, err := c.postQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		_ = resp.Body.Close()
		metrics.RecordUpstreamRetry(serviceOverpass)
		c.logger.Warn(ctx, "overpass rate limited, retrying", logger.Duration("backoff", c.cfg.RetryBackoff))
		if err := sleep(ctx, c.cfg.RetryBackoff); err != nil {
			return nil, err
		}
		resp, err = c.postQuery(ctx, query)
		if err != nil {
			return nil, err
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp, serviceOverpass); err != nil {
		return nil, err
	}

	var out overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode overpass response: %w", model.ErrUpstream, err)
	}
	if out.Elements == nil {
		out.Elements = []model.RawRecord{}
	}

	if b, err := json.Marshal(out.Elements); err == nil {
		if err := c.cache.Set(ctx, key, b, c.cfg.QueryTTL); err != nil {
			c.logger.Warn(ctx, "overpass cache write failed", logger.Error(err))
		}
	}

	c.logger.Debug(ctx, "overpass query done", logger.Int("elements", len(out.Elements)))
	return out.Elements, nil
}

// postQuery sends the query and returns the raw response, leaving status
// handling to the caller so a 429 can be retried.
func (c *Client) postQuery(ctx context.Context, query string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OverpassURL, strings.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("build overpass request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	start := time.Now()
	resp, err := c.overpass.Do(req)
	if err != nil {
		metrics.RecordUpstreamRequest(serviceOverpass, "error", msSince(start))
		return nil, transportError(ctx, serviceOverpass, err)
	}
	metrics.RecordUpstreamRequest(serviceOverpass, strconv.Itoa(resp.StatusCode), msSince(start))
	return resp, nil
}

// do sends req and fails on transport errors and non-2xx statuses.
func (c *Client) do(ctx context.Context, h *http.Client, req *http.Request, service string) (*http.Response, error) {
	start := time.Now()
	resp, err := h.Do(req)
	if err != nil {
		metrics.RecordUpstreamRequest(service, "error", msSince(start))
		return nil, transportError(ctx, service, err)
	}
	metrics.RecordUpstreamRequest(service, strconv.Itoa(resp.StatusCode), msSince(start))
	if err := checkStatus(resp, service); err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")
}

// StatusError is returned for non-2xx upstream answers.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Body)
}

// Unwrap lets errors.Is match model.ErrUpstream.
func (e *StatusError) Unwrap() error { return model.ErrUpstream }

func checkStatus(resp *http.Response, service string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Service: service, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

// transportError keeps context cancellation visible to callers.
func transportError(ctx context.Context, service string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s timed out: %w", model.ErrUpstream, service, err)
	}
	return fmt.Errorf("%w: %s: %w", model.ErrUpstream, service, err)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
