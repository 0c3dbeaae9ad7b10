// Package service provides the search service used by the HTTP API and the
// command line client.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/okian/werkstatt/internal/domain/model"
	"github.com/okian/werkstatt/internal/domain/pipeline"
	"github.com/okian/werkstatt/internal/domain/query"
	"github.com/okian/werkstatt/pkg/logger"
	"github.com/okian/werkstatt/pkg/metrics"
)

// Geocoder resolves a free-text location to a reference point. A point
// without coordinates means the location was not found.
type Geocoder interface {
	Geocode(ctx context.Context, q string) (model.ReferencePoint, error)
}

// Source runs an Overpass query and returns the raw elements.
type Source interface {
	Elements(ctx context.Context, query string) ([]model.RawRecord, error)
}

// Defaults are applied by callers that let users omit search parameters.
type Defaults struct {
	RadiusKM   float64
	Categories model.CategoryFlags
	Dedup      bool
}

// Service implements the search use case.
type Service struct {
	mu sync.RWMutex

	geocoder  Geocoder
	source    Source
	assembler *pipeline.Assembler

	defaults     Defaults
	maxRadiusKM  float64
	queryTimeout int

	searches   atomic.Int64
	notFound   atomic.Int64
	failures   atomic.Int64
	lastCount  atomic.Int64
	lastSearch time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithGeocoder sets the geocoding collaborator.
func WithGeocoder(g Geocoder) Option {
	return func(s *Service) {
		if g != nil {
			s.geocoder = g
		}
	}
}

// WithSource sets the collaborator that runs Overpass queries.
func WithSource(src Source) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithAssembler overrides the result assembler.
func WithAssembler(a *pipeline.Assembler) Option {
	return func(s *Service) {
		if a != nil {
			s.assembler = a
		}
	}
}

// WithDefaults sets the values callers fall back to.
func WithDefaults(d Defaults) Option {
	return func(s *Service) {
		if d.RadiusKM > 0 {
			s.defaults.RadiusKM = d.RadiusKM
		}
		if d.Categories.Any() {
			s.defaults.Categories = d.Categories
		}
		s.defaults.Dedup = d.Dedup
	}
}

// WithMaxRadiusKM bounds the accepted search radius.
func WithMaxRadiusKM(km float64) Option {
	return func(s *Service) {
		if km > 0 {
			s.maxRadiusKM = km
		}
	}
}

// WithQueryTimeout sets the server-side Overpass timeout in seconds.
func WithQueryTimeout(seconds int) Option {
	return func(s *Service) {
		if seconds > 0 {
			s.queryTimeout = seconds
		}
	}
}

// New constructs a Service. Geocoder and Source are required before Search.
func New(opts ...Option) *Service {
	s := &Service{
		defaults: Defaults{
			RadiusKM:   25,
			Categories: model.DefaultCategories(),
			Dedup:      true,
		},
		maxRadiusKM:  50,
		queryTimeout: query.DefaultTimeoutSeconds,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	if s.assembler == nil {
		s.assembler = pipeline.New(pipeline.WithLogger(s.logger))
	}
	if s.defaults.RadiusKM > s.maxRadiusKM {
		s.defaults.RadiusKM = s.maxRadiusKM
	}
	return s
}

// Defaults returns the configured defaults.
func (s *Service) Defaults() Defaults { return s.defaults }

// MaxRadiusKM returns the largest accepted radius.
func (s *Service) MaxRadiusKM() float64 { return s.maxRadiusKM }

// NewRequest returns a request for location prefilled with the defaults.
func (s *Service) NewRequest(location string) model.SearchRequest {
	return model.SearchRequest{
		Location:   location,
		RadiusKM:   s.defaults.RadiusKM,
		Categories: s.defaults.Categories,
		Dedup:      s.defaults.Dedup,
	}
}

// GeocodeQuery validates a user location and returns the geocoder query.
// All-digit input must be a 4 or 5 digit German postal code.
func GeocodeQuery(location string) (string, error) {
	loc := strings.TrimSpace(location)
	if loc == "" {
		return "", fmt.Errorf("%w: location is required", model.ErrInvalidRequest)
	}
	if isDigits(loc) {
		if len(loc) < 4 || len(loc) > 5 {
			return "", fmt.Errorf("%w: postal code must have 4 or 5 digits", model.ErrInvalidRequest)
		}
		return loc + " Germany", nil
	}
	return loc, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

func (s *Service) validate(req model.SearchRequest) (string, error) {
	q, err := GeocodeQuery(req.Location)
	if err != nil {
		return "", err
	}
	// NaN must fail this check.
	if !(req.RadiusKM > 0 && req.RadiusKM <= s.maxRadiusKM) {
		return "", fmt.Errorf("%w: radius_km must be within (0, %g]", model.ErrInvalidRequest, s.maxRadiusKM)
	}
	if !req.Categories.Any() {
		return "", fmt.Errorf("%w: select at least one category", model.ErrInvalidRequest)
	}
	return q, nil
}

// Search geocodes the location, queries businesses around it and returns the
// assembled result set. An unknown location yields model.ErrLocationNotFound
// without querying Overpass.
func (s *Service) Search(ctx context.Context, req model.SearchRequest) (model.SearchResult, error) {
	start := time.Now()
	s.searches.Add(1)

	res, err := s.search(ctx, req)

	outcome := outcomeOf(err)
	metrics.RecordSearch(outcome, float64(time.Since(start).Microseconds())/1000)
	switch outcome {
	case metrics.OutcomeOK:
		s.lastCount.Store(int64(res.Count))
		s.mu.Lock()
		s.lastSearch = time.Now()
		s.mu.Unlock()
	case metrics.OutcomeNotFound:
		s.notFound.Add(1)
	case metrics.OutcomeUpstream, metrics.OutcomeCancelled:
		s.failures.Add(1)
	}

	fields := []logger.Field{
		logger.String("location", req.Location),
		logger.Float64("radius_km", req.RadiusKM),
		logger.String("outcome", outcome),
		logger.Duration("took", time.Since(start)),
	}
	if err != nil && outcome != metrics.OutcomeNotFound && outcome != metrics.OutcomeInvalid {
		s.logger.Error(ctx, "search failed", append(fields, logger.Error(err))...)
	} else {
		s.logger.Info(ctx, "search finished", append(fields, logger.Int("count", res.Count))...)
	}
	return res, err
}

func (s *Service) search(ctx context.Context, req model.SearchRequest) (model.SearchResult, error) {
	q, err := s.validate(req)
	if err != nil {
		return model.SearchResult{}, err
	}
	if s.geocoder == nil || s.source == nil {
		return model.SearchResult{}, errors.New("service: geocoder and source must be configured")
	}

	res := model.SearchResult{
		Location:   strings.TrimSpace(req.Location),
		RadiusM:    query.RadiusMeters(req.RadiusKM),
		Categories: req.Categories,
		Dedup:      req.Dedup,
		Records:    model.ResultSet{},
	}

	ref, err := s.geocoder.Geocode(ctx, q)
	if err != nil {
		return model.SearchResult{}, fmt.Errorf("geocode %q: %w", q, err)
	}
	res.Reference = ref
	if !ref.Found() {
		return res, fmt.Errorf("%w: %s", model.ErrLocationNotFound, res.Location)
	}

	ql, err := query.Build(*ref.Coordinate(), res.RadiusM, req.Categories, s.queryTimeout)
	if err != nil {
		return model.SearchResult{}, fmt.Errorf("%w: %w", model.ErrInvalidRequest, err)
	}

	raw, err := s.source.Elements(ctx, ql)
	if err != nil {
		return model.SearchResult{}, fmt.Errorf("fetch businesses: %w", err)
	}

	rs, st := s.assembler.AssembleWithStats(ctx, pipeline.Input{
		Records:    raw,
		Reference:  ref,
		Categories: req.Categories,
		Dedup:      req.Dedup,
	})
	metrics.RecordRecords(st.Raw, st.Duplicates)
	metrics.RecordResults(st.ByCategory, len(rs))

	res.Records = rs
	res.Count = len(rs)
	return res, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, model.ErrLocationNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, model.ErrInvalidRequest):
		return metrics.OutcomeInvalid
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCancelled
	default:
		return metrics.OutcomeUpstream
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	last := s.lastSearch
	s.mu.RUnlock()

	stats := map[string]interface{}{
		"searches":         s.searches.Load(),
		"notFound":         s.notFound.Load(),
		"failures":         s.failures.Load(),
		"lastResultCount":  s.lastCount.Load(),
		"defaultRadiusKm":  s.defaults.RadiusKM,
		"maxRadiusKm":      s.maxRadiusKM,
		"defaultDedup":     s.defaults.Dedup,
		"queryTimeoutSecs": s.queryTimeout,
	}
	if !last.IsZero() {
		stats["lastSearchAt"] = last.UTC().Format(time.RFC3339)
	}
	return stats
}
