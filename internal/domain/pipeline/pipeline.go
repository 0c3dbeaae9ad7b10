// Package pipeline turns raw OSM records into a ranked, deduplicated result set.
package pipeline

import (
	"context"
	"sort"

	"github.com/okian/werkstatt/internal/domain/classify"
	"github.com/okian/werkstatt/internal/domain/dedupe"
	"github.com/okian/werkstatt/internal/domain/extract"
	"github.com/okian/werkstatt/internal/domain/geo"
	"github.com/okian/werkstatt/internal/domain/model"
	"github.com/okian/werkstatt/pkg/logger"
)

// Input is everything a single assembly needs.
type Input struct {
	Records   []model.RawRecord
	Reference model.ReferencePoint
	// Categories records which upstream query filters were active. The
	// assembler does not filter on it.
	Categories model.CategoryFlags
	Dedup      bool
}

// Stats summarizes one assembly run.
type Stats struct {
	Raw        int
	Duplicates int
	Located    int
	ByCategory map[string]int
}

// Assembler joins extraction, classification, distance and dedup.
type Assembler struct {
	classifier *classify.Classifier
	logger     logger.Logger
}

// Option applies a configuration option to the Assembler.
type Option func(*Assembler)

// WithClassifier overrides the category classifier.
func WithClassifier(c *classify.Classifier) Option {
	return func(a *Assembler) {
		if c != nil {
			a.classifier = c
		}
	}
}

// WithLogger enables debug logging of assembly runs.
func WithLogger(l logger.Logger) Option {
	return func(a *Assembler) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an Assembler using the default classifier.
func New(opts ...Option) *Assembler {
	a := &Assembler{classifier: classify.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble runs the pipeline. An empty input yields an empty, non-nil result.
func (a *Assembler) Assemble(ctx context.Context, in Input) model.ResultSet {
	rs, _ := a.AssembleWithStats(ctx, in)
	return rs
}

// AssembleWithStats runs the pipeline and reports counters about the run.
func (a *Assembler) AssembleWithStats(ctx context.Context, in Input) (model.ResultSet, Stats) {
	ref := in.Reference.Coordinate()

	normalized := make([]model.NormalizedRecord, 0, len(in.Records))
	for _, raw := range in.Records {
		normalized = append(normalized, a.normalize(raw, ref))
	}

	kept, dropped := dedupe.Filter(ctx, normalized, in.Dedup)
	rs := model.ResultSet(kept)
	Sort(rs)

	st := Stats{Raw: len(in.Records), Duplicates: dropped, ByCategory: make(map[string]int)}
	for _, r := range rs {
		st.ByCategory[r.Category]++
		if r.DistanceKM != nil {
			st.Located++
		}
	}

	if a.logger != nil {
		a.logger.Debug(ctx, "assembled result set",
			logger.Int("raw", st.Raw),
			logger.Int("kept", len(rs)),
			logger.Int("duplicates", st.Duplicates),
			logger.Bool("dedup", in.Dedup),
		)
	}
	return rs, st
}

func (a *Assembler) normalize(raw model.RawRecord, ref *model.Coordinate) model.NormalizedRecord {
	f := extract.Extract(raw.Tags)
	pos := raw.Position()

	rec := model.NormalizedRecord{
		Name:        f.Name,
		Street:      f.Street,
		HouseNumber: f.HouseNumber,
		Postcode:    f.Postcode,
		City:        f.City,
		Address:     f.Address,
		Phone:       f.Phone,
		Website:     f.Website,
		Category:    a.classifier.Classify(raw.Tags),
		DistanceKM:  geo.HaversineKM(ref, pos),
	}
	if pos != nil {
		rec.Lat = model.Float(pos.Lat)
		rec.Lon = model.Float(pos.Lon)
	}
	return rec
}

// Sort orders rs in place by distance ascending (missing distances last),
// then city, then name. Ties keep their input order.
func Sort(rs model.ResultSet) {
	sort.SliceStable(rs, func(i, j int) bool {
		return less(rs[i], rs[j])
	})
}

func less(a, b model.NormalizedRecord) bool {
	switch {
	case a.DistanceKM == nil && b.DistanceKM != nil:
		return false
	case a.DistanceKM != nil && b.DistanceKM == nil:
		return true
	case a.DistanceKM != nil && *a.DistanceKM != *b.DistanceKM:
		return *a.DistanceKM < *b.DistanceKM
	}
	if a.City != b.City {
		return a.City < b.City
	}
	return a.Name < b.Name
}
