// Package dedupe collapses records that describe the same physical business.
package dedupe

import (
	"context"
	"strings"

	"github.com/okian/werkstatt/internal/domain/model"
)

// keySep cannot occur in OSM tag values after trimming.
const keySep = "\x1f"

// Key is the case-insensitive identity of a business:
// name, street, house number, postcode and city.
type Key struct {
	Name        string
	Street      string
	HouseNumber string
	Postcode    string
	City        string
}

// KeyOf builds the dedup key of a normalized record.
func KeyOf(r model.NormalizedRecord) Key {
	return Key{
		Name:        strings.ToLower(r.Name),
		Street:      strings.ToLower(r.Street),
		HouseNumber: strings.ToLower(r.HouseNumber),
		Postcode:    strings.ToLower(r.Postcode),
		City:        strings.ToLower(r.City),
	}
}

// String renders the key as a single string suitable for a Deduper.
func (k Key) String() string {
	return strings.Join([]string{k.Name, k.Street, k.HouseNumber, k.Postcode, k.City}, keySep)
}

// Deduper records seen keys. Implementations are scoped to a single pipeline
// invocation and are not safe for concurrent use.
type Deduper interface {
	// SeenAndRecord reports whether id was seen before and records it if not.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so that a later occurrence is kept again.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper implements Deduper with a plain set.
type inMemoryDeduper struct {
	seen     map[string]struct{}
	capacity int
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{}, d.capacity)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	if _, exists := d.seen[id]; exists {
		return true
	}
	d.seen[id] = struct{}{}
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	delete(d.seen, id)
}

func (d *inMemoryDeduper) Size() int64 {
	return int64(len(d.seen))
}

// Filter drops every record whose key was already seen earlier in iteration
// order. The first occurrence is kept unchanged; later ones are discarded, not
// merged. When enabled is false the input is returned as is.
func Filter(ctx context.Context, records []model.NormalizedRecord, enabled bool) ([]model.NormalizedRecord, int) {
	if !enabled {
		return records, 0
	}
	d := NewInMemoryDeduper(WithCapacity(len(records)))
	kept := make([]model.NormalizedRecord, 0, len(records))
	for _, r := range records {
		if d.SeenAndRecord(ctx, KeyOf(r).String()) {
			continue
		}
		kept = append(kept, r)
	}
	return kept, len(records) - len(kept)
}
