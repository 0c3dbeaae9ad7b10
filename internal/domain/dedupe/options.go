// Package dedupe collapses records that describe the same physical business.
package dedupe

// Option applies a configuration option to the InMemoryDeduper.
type Option func(*inMemoryDeduper)

// WithCapacity pre-sizes the seen set. Values <= 0 are ignored.
func WithCapacity(capacity int) Option {
	return func(d *inMemoryDeduper) {
		if capacity > 0 {
			d.capacity = capacity
		}
	}
}
