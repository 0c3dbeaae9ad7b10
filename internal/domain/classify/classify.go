// Package classify maps raw OSM tag combinations to a category label.
package classify

import (
	"strings"

	"github.com/okian/werkstatt/internal/domain/model"
)

// Substrings of the repair=* value that mark a generic repair shop as
// vehicle related. Matching is case-sensitive.
var vehicleRepairMarkers = []string{"car", "auto", "vehicle", "automobile", "cars"}

// Substrings of the joined service tags that mark a dealership as offering
// service.
var dealerServiceMarkers = []string{"vehicle", "repair", "service", "yes"}

// Dealer service tags joined (space separated) before matching.
var dealerServiceKeys = []string{"service", "service:vehicle", "service:vehicle:car_repair"}

// Rule pairs a predicate with the label returned when it matches.
type Rule struct {
	Label string
	Match func(tags map[string]string) bool
}

// Classifier evaluates rules in order; the first match is authoritative.
type Classifier struct {
	rules    []Rule
	fallback string
}

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithRules replaces the rule list.
func WithRules(rules ...Rule) Option {
	return func(c *Classifier) {
		c.rules = append([]Rule(nil), rules...)
	}
}

// WithFallback sets the label returned when no rule matches.
func WithFallback(label string) Option {
	return func(c *Classifier) {
		if label != "" {
			c.fallback = label
		}
	}
}

// New creates a classifier with the default rules unless overridden.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		rules:    DefaultRules(),
		fallback: model.CategoryOther,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Default returns a classifier with the built-in rule set.
func Default() *Classifier { return New() }

// Classify returns exactly one label for tags.
func (c *Classifier) Classify(tags map[string]string) string {
	for _, r := range c.rules {
		if r.Match(tags) {
			return r.Label
		}
	}
	return c.fallback
}

// DefaultRules returns a fresh copy of the built-in rules in priority order.
// Callers may append to the returned slice without affecting other classifiers.
func DefaultRules() []Rule {
	return []Rule{
		{Label: model.CategoryWorkshop, Match: isWorkshop},
		{Label: model.CategoryGenericRepair, Match: isVehicleRepairShop},
		{Label: model.CategoryDealer, Match: isServicingDealer},
		{Label: model.CategoryTyres, Match: TagEquals("shop", "tyres")},
		{Label: model.CategoryParts, Match: TagEquals("shop", "car_parts")},
	}
}

// TagEquals matches records whose key has exactly value.
func TagEquals(key, value string) func(map[string]string) bool {
	return func(tags map[string]string) bool {
		return tags[key] == value
	}
}

func isWorkshop(tags map[string]string) bool {
	return tags["shop"] == "car_repair" || tags["amenity"] == "car_repair"
}

func isVehicleRepairShop(tags map[string]string) bool {
	if tags["shop"] != "repair" {
		return false
	}
	return containsAny(tags["repair"], vehicleRepairMarkers)
}

func isServicingDealer(tags map[string]string) bool {
	if tags["shop"] != "car" {
		return false
	}
	values := make([]string, len(dealerServiceKeys))
	for i, k := range dealerServiceKeys {
		values[i] = tags[k]
	}
	return containsAny(strings.Join(values, " "), dealerServiceMarkers)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
