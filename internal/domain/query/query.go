// Package query builds Overpass QL queries for the enabled business categories.
package query

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/okian/werkstatt/internal/domain/model"
)

// DefaultTimeoutSeconds is the server-side Overpass timeout.
const DefaultTimeoutSeconds = 60

// Sentinel errors for query building.
var (
	ErrNoCategories  = errors.New("no business category selected")
	ErrInvalidRadius = errors.New("radius must be positive")
)

// filter is one Overpass tag selector such as ["shop"="tyres"].
type filter struct {
	key   string
	value string
}

// Element types queried for every filter. Ways are returned with their center.
var elementTypes = []string{"node", "way"}

// Filters per category, in query order.
var (
	workshopFilters = []filter{{"shop", "car_repair"}, {"amenity", "car_repair"}, {"craft", "mechanic"}}
	genericFilters  = []filter{{"shop", "repair"}}
	dealerFilters   = []filter{{"shop", "car"}}
	tyreFilters     = []filter{{"shop", "tyres"}}
	partsFilters    = []filter{{"shop", "car_parts"}}
)

func filtersFor(flags model.CategoryFlags) []filter {
	var out []filter
	if flags.Workshops {
		out = append(out, workshopFilters...)
	}
	if flags.GenericRepair {
		out = append(out, genericFilters...)
	}
	if flags.Dealers {
		out = append(out, dealerFilters...)
	}
	if flags.Tyres {
		out = append(out, tyreFilters...)
	}
	if flags.Parts {
		out = append(out, partsFilters...)
	}
	return out
}

// Build returns an Overpass QL query searching radiusM meters around ref for
// every enabled category. timeoutS <= 0 uses DefaultTimeoutSeconds.
func Build(ref model.Coordinate, radiusM int, flags model.CategoryFlags, timeoutS int) (string, error) {
	if radiusM <= 0 {
		return "", ErrInvalidRadius
	}
	filters := filtersFor(flags)
	if len(filters) == 0 {
		return "", ErrNoCategories
	}
	if timeoutS <= 0 {
		timeoutS = DefaultTimeoutSeconds
	}

	around := fmt.Sprintf("(around:%d,%s,%s)", radiusM, formatCoord(ref.Lat), formatCoord(ref.Lon))

	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n(\n", timeoutS)
	for _, f := range filters {
		for _, t := range elementTypes {
			fmt.Fprintf(&b, "  %s[%q=%q]%s;\n", t, f.key, f.value, around)
		}
	}
	b.WriteString(");\nout tags center;\n")
	return b.String(), nil
}

// RadiusMeters converts a kilometer radius to the nearest whole meter.
func RadiusMeters(km float64) int {
	return int(math.Round(km * 1000))
}

func formatCoord(v float64) string {
	return fmt.Sprintf("%.6f", v)
}
