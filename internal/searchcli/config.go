package searchcli

import (
	"time"

	"github.com/okian/werkstatt/internal/domain/model"
)

// Options holds the command line settings of one search run.
type Options struct {
	Location string  // Postal code or place name
	RadiusKM float64 // Search radius; 0 uses the configured default
	Dedup    *bool   // nil uses the configured default

	// Categories replaces the configured defaults when CategoriesSet is true.
	Categories    model.CategoryFlags
	CategoriesSet bool

	CSVFile  string // Optional CSV output path
	XLSXFile string // Optional XLSX output path
	JSON     bool   // Print JSON instead of a table
}

// Summary reports what a run produced.
type Summary struct {
	Location    string
	DisplayName string
	Count       int
	Located     int
	Files       []string
	Duration    time.Duration
}
