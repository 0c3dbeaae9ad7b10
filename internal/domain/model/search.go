package model

// ReferencePoint is the geocoded search origin. A point with nil coordinates
// is the "not found" sentinel.
type ReferencePoint struct {
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
	DisplayName string   `json:"display_name"`
}

// Found reports whether geocoding produced coordinates.
func (p ReferencePoint) Found() bool {
	return p.Lat != nil && p.Lon != nil
}

// Coordinate returns the point as a coordinate, or nil for the sentinel.
func (p ReferencePoint) Coordinate() *Coordinate {
	if !p.Found() {
		return nil
	}
	return &Coordinate{Lat: *p.Lat, Lon: *p.Lon}
}

// CategoryFlags selects which business kinds the upstream query includes.
type CategoryFlags struct {
	Workshops     bool `json:"workshops"`
	GenericRepair bool `json:"generic_repair"`
	Dealers       bool `json:"dealers"`
	Tyres         bool `json:"tyres"`
	Parts         bool `json:"parts"`
}

// Any reports whether at least one category is enabled.
func (f CategoryFlags) Any() bool {
	return f.Workshops || f.GenericRepair || f.Dealers || f.Tyres || f.Parts
}

// DefaultCategories mirrors the categories searched when the caller does not
// choose any explicitly.
func DefaultCategories() CategoryFlags {
	return CategoryFlags{Workshops: true, Tyres: true, Parts: true}
}

// SearchRequest is the user-facing search input.
type SearchRequest struct {
	// Location is a German postal code (4-5 digits) or a free-text place.
	Location   string
	RadiusKM   float64
	Categories CategoryFlags
	Dedup      bool
}

// SearchResult carries the ranked rows plus the context they were built from.
type SearchResult struct {
	Location   string         `json:"location"`
	Reference  ReferencePoint `json:"reference"`
	RadiusM    int            `json:"radius_m"`
	Categories CategoryFlags  `json:"categories"`
	Dedup      bool           `json:"dedup"`
	Count      int            `json:"count"`
	Records    ResultSet      `json:"results"`
}
