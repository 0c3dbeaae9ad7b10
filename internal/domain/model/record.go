// Package model contains domain models passed between layers.
package model

// NoName is used when a record carries no usable name tag.
const NoName = "(no name)"

// Category labels produced by the classifier.
const (
	CategoryWorkshop      = "Workshop"
	CategoryGenericRepair = "Repairs (generic shop)"
	CategoryDealer        = "Dealership with service"
	CategoryTyres         = "Tyre service"
	CategoryParts         = "Parts shop"
	CategoryOther         = "Other"
)

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Center is the nested position of ways and relations. Either axis may be
// absent in the upstream answer.
type Center struct {
	Lat *float64 `json:"lat,omitempty"`
	Lon *float64 `json:"lon,omitempty"`
}

// RawRecord is one geographic entity as returned by the upstream query.
// Ways and relations carry their position under Center instead of Lat/Lon.
type RawRecord struct {
	Tags   map[string]string `json:"tags,omitempty"`
	Lat    *float64          `json:"lat,omitempty"`
	Lon    *float64          `json:"lon,omitempty"`
	Center *Center           `json:"center,omitempty"`
}

// Position resolves each axis on its own, the direct value first and the
// center value second. Returns nil unless both axes resolve.
func (r RawRecord) Position() *Coordinate {
	lat, lon := r.Lat, r.Lon
	if r.Center != nil {
		if lat == nil {
			lat = r.Center.Lat
		}
		if lon == nil {
			lon = r.Center.Lon
		}
	}
	if lat == nil || lon == nil {
		return nil
	}
	return &Coordinate{Lat: *lat, Lon: *lon}
}

// NormalizedRecord is a cleaned, classified business row.
type NormalizedRecord struct {
	Name        string   `json:"name"`
	Street      string   `json:"street"`
	HouseNumber string   `json:"house_number"`
	Postcode    string   `json:"postcode"`
	City        string   `json:"city"`
	Address     string   `json:"address"`
	Phone       string   `json:"phone"`
	Website     string   `json:"website"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
	Category    string   `json:"category"`
	DistanceKM  *float64 `json:"distance_km"`
}

// Position returns the record coordinates or nil when either is missing.
func (r NormalizedRecord) Position() *Coordinate {
	if r.Lat == nil || r.Lon == nil {
		return nil
	}
	return &Coordinate{Lat: *r.Lat, Lon: *r.Lon}
}

// ResultSet is an ordered collection of normalized records.
type ResultSet []NormalizedRecord

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
