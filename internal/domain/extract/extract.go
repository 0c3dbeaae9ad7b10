// Package extract pulls normalized attributes out of raw OSM tag maps.
package extract

import (
	"strings"

	"github.com/okian/werkstatt/internal/domain/model"
)

// OSM tag keys read by the extractor.
const (
	KeyName           = "name"
	KeyStreet         = "addr:street"
	KeyHouseNumber    = "addr:housenumber"
	KeyPostcode       = "addr:postcode"
	KeyCity           = "addr:city"
	KeyTown           = "addr:town"
	KeyVillage        = "addr:village"
	KeyContactPhone   = "contact:phone"
	KeyPhone          = "phone"
	KeyContactWebsite = "contact:website"
	KeyWebsite        = "website"
)

// Candidate keys in preference order.
var (
	cityKeys    = []string{KeyCity, KeyTown, KeyVillage}
	phoneKeys   = []string{KeyContactPhone, KeyPhone}
	websiteKeys = []string{KeyContactWebsite, KeyWebsite}
)

// Fields holds the normalized string attributes of one record.
type Fields struct {
	Name        string
	Street      string
	HouseNumber string
	Postcode    string
	City        string
	Address     string
	Phone       string
	Website     string
}

// Extract normalizes the tags of a single record. Missing tags yield empty
// strings, except the name which falls back to model.NoName.
func Extract(tags map[string]string) Fields {
	f := Fields{
		Name:        norm(tags[KeyName]),
		Street:      norm(tags[KeyStreet]),
		HouseNumber: norm(tags[KeyHouseNumber]),
		Postcode:    norm(tags[KeyPostcode]),
		City:        norm(Pick(tags, cityKeys...)),
		Phone:       norm(Pick(tags, phoneKeys...)),
		Website:     norm(Pick(tags, websiteKeys...)),
	}
	if f.Name == "" {
		f.Name = model.NoName
	}
	f.Address = JoinAddress(f.Street, f.HouseNumber)
	return f
}

// Pick returns the first non-empty value among keys, or "".
func Pick(tags map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := tags[k]; v != "" {
			return v
		}
	}
	return ""
}

// JoinAddress joins the non-empty parts with a single space.
func JoinAddress(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = norm(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

func norm(s string) string { return strings.TrimSpace(s) }
