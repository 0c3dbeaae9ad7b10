// Package types contains common read shapes used across the application
package types

import "github.com/okian/werkstatt/internal/domain/model"

// Point is a single marker for map plotting.
type Point struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
}

// PointsOf returns map markers for every record with both coordinates, in
// result order.
func PointsOf(rs model.ResultSet) []Point {
	points := make([]Point, 0, len(rs))
	for _, r := range rs {
		pos := r.Position()
		if pos == nil {
			continue
		}
		points = append(points, Point{Lat: pos.Lat, Lon: pos.Lon, Name: r.Name, Category: r.Category})
	}
	return points
}

// Row is the condensed table view of a record.
type Row struct {
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	Postcode   string   `json:"postcode"`
	City       string   `json:"city"`
	Phone      string   `json:"phone"`
	Website    string   `json:"website"`
	Category   string   `json:"category"`
	DistanceKM *float64 `json:"distance_km"`
}

// RowsOf converts records into table rows.
func RowsOf(rs model.ResultSet) []Row {
	rows := make([]Row, len(rs))
	for i, r := range rs {
		rows[i] = Row{
			Name:       r.Name,
			Address:    r.Address,
			Postcode:   r.Postcode,
			City:       r.City,
			Phone:      r.Phone,
			Website:    r.Website,
			Category:   r.Category,
			DistanceKM: r.DistanceKM,
		}
	}
	return rows
}
