// Package export serializes result sets as CSV and XLSX downloads.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/okian/werkstatt/internal/domain/model"
	"github.com/okian/werkstatt/internal/domain/types"
	"github.com/xuri/excelize/v2"
)

// Columns is the header row shared by both formats.
var Columns = []string{
	"Name", "Street", "House-Number", "Postal-Code", "City", "Combined-Address",
	"Phone", "Website", "Latitude", "Longitude", "Category", "Distance-km",
}

// DefaultSheet names the worksheet when the caller passes none.
const DefaultSheet = "Results"

// ErrInvalidSheet is returned for names excelize refuses.
var ErrInvalidSheet = errors.New("invalid sheet name")

// WriteCSV writes a header and one line per record. Missing coordinates and
// distances are empty cells.
func WriteCSV(w io.Writer, rs model.ResultSet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range rs {
		if err := cw.Write(csvRow(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(r model.NormalizedRecord) []string {
	return []string{
		r.Name, r.Street, r.HouseNumber, r.Postcode, r.City, r.Address,
		r.Phone, r.Website,
		formatFloat(r.Lat), formatFloat(r.Lon),
		r.Category,
		formatFloat(r.DistanceKM),
	}
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// WriteXLSX writes the result set as a workbook with a single named sheet.
func WriteXLSX(w io.Writer, rs model.ResultSet, sheet string) error {
	if sheet == "" {
		sheet = DefaultSheet
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidSheet, sheet, err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i, r := range rs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, xlsxRow(r)); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}

	if sheet != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return err
		}
	}
	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)

	_, err = f.WriteTo(w)
	return err
}

// xlsxRow keeps numbers numeric so spreadsheets can sort on them.
func xlsxRow(r model.NormalizedRecord) []interface{} {
	return []interface{}{
		r.Name, r.Street, r.HouseNumber, r.Postcode, r.City, r.Address,
		r.Phone, r.Website,
		cellFloat(r.Lat), cellFloat(r.Lon),
		r.Category,
		cellFloat(r.DistanceKM),
	}
}

func cellFloat(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

// Points returns the map markers of rows with both coordinates.
func Points(rs model.ResultSet) []types.Point {
	return types.PointsOf(rs)
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Filename derives a download name like "werkstatt_10115.csv".
func Filename(location, ext string) string {
	loc := unsafeName.ReplaceAllString(strings.TrimSpace(location), "_")
	loc = strings.Trim(loc, "_")
	if loc == "" {
		loc = "results"
	}
	return fmt.Sprintf("werkstatt_%s.%s", loc, strings.TrimPrefix(ext, "."))
}
