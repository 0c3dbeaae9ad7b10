package types_test

import (
	"testing"

	"github.com/okian/werkstatt/internal/domain/model"
	types "github.com/okian/werkstatt/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPointsOf(t *testing.T) {
	Convey("Given a result set with and without coordinates", t, func() {
		rs := model.ResultSet{
			{Name: "Auto Müller", Lat: model.Float(52.51), Lon: model.Float(13.40), Category: model.CategoryWorkshop},
			{Name: "Nowhere GmbH"},
			{Name: "Half", Lat: model.Float(52.0)},
			{Name: "Reifen Weber", Lat: model.Float(52.52), Lon: model.Float(13.41), Category: model.CategoryTyres},
		}

		Convey("When building map points", func() {
			points := types.PointsOf(rs)

			Convey("Then only rows with both coordinates should be plotted", func() {
				So(points, ShouldHaveLength, 2)
				So(points[0], ShouldResemble, types.Point{Lat: 52.51, Lon: 13.40, Name: "Auto Müller", Category: model.CategoryWorkshop})
				So(points[1].Name, ShouldEqual, "Reifen Weber")
			})
		})

		Convey("When the result set is empty", func() {
			points := types.PointsOf(nil)

			Convey("Then an empty, non-nil slice should be returned", func() {
				So(points, ShouldNotBeNil)
				So(points, ShouldBeEmpty)
			})
		})
	})
}

func TestRowsOf(t *testing.T) {
	Convey("Given normalized records", t, func() {
		rs := model.ResultSet{{
			Name: "Auto Müller", Street: "Hauptstr.", HouseNumber: "5", Address: "Hauptstr. 5",
			Postcode: "10585", City: "Berlin", Phone: "+49 30 1", Website: "https://example.de",
			Category: model.CategoryWorkshop, DistanceKM: model.Float(1.2),
		}}

		Convey("Then rows should carry the table columns", func() {
			rows := types.RowsOf(rs)
			So(rows, ShouldHaveLength, 1)
			So(rows[0].Address, ShouldEqual, "Hauptstr. 5")
			So(*rows[0].DistanceKM, ShouldEqual, 1.2)
			So(rows[0].Category, ShouldEqual, model.CategoryWorkshop)
		})
	})
}
