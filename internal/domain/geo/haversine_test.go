package geo_test

import (
	"testing"

	"github.com/okian/werkstatt/internal/domain/geo"
	"github.com/okian/werkstatt/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestHaversineKM(t *testing.T) {
	Convey("Given pairs of coordinates", t, func() {
		berlin := &model.Coordinate{Lat: 52.52, Lon: 13.405}
		munich := &model.Coordinate{Lat: 48.1374, Lon: 11.5755}
		hamburg := &model.Coordinate{Lat: 53.5511, Lon: 9.9937}

		Convey("When measuring Berlin to Munich", func() {
			d := geo.HaversineKM(berlin, munich)

			Convey("Then the distance should be about 504 km", func() {
				So(d, ShouldNotBeNil)
				So(*d, ShouldAlmostEqual, 504, 5)
			})
		})

		Convey("When swapping the endpoints", func() {
			pairs := [][2]*model.Coordinate{{berlin, munich}, {munich, hamburg}, {hamburg, berlin}}

			Convey("Then the distance should be symmetric", func() {
				for _, p := range pairs {
					So(*geo.HaversineKM(p[0], p[1]), ShouldEqual, *geo.HaversineKM(p[1], p[0]))
				}
			})
		})

		Convey("When measuring a point against itself", func() {
			Convey("Then the distance should be zero", func() {
				So(*geo.HaversineKM(berlin, berlin), ShouldEqual, 0)
				So(*geo.HaversineKM(munich, munich), ShouldEqual, 0)
			})
		})

		Convey("When either endpoint is missing", func() {
			Convey("Then the distance should be nil", func() {
				So(geo.HaversineKM(nil, berlin), ShouldBeNil)
				So(geo.HaversineKM(berlin, nil), ShouldBeNil)
				So(geo.HaversineKM(nil, nil), ShouldBeNil)
			})
		})

		Convey("When the result is rounded", func() {
			ref := &model.Coordinate{Lat: 52.50, Lon: 13.39}
			shop := &model.Coordinate{Lat: 52.51, Lon: 13.40}
			d := geo.HaversineKM(ref, shop)

			Convey("Then it should have at most two decimals", func() {
				So(*d, ShouldBeBetween, 1.1, 1.4)
				So(geo.Round2(*d), ShouldEqual, *d)
			})
		})
	})
}

func TestRound2(t *testing.T) {
	Convey("Given values to round", t, func() {
		So(geo.Round2(1.234), ShouldEqual, 1.23)
		So(geo.Round2(1.236), ShouldEqual, 1.24)
		So(geo.Round2(0), ShouldEqual, 0)
	})
}
