package service_test

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	service "github.com/okian/werkstatt/internal/app"
	"github.com/okian/werkstatt/internal/domain/model"
	"github.com/okian/werkstatt/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init(logger.WithWriter(io.Discard))
	if err != nil {
		panic(err)
	}
}

type fakeGeocoder struct {
	ref     model.ReferencePoint
	err     error
	queries []string
}

func (f *fakeGeocoder) Geocode(_ context.Context, q string) (model.ReferencePoint, error) {
	f.queries = append(f.queries, q)
	return f.ref, f.err
}

type fakeSource struct {
	records []model.RawRecord
	err     error
	queries []string
}

func (f *fakeSource) Elements(_ context.Context, q string) ([]model.RawRecord, error) {
	f.queries = append(f.queries, q)
	return f.records, f.err
}

func berlin() model.ReferencePoint {
	return model.ReferencePoint{Lat: model.Float(52.52), Lon: model.Float(13.405), DisplayName: "Berlin"}
}

func raw(name string, lat, lon float64, tags map[string]string) model.RawRecord {
	t := map[string]string{"name": name}
	for k, v := range tags {
		t[k] = v
	}
	return model.RawRecord{Tags: t, Lat: model.Float(lat), Lon: model.Float(lon)}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			d := svc.Defaults()
			So(d.RadiusKM, ShouldEqual, 25)
			So(d.Dedup, ShouldBeTrue)
			So(d.Categories, ShouldResemble, model.DefaultCategories())
			So(svc.MaxRadiusKM(), ShouldEqual, 50)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithDefaults(service.Defaults{RadiusKM: 80, Categories: model.CategoryFlags{Dealers: true}}),
			service.WithMaxRadiusKM(60),
		)

		Convey("Then the default radius is capped by the maximum", func() {
			So(svc.Defaults().RadiusKM, ShouldEqual, 60)
			So(svc.Defaults().Dedup, ShouldBeFalse)
		})

		Convey("Then NewRequest is prefilled", func() {
			req := svc.NewRequest("10115")
			So(req.Location, ShouldEqual, "10115")
			So(req.RadiusKM, ShouldEqual, 60)
			So(req.Categories, ShouldResemble, model.CategoryFlags{Dealers: true})
		})
	})
}

func TestGeocodeQuery(t *testing.T) {
	Convey("Given user locations", t, func() {
		Convey("Postal codes are qualified with the country", func() {
			q, err := service.GeocodeQuery(" 10115 ")
			So(err, ShouldBeNil)
			So(q, ShouldEqual, "10115 Germany")

			q, err = service.GeocodeQuery("8000")
			So(err, ShouldBeNil)
			So(q, ShouldEqual, "8000 Germany")
		})

		Convey("Postal codes of the wrong length are rejected", func() {
			for _, in := range []string{"123", "123456"} {
				_, err := service.GeocodeQuery(in)
				So(errors.Is(err, model.ErrInvalidRequest), ShouldBeTrue)
			}
		})

		Convey("Place names pass through", func() {
			q, err := service.GeocodeQuery("Köln")
			So(err, ShouldBeNil)
			So(q, ShouldEqual, "Köln")
		})

		Convey("Empty input is rejected", func() {
			_, err := service.GeocodeQuery("   ")
			So(errors.Is(err, model.ErrInvalidRequest), ShouldBeTrue)
		})
	})
}

func TestService_Search(t *testing.T) {
	Convey("Given a service with fake collaborators", t, func() {
		ctx := context.Background()
		geo := &fakeGeocoder{ref: berlin()}
		src := &fakeSource{records: []model.RawRecord{
			raw("Far Garage", 52.60, 13.50, map[string]string{"shop": "car_repair"}),
			raw("Near Tyres", 52.521, 13.406, map[string]string{"shop": "tyres"}),
			raw("near tyres", 52.521, 13.406, map[string]string{"shop": "tyres"}),
			{Tags: map[string]string{"name": "Nowhere Parts", "shop": "car_parts"}},
		}}
		svc := service.New(service.WithGeocoder(geo), service.WithSource(src))

		Convey("When searching by postal code", func() {
			res, err := svc.Search(ctx, svc.NewRequest("10115"))

			Convey("Then the results are ranked and deduplicated", func() {
				So(err, ShouldBeNil)
				So(geo.queries, ShouldResemble, []string{"10115 Germany"})
				So(res.Count, ShouldEqual, 3)
				So(res.RadiusM, ShouldEqual, 25000)
				So(res.Reference.DisplayName, ShouldEqual, "Berlin")
				So(res.Records[0].Name, ShouldEqual, "Near Tyres")
				So(res.Records[0].Category, ShouldEqual, model.CategoryTyres)
				So(res.Records[1].Name, ShouldEqual, "Far Garage")
				So(res.Records[2].Name, ShouldEqual, "Nowhere Parts")
				So(res.Records[2].DistanceKM, ShouldBeNil)
			})

			Convey("Then the query covers the selected categories", func() {
				So(src.queries, ShouldHaveLength, 1)
				So(src.queries[0], ShouldContainSubstring, "around:25000,52.520000,13.405000")
				So(src.queries[0], ShouldContainSubstring, `["shop"="tyres"]`)
				So(src.queries[0], ShouldNotContainSubstring, `["shop"="car"]`)
			})

			Convey("Then stats reflect the search", func() {
				stats := svc.GetStats()
				So(stats["searches"], ShouldEqual, int64(1))
				So(stats["lastResultCount"], ShouldEqual, int64(3))
				So(stats["lastSearchAt"], ShouldNotBeEmpty)
			})
		})

		Convey("When deduplication is disabled", func() {
			req := svc.NewRequest("Berlin")
			req.Dedup = false
			res, err := svc.Search(ctx, req)
			So(err, ShouldBeNil)
			So(res.Count, ShouldEqual, 4)
			So(geo.queries, ShouldResemble, []string{"Berlin"})
		})

		Convey("When the location is unknown", func() {
			geo.ref = model.ReferencePoint{}
			res, err := svc.Search(ctx, svc.NewRequest("99999"))

			Convey("Then Overpass is not queried", func() {
				So(errors.Is(err, model.ErrLocationNotFound), ShouldBeTrue)
				So(src.queries, ShouldBeEmpty)
				So(res.Records, ShouldBeEmpty)
				So(svc.GetStats()["notFound"], ShouldEqual, int64(1))
			})
		})

		Convey("When the request is invalid", func() {
			req := svc.NewRequest("10115")

			Convey("Radius out of range", func() {
				req.RadiusKM = 51
				_, err := svc.Search(ctx, req)
				So(errors.Is(err, model.ErrInvalidRequest), ShouldBeTrue)
				req.RadiusKM = 0
				_, err = svc.Search(ctx, req)
				So(errors.Is(err, model.ErrInvalidRequest), ShouldBeTrue)
			})

			Convey("Radius is not a number", func() {
				req.RadiusKM = math.NaN()
				_, err := svc.Search(ctx, req)
				So(errors.Is(err, model.ErrInvalidRequest), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "radius_km must be within")
				So(geo.queries, ShouldBeEmpty)
				So(src.queries, ShouldBeEmpty)
			})

			Convey("No category", func() {
				req.Categories = model.CategoryFlags{}
				_, err := svc.Search(ctx, req)
				So(errors.Is(err, model.ErrInvalidRequest), ShouldBeTrue)
			})

			Convey("Nothing is fetched", func() {
				req.Location = "12"
				_, err := svc.Search(ctx, req)
				So(errors.Is(err, model.ErrInvalidRequest), ShouldBeTrue)
				So(geo.queries, ShouldBeEmpty)
				So(src.queries, ShouldBeEmpty)
			})
		})

		Convey("When the upstream fails", func() {
			src.err = model.ErrUpstream
			_, err := svc.Search(ctx, svc.NewRequest("10115"))
			So(errors.Is(err, model.ErrUpstream), ShouldBeTrue)
			So(strings.Contains(err.Error(), "fetch businesses"), ShouldBeTrue)
			So(svc.GetStats()["failures"], ShouldEqual, int64(1))
		})

		Convey("When Overpass returns nothing", func() {
			src.records = nil
			res, err := svc.Search(ctx, svc.NewRequest("10115"))
			So(err, ShouldBeNil)
			So(res.Count, ShouldEqual, 0)
			So(res.Records, ShouldNotBeNil)
		})
	})
}
