package pipeline_test

import (
	"context"
	"testing"

	"github.com/okian/werkstatt/internal/domain/classify"
	"github.com/okian/werkstatt/internal/domain/model"
	"github.com/okian/werkstatt/internal/domain/pipeline"
	"github.com/okian/werkstatt/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func berlinRef() model.ReferencePoint {
	return model.ReferencePoint{Lat: model.Float(52.50), Lon: model.Float(13.39), DisplayName: "10585 Berlin"}
}

func TestAssemble(t *testing.T) {
	Convey("Given an assembler", t, func() {
		ctx := context.Background()
		a := pipeline.New(pipeline.WithLogger(logger.Get()))

		Convey("When assembling a single workshop near the reference", func() {
			rs := a.Assemble(ctx, pipeline.Input{
				Records: []model.RawRecord{{
					Tags: map[string]string{"shop": "car_repair", "name": "Auto Müller"},
					Lat:  model.Float(52.51),
					Lon:  model.Float(13.40),
				}},
				Reference: berlinRef(),
				Dedup:     true,
			})

			Convey("Then one classified, located record should be returned", func() {
				So(rs, ShouldHaveLength, 1)
				So(rs[0].Name, ShouldEqual, "Auto Müller")
				So(rs[0].Category, ShouldEqual, model.CategoryWorkshop)
				So(rs[0].DistanceKM, ShouldNotBeNil)
				So(*rs[0].DistanceKM, ShouldBeBetween, 1.1, 1.4)
				So(*rs[0].Lat, ShouldEqual, 52.51)
			})
		})

		Convey("When the input is empty", func() {
			rs := a.Assemble(ctx, pipeline.Input{Reference: berlinRef(), Dedup: true})
			rsNoRef := a.Assemble(ctx, pipeline.Input{})

			Convey("Then the result set should be empty but not nil", func() {
				So(rs, ShouldNotBeNil)
				So(rs, ShouldBeEmpty)
				So(rsNoRef, ShouldBeEmpty)
			})
		})

		Convey("When two records describe the same business with different tags", func() {
			records := []model.RawRecord{
				{
					Tags: map[string]string{"shop": "car_repair", "name": "Auto Müller", "addr:street": "Kantstraße",
						"addr:housenumber": "12", "addr:postcode": "10585", "addr:city": "Berlin"},
					Lat: model.Float(52.51), Lon: model.Float(13.40),
				},
				{
					Tags: map[string]string{"amenity": "car_repair", "name": "AUTO MÜLLER", "addr:street": "Kantstraße",
						"addr:housenumber": "12", "addr:postcode": "10585", "addr:city": "berlin", "phone": "030 1"},
					Center: &model.Center{Lat: model.Float(52.5101), Lon: model.Float(13.4001)},
				},
			}

			Convey("Then they should collapse with dedup enabled", func() {
				rs := a.Assemble(ctx, pipeline.Input{Records: records, Reference: berlinRef(), Dedup: true})
				So(rs, ShouldHaveLength, 1)
				So(rs[0].Phone, ShouldBeEmpty)
			})

			Convey("And remain two with dedup disabled", func() {
				rs := a.Assemble(ctx, pipeline.Input{Records: records, Reference: berlinRef(), Dedup: false})
				So(rs, ShouldHaveLength, 2)
			})
		})

		Convey("When records lack coordinates or the reference is missing", func() {
			records := []model.RawRecord{
				{Tags: map[string]string{"shop": "tyres", "name": "No Position"}},
				{Tags: map[string]string{"shop": "tyres", "name": "Way"}, Center: &model.Center{Lat: model.Float(52.6), Lon: model.Float(13.5)}},
			}

			Convey("Then distance should be nil for any missing endpoint", func() {
				rs := a.Assemble(ctx, pipeline.Input{Records: records, Reference: berlinRef()})
				So(rs, ShouldHaveLength, 2)
				So(rs[0].Name, ShouldEqual, "Way")
				So(rs[0].DistanceKM, ShouldNotBeNil)
				So(rs[1].Name, ShouldEqual, "No Position")
				So(rs[1].DistanceKM, ShouldBeNil)
				So(rs[1].Lat, ShouldBeNil)

				noRef := a.Assemble(ctx, pipeline.Input{Records: records})
				for _, r := range noRef {
					So(r.DistanceKM, ShouldBeNil)
				}
				So(noRef[0].Name, ShouldEqual, "No Position")
				So(*noRef[1].Lat, ShouldEqual, 52.6)
			})
		})

		Convey("When direct and center coordinates are both present", func() {
			rs := a.Assemble(ctx, pipeline.Input{
				Records: []model.RawRecord{{
					Tags:   map[string]string{"shop": "car_parts"},
					Lat:    model.Float(52.51),
					Lon:    model.Float(13.40),
					Center: &model.Center{Lat: model.Float(10), Lon: model.Float(10)},
				}},
				Reference: berlinRef(),
			})

			Convey("Then the direct coordinates should be preferred", func() {
				So(*rs[0].Lat, ShouldEqual, 52.51)
				So(*rs[0].DistanceKM, ShouldBeLessThan, 2)
				So(rs[0].Name, ShouldEqual, model.NoName)
			})
		})

		Convey("When the center carries only a latitude", func() {
			rs := a.Assemble(ctx, pipeline.Input{
				Records: []model.RawRecord{{
					Tags:   map[string]string{"shop": "car_repair"},
					Center: &model.Center{Lat: model.Float(52.51)},
				}},
				Reference: berlinRef(),
			})

			Convey("Then coordinates and distance should be null", func() {
				So(rs, ShouldHaveLength, 1)
				So(rs[0].Category, ShouldEqual, model.CategoryWorkshop)
				So(rs[0].Lat, ShouldBeNil)
				So(rs[0].Lon, ShouldBeNil)
				So(rs[0].DistanceKM, ShouldBeNil)
			})
		})

		Convey("When using a custom classifier", func() {
			custom := pipeline.New(pipeline.WithClassifier(classify.New(classify.WithFallback("Misc"))))
			rs := custom.Assemble(ctx, pipeline.Input{Records: []model.RawRecord{{Tags: map[string]string{"craft": "mechanic"}}}})
			So(rs[0].Category, ShouldEqual, "Misc")
		})
	})
}

func TestAssembleWithStats(t *testing.T) {
	Convey("Given a mix of records", t, func() {
		a := pipeline.New()
		records := []model.RawRecord{
			{Tags: map[string]string{"shop": "car_repair", "name": "A"}, Lat: model.Float(52.51), Lon: model.Float(13.40)},
			{Tags: map[string]string{"shop": "car_repair", "name": "a"}, Lat: model.Float(52.52), Lon: model.Float(13.40)},
			{Tags: map[string]string{"shop": "tyres", "name": "B"}},
		}

		rs, st := a.AssembleWithStats(context.Background(), pipeline.Input{Records: records, Reference: berlinRef(), Dedup: true})

		Convey("Then counters should reflect the run", func() {
			So(rs, ShouldHaveLength, 2)
			So(st.Raw, ShouldEqual, 3)
			So(st.Duplicates, ShouldEqual, 1)
			So(st.Located, ShouldEqual, 1)
			So(st.ByCategory[model.CategoryWorkshop], ShouldEqual, 1)
			So(st.ByCategory[model.CategoryTyres], ShouldEqual, 1)
		})
	})
}

func TestSort(t *testing.T) {
	Convey("Given unsorted records", t, func() {
		rs := model.ResultSet{
			{Name: "Zeta", City: "Berlin"},
			{Name: "Far", City: "Berlin", DistanceKM: model.Float(9.5)},
			{Name: "Beta", City: "Potsdam", DistanceKM: model.Float(1.0)},
			{Name: "Alpha", City: "Potsdam", DistanceKM: model.Float(1.0)},
			{Name: "Gamma", City: "Berlin", DistanceKM: model.Float(1.0)},
			{Name: "Alpha", City: "Aachen"},
			{Name: "Same", City: "X", DistanceKM: model.Float(3), Phone: "first"},
			{Name: "Same", City: "X", DistanceKM: model.Float(3), Phone: "second"},
		}

		Convey("When sorting", func() {
			pipeline.Sort(rs)

			Convey("Then distance, city and name should order the rows", func() {
				names := make([]string, len(rs))
				for i, r := range rs {
					names[i] = r.Name + "/" + r.City
				}
				So(names, ShouldResemble, []string{
					"Gamma/Berlin", "Alpha/Potsdam", "Beta/Potsdam", "Same/X", "Same/X", "Far/Berlin", "Alpha/Aachen", "Zeta/Berlin",
				})
			})

			Convey("And ties should keep input order", func() {
				So(rs[3].Phone, ShouldEqual, "first")
				So(rs[4].Phone, ShouldEqual, "second")
			})

			Convey("And every located row should precede every unlocated row", func() {
				seenNil := false
				for _, r := range rs {
					if r.DistanceKM == nil {
						seenNil = true
						continue
					}
					So(seenNil, ShouldBeFalse)
				}
			})
		})
	})
}
