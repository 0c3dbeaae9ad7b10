package dedupe_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	dedupe "github.com/okian/werkstatt/internal/domain/dedupe"
	"github.com/okian/werkstatt/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()

		Convey("When creating a deduper with default options", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then it should be empty", func() {
				So(d, ShouldNotBeNil)
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When creating a deduper with a capacity hint", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithCapacity(100), dedupe.WithCapacity(-1))

			Convey("Then it should still start empty", func() {
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When recording keys", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the key is new", func() {
				seen := d.SeenAndRecord(ctx, "key-1")

				Convey("Then it should return false and record the key", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the key was already seen", func() {
				d.SeenAndRecord(ctx, "key-1")
				seen := d.SeenAndRecord(ctx, "key-1")

				Convey("Then it should return true", func() {
					So(seen, ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And many keys are recorded", func() {
				for i := 0; i < 1000; i++ {
					So(d.SeenAndRecord(ctx, fmt.Sprintf("key-%d", i)), ShouldBeFalse)
				}

				Convey("Then all keys should be kept without eviction", func() {
					So(d.Size(), ShouldEqual, 1000)
					So(d.SeenAndRecord(ctx, "key-0"), ShouldBeTrue)
				})
			})
		})

		Convey("When unrecording keys", func() {
			d := dedupe.NewInMemoryDeduper()
			d.SeenAndRecord(ctx, "key-1")
			d.Unrecord(ctx, "key-1")
			d.Unrecord(ctx, "missing")

			Convey("Then the key should be accepted again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "key-1"), ShouldBeFalse)
			})
		})

		Convey("When recording edge-case keys", func() {
			d := dedupe.NewInMemoryDeduper()
			long := strings.Repeat("x", 10_000)

			So(d.SeenAndRecord(ctx, ""), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, ""), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, long), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, long), ShouldBeTrue)
		})
	})
}

func TestKeyOf(t *testing.T) {
	Convey("Given records differing only in letter case", t, func() {
		a := model.NormalizedRecord{Name: "Auto Müller", Street: "Kantstraße", HouseNumber: "12A", Postcode: "10585", City: "Berlin"}
		b := model.NormalizedRecord{Name: "AUTO MÜLLER", Street: "kantstraße", HouseNumber: "12a", Postcode: "10585", City: "BERLIN"}

		Convey("Then their keys should be equal", func() {
			So(dedupe.KeyOf(a), ShouldResemble, dedupe.KeyOf(b))
			So(dedupe.KeyOf(a).String(), ShouldEqual, dedupe.KeyOf(b).String())
		})
	})

	Convey("Given records whose fields shift between columns", t, func() {
		a := model.NormalizedRecord{Name: "A", Street: "B"}
		b := model.NormalizedRecord{Name: "A B"}

		Convey("Then their keys should differ", func() {
			So(dedupe.KeyOf(a).String(), ShouldNotEqual, dedupe.KeyOf(b).String())
		})
	})
}

func TestFilter(t *testing.T) {
	Convey("Given records with duplicates", t, func() {
		ctx := context.Background()
		records := []model.NormalizedRecord{
			{Name: "Auto Müller", Street: "Kantstraße", HouseNumber: "12", Postcode: "10585", City: "Berlin", Phone: "first"},
			{Name: "Reifen Weber", City: "Berlin"},
			{Name: "auto müller", Street: "KANTSTRASSE", HouseNumber: "12", Postcode: "10585", City: "Berlin"},
			{Name: "AUTO MÜLLER", Street: "Kantstraße", HouseNumber: "12", Postcode: "10585", City: "berlin", Phone: "second"},
		}

		Convey("When dedup is enabled", func() {
			kept, dropped := dedupe.Filter(ctx, records, true)

			Convey("Then later duplicates should be dropped and the first kept", func() {
				So(kept, ShouldHaveLength, 3)
				So(dropped, ShouldEqual, 1)
				So(kept[0].Phone, ShouldEqual, "first")
				So(kept[1].Name, ShouldEqual, "Reifen Weber")
				So(kept[2].Street, ShouldEqual, "KANTSTRASSE")
			})

			Convey("And filtering again should be idempotent", func() {
				again, droppedAgain := dedupe.Filter(ctx, kept, true)
				So(again, ShouldResemble, kept)
				So(droppedAgain, ShouldEqual, 0)
			})
		})

		Convey("When dedup is disabled", func() {
			kept, dropped := dedupe.Filter(ctx, records, false)

			Convey("Then all records should pass through", func() {
				So(kept, ShouldResemble, records)
				So(dropped, ShouldEqual, 0)
			})
		})

		Convey("When the input is empty", func() {
			kept, dropped := dedupe.Filter(ctx, nil, true)
			So(kept, ShouldBeEmpty)
			So(dropped, ShouldEqual, 0)
		})
	})
}
