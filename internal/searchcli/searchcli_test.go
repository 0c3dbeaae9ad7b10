package searchcli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/werkstatt/internal/config"
	"github.com/okian/werkstatt/internal/domain/model"
	"github.com/okian/werkstatt/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/xuri/excelize/v2"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

type fakeSearcher struct {
	res model.SearchResult
	err error
	got model.SearchRequest
}

func (f *fakeSearcher) Search(_ context.Context, req model.SearchRequest) (model.SearchResult, error) {
	f.got = req
	return f.res, f.err
}

func (f *fakeSearcher) NewRequest(location string) model.SearchRequest {
	return model.SearchRequest{Location: location, RadiusKM: 25, Categories: model.DefaultCategories(), Dedup: true}
}

func result() model.SearchResult {
	return model.SearchResult{
		Location:  "10115",
		Reference: model.ReferencePoint{Lat: model.Float(52.52), Lon: model.Float(13.405), DisplayName: "Berlin"},
		RadiusM:   25000,
		Count:     2,
		Records: model.ResultSet{
			{Name: "Reifen Nah", Address: "Torstraße 1, 10115 Berlin", Postcode: "10115", City: "Berlin",
				Lat: model.Float(52.53), Lon: model.Float(13.4), Category: model.CategoryTyres, DistanceKM: model.Float(1.234)},
			{Name: "Teile Irgendwo", Category: model.CategoryParts},
		},
	}
}

func TestRun(t *testing.T) {
	Convey("Given a searcher", t, func() {
		ctx := context.Background()
		s := &fakeSearcher{res: result()}
		var out bytes.Buffer

		Convey("When running with defaults", func() {
			sum, err := Run(ctx, s, &Options{Location: "10115"}, "Results", &out)

			Convey("Then a table is printed", func() {
				So(err, ShouldBeNil)
				So(sum.Count, ShouldEqual, 2)
				So(sum.Located, ShouldEqual, 1)
				So(sum.DisplayName, ShouldEqual, "Berlin")
				text := out.String()
				So(text, ShouldContainSubstring, "NAME")
				So(text, ShouldContainSubstring, "Reifen Nah")
				So(text, ShouldContainSubstring, "1.23")
				So(text, ShouldContainSubstring, "2 result(s)")
			})

			Convey("Then service defaults are used", func() {
				So(s.got.RadiusKM, ShouldEqual, 25)
				So(s.got.Dedup, ShouldBeTrue)
			})
		})

		Convey("When options override the defaults", func() {
			dedup := false
			_, err := Run(ctx, s, &Options{
				Location:      "Köln",
				RadiusKM:      5,
				Dedup:         &dedup,
				Categories:    model.CategoryFlags{Dealers: true},
				CategoriesSet: true,
			}, "Results", &out)
			So(err, ShouldBeNil)
			So(s.got.Location, ShouldEqual, "Köln")
			So(s.got.RadiusKM, ShouldEqual, 5)
			So(s.got.Dedup, ShouldBeFalse)
			So(s.got.Categories, ShouldResemble, model.CategoryFlags{Dealers: true})
		})

		Convey("When JSON output is requested", func() {
			_, err := Run(ctx, s, &Options{Location: "10115", JSON: true}, "Results", &out)
			So(err, ShouldBeNil)
			var res model.SearchResult
			So(json.Unmarshal(out.Bytes(), &res), ShouldBeNil)
			So(res.Count, ShouldEqual, 2)
		})

		Convey("When export files are requested", func() {
			dir := t.TempDir()
			csvPath := filepath.Join(dir, "out", "werkstatt.csv")
			xlsxPath := filepath.Join(dir, "out", "werkstatt.xlsx")

			sum, err := Run(ctx, s, &Options{Location: "10115", CSVFile: csvPath, XLSXFile: xlsxPath}, "Werkstätten", &out)

			Convey("Then both files are written", func() {
				So(err, ShouldBeNil)
				So(sum.Files, ShouldResemble, []string{csvPath, xlsxPath})

				b, err := os.ReadFile(csvPath)
				So(err, ShouldBeNil)
				So(strings.Count(string(b), "\n"), ShouldEqual, 3)

				f, err := excelize.OpenFile(xlsxPath)
				So(err, ShouldBeNil)
				defer func() { _ = f.Close() }()
				So(f.GetSheetList(), ShouldResemble, []string{"Werkstätten"})
			})
		})

		Convey("When the search fails", func() {
			s.err = model.ErrLocationNotFound
			_, err := Run(ctx, s, &Options{Location: "99999"}, "Results", &out)
			So(errors.Is(err, model.ErrLocationNotFound), ShouldBeTrue)
			So(out.Len(), ShouldEqual, 0)
		})
	})
}

func TestNewService(t *testing.T) {
	Convey("Given process configuration", t, func() {
		cfg := config.New()

		Convey("A service is wired with the configured defaults", func() {
			cfg.DefaultRadiusKM = 10
			cfg.IncludeDealers = true
			svc, err := NewService(cfg)
			So(err, ShouldBeNil)
			req := svc.NewRequest("10115")
			So(req.RadiusKM, ShouldEqual, 10)
			So(req.Categories.Dealers, ShouldBeTrue)
		})

		Convey("An unknown cache backend is rejected", func() {
			cfg.CacheBackend = "memcached"
			_, err := NewService(cfg)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestShowHelp(t *testing.T) {
	Convey("Help lists the main flags", t, func() {
		var buf bytes.Buffer
		ShowHelp(&buf)
		So(buf.String(), ShouldContainSubstring, "-location")
		So(buf.String(), ShouldContainSubstring, "-xlsx")
	})
}

func TestSetupLogging(t *testing.T) {
	Convey("Logging can be teed to a file", t, func() {
		path := filepath.Join(t.TempDir(), "search.log")
		closeFn, err := SetupLogging(path, true)
		So(err, ShouldBeNil)
		logger.Get().Info(context.Background(), "hello from test")
		closeFn()

		b, err := os.ReadFile(path)
		So(err, ShouldBeNil)
		So(string(b), ShouldContainSubstring, "hello from test")

		So(logger.Init(logger.WithWriter(io.Discard)), ShouldBeNil)
	})
}
