package searchcli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/okian/werkstatt/internal/adapters/cache"
	"github.com/okian/werkstatt/internal/adapters/export"
	"github.com/okian/werkstatt/internal/adapters/osm"
	service "github.com/okian/werkstatt/internal/app"
	"github.com/okian/werkstatt/internal/config"
	"github.com/okian/werkstatt/internal/domain/model"
	"github.com/okian/werkstatt/internal/domain/types"
	"github.com/okian/werkstatt/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0644
)

// Searcher is the part of the service a run needs.
type Searcher interface {
	Search(ctx context.Context, req model.SearchRequest) (model.SearchResult, error)
	NewRequest(location string) model.SearchRequest
}

// NewService wires a search service from process configuration.
func NewService(cfg *config.Config) (*service.Service, error) {
	store, err := cache.New(cfg)
	if err != nil {
		return nil, err
	}
	client := osm.New(osm.ConfigFrom(cfg), osm.WithCache(store))
	return service.New(
		service.WithGeocoder(client),
		service.WithSource(client),
		service.WithMaxRadiusKM(cfg.MaxRadiusKM),
		service.WithQueryTimeout(cfg.OverpassQueryTimeoutS),
		service.WithDefaults(service.Defaults{
			RadiusKM: cfg.DefaultRadiusKM,
			Categories: model.CategoryFlags{
				Workshops:     cfg.IncludeWorkshops,
				GenericRepair: cfg.IncludeGenericRepair,
				Dealers:       cfg.IncludeDealers,
				Tyres:         cfg.IncludeTyres,
				Parts:         cfg.IncludeParts,
			},
			Dedup: cfg.DedupEnabled,
		}),
	), nil
}

// Run performs one search, prints the result to out and writes the
// requested export files.
func Run(ctx context.Context, svc Searcher, opts *Options, sheet string, out io.Writer) (Summary, error) {
	start := time.Now()
	log := logger.Named("searchcli")

	req := svc.NewRequest(opts.Location)
	if opts.RadiusKM > 0 {
		req.RadiusKM = opts.RadiusKM
	}
	if opts.Dedup != nil {
		req.Dedup = *opts.Dedup
	}
	if opts.CategoriesSet {
		req.Categories = opts.Categories
	}

	log.Info(ctx, "searching",
		logger.String("location", req.Location),
		logger.Float64("radius_km", req.RadiusKM),
		logger.Bool("dedup", req.Dedup),
	)

	res, err := svc.Search(ctx, req)
	if err != nil {
		return Summary{}, fmt.Errorf("search failed: %w", err)
	}

	sum := Summary{
		Location:    res.Location,
		DisplayName: res.Reference.DisplayName,
		Count:       res.Count,
		Located:     len(types.PointsOf(res.Records)),
	}

	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return Summary{}, fmt.Errorf("failed to write json: %w", err)
		}
	} else if err := PrintTable(out, res); err != nil {
		return Summary{}, err
	}

	if opts.CSVFile != "" {
		if err := writeFile(opts.CSVFile, func(w io.Writer) error { return export.WriteCSV(w, res.Records) }); err != nil {
			return Summary{}, err
		}
		sum.Files = append(sum.Files, opts.CSVFile)
	}
	if opts.XLSXFile != "" {
		if err := writeFile(opts.XLSXFile, func(w io.Writer) error { return export.WriteXLSX(w, res.Records, sheet) }); err != nil {
			return Summary{}, err
		}
		sum.Files = append(sum.Files, opts.XLSXFile)
	}

	sum.Duration = time.Since(start)
	log.Info(ctx, "search completed",
		logger.Int("count", sum.Count),
		logger.Int("located", sum.Located),
		logger.Any("files", sum.Files),
		logger.Duration("duration", sum.Duration),
	)
	return sum, nil
}

// PrintTable writes the condensed table view followed by a count line.
func PrintTable(out io.Writer, res model.SearchResult) error {
	fmt.Fprintf(out, "%s (%s), radius %d m\n\n", res.Location, res.Reference.DisplayName, res.RadiusM)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tADDRESS\tPOSTCODE\tCITY\tPHONE\tWEBSITE\tCATEGORY\tKM")
	for _, r := range types.RowsOf(res.Records) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			cell(r.Name), cell(r.Address), cell(r.Postcode), cell(r.City),
			cell(r.Phone), cell(r.Website), r.Category, km(r.DistanceKM))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}
	_, err := fmt.Fprintf(out, "\n%d result(s)\n", res.Count)
	return err
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	if s == "" {
		return "-"
	}
	return s
}

func km(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

// writeFile creates path, including missing directories, and fills it.
func writeFile(path string, fill func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermission)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := fill(file); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}
