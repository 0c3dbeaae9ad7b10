package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/okian/werkstatt/internal/config"
	"github.com/okian/werkstatt/internal/domain/model"
	"github.com/okian/werkstatt/internal/searchcli"
)

// Default configuration constants.
const (
	defaultTimeout = 3 * time.Minute
)

func main() {
	var (
		location      = flag.String("location", "", "German postal code or place name")
		radius        = flag.Float64("radius", 0, "Search radius in km (0 uses the configured default)")
		dedup         = flag.Bool("dedup", true, "Drop duplicate businesses")
		workshops     = flag.Bool("workshops", false, "Search workshops")
		genericRepair = flag.Bool("generic-repair", false, "Search generic repair shops")
		dealers       = flag.Bool("dealers", false, "Search dealerships with service")
		tyres         = flag.Bool("tyres", false, "Search tyre services")
		parts         = flag.Bool("parts", false, "Search parts shops")
		csvFile       = flag.String("csv", "", "Write results as CSV to this file")
		xlsxFile      = flag.String("xlsx", "", "Write results as XLSX to this file")
		jsonOut       = flag.Bool("json", false, "Print JSON instead of a table")
		timeout       = flag.Duration("timeout", defaultTimeout, "Overall deadline")
		logFile       = flag.String("log", "", "Also write logs to this file")
		verbose       = flag.Bool("verbose", false, "Enable debug logging")
		help          = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help || *location == "" {
		searchcli.ShowHelp(os.Stdout)
		if !*help {
			os.Exit(2)
		}
		return
	}

	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, "failed to load .env:", err)
		os.Exit(1)
	}

	closeLog, err := searchcli.SetupLogging(*logFile, *verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to setup logging:", err)
		os.Exit(1)
	}
	defer closeLog()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	svc, err := searchcli.NewService(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build service:", err)
		os.Exit(1)
	}

	opts := &searchcli.Options{
		Location: *location,
		RadiusKM: *radius,
		CSVFile:  *csvFile,
		XLSXFile: *xlsxFile,
		JSON:     *jsonOut,
	}

	// Only flags given on the command line override the configuration.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "dedup":
			opts.Dedup = dedup
		case "workshops", "generic-repair", "dealers", "tyres", "parts":
			opts.CategoriesSet = true
		}
	})
	if opts.CategoriesSet {
		opts.Categories = model.CategoryFlags{
			Workshops:     *workshops,
			GenericRepair: *genericRepair,
			Dealers:       *dealers,
			Tyres:         *tyres,
			Parts:         *parts,
		}
	}

	if _, err := searchcli.Run(ctx, svc, opts, cfg.ExportSheetName, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		cancel()
		closeLog()
		os.Exit(1)
	}
}
