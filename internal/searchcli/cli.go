package searchcli

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/werkstatt/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging initializes the logger on stderr, teeing to logFile when set,
// so stdout stays clean for the result table.
func SetupLogging(logFile string, verbose bool) (func(), error) {
	var w io.Writer = os.Stderr
	closeFn := func() {}

	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stderr, file)
		closeFn = func() { _ = file.Close() }
	}

	if err := logger.Init(logger.WithWriter(w)); err != nil {
		closeFn()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	level := "warn"
	if verbose {
		level = "debug"
	}
	if err := logger.SetLevelString(level); err != nil {
		closeFn()
		return nil, err
	}
	return closeFn, nil
}

// ShowHelp prints usage information for the search tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `werkstatt search
================

Finds vehicle repair businesses in Germany around a postal code or place
and prints them ranked by distance.

Usage:
  werkstatt-search [options] -location <plz|place>

Options:
  -location string
        German postal code (4-5 digits) or place name (required)
  -radius float
        Search radius in km (default from config, 25)
  -dedup
        Drop duplicate businesses (default from config, true)
  -workshops, -generic-repair, -dealers, -tyres, -parts
        Select categories; when any is given only those are searched
  -csv string
        Write the results as CSV to this file
  -xlsx string
        Write the results as an Excel workbook to this file
  -json
        Print JSON instead of a table
  -timeout duration
        Overall deadline (default 3m)
  -log string
        Also write logs to this file
  -verbose
        Enable debug logging
  -help
        Show this help message

Configuration is read from .env, WERKSTATT_CONFIG and WERKSTATT_* variables.

Examples:
  werkstatt-search -location 10115
  werkstatt-search -location "Köln" -radius 10 -dealers -tyres -xlsx koeln.xlsx
`)
}
