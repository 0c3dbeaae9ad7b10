package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/okian/werkstatt/internal/adapters/export"
	"github.com/okian/werkstatt/internal/domain/model"
	"github.com/okian/werkstatt/internal/domain/types"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Query parameter names of the search endpoints.
const (
	paramLocation      = "location"
	paramRadius        = "radius_km"
	paramDedup         = "dedup"
	paramView          = "view"
	paramWorkshops     = "workshops"
	paramGenericRepair = "generic_repair"
	paramDealers       = "dealers"
	paramTyres         = "tyres"
	paramParts         = "parts"
)

// SearchHandler serves the search result in its different shapes.
type SearchHandler struct {
	deps      Dependencies
	sheetName string
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(deps Dependencies, sheetName string) *SearchHandler {
	if sheetName == "" {
		sheetName = export.DefaultSheet
	}
	return &SearchHandler{deps: deps, sheetName: sheetName}
}

type tableResponse struct {
	Location  string               `json:"location"`
	Reference model.ReferencePoint `json:"reference"`
	RadiusM   int                  `json:"radius_m"`
	Count     int                  `json:"count"`
	Rows      []types.Row          `json:"rows"`
}

type pointsResponse struct {
	Reference model.ReferencePoint `json:"reference"`
	Count     int                  `json:"count"`
	Points    []types.Point        `json:"points"`
}

// HandleSearch handles GET /search. With view=table it returns the condensed
// table rows instead of full records.
func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	const op = "search"
	res, ok := h.run(w, r, op)
	if !ok {
		return
	}
	if r.URL.Query().Get(paramView) == "table" {
		writeJSON(w, http.StatusOK, tableResponse{
			Location:  res.Location,
			Reference: res.Reference,
			RadiusM:   res.RadiusM,
			Count:     res.Count,
			Rows:      types.RowsOf(res.Records),
		})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandlePoints handles GET /search/points.
func (h *SearchHandler) HandlePoints(w http.ResponseWriter, r *http.Request) {
	const op = "search.points"
	res, ok := h.run(w, r, op)
	if !ok {
		return
	}
	pts := export.Points(res.Records)
	writeJSON(w, http.StatusOK, pointsResponse{Reference: res.Reference, Count: len(pts), Points: pts})
}

// HandleCSV handles GET /search/export.csv.
func (h *SearchHandler) HandleCSV(w http.ResponseWriter, r *http.Request) {
	const op = "export.csv"
	res, ok := h.run(w, r, op)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, res.Records); err != nil {
		writeError(w, http.StatusInternalServerError, "export_failed", WrapKind(op, ErrExport, err))
		return
	}
	writeAttachment(w, "text/csv; charset=utf-8", export.Filename(res.Location, "csv"), buf.Bytes())
}

// HandleXLSX handles GET /search/export.xlsx.
func (h *SearchHandler) HandleXLSX(w http.ResponseWriter, r *http.Request) {
	const op = "export.xlsx"
	res, ok := h.run(w, r, op)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, res.Records, h.sheetName); err != nil {
		writeError(w, http.StatusInternalServerError, "export_failed", WrapKind(op, ErrExport, err))
		return
	}
	writeAttachment(w, xlsxContentType, export.Filename(res.Location, "xlsx"), buf.Bytes())
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// run parses the request, performs the search and writes any error response.
func (h *SearchHandler) run(w http.ResponseWriter, r *http.Request, op string) (model.SearchResult, bool) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", NewKind(op, ErrMethodNotAllowed))
		return model.SearchResult{}, false
	}
	req, err := h.parseRequest(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return model.SearchResult{}, false
	}
	res, err := h.deps.Search(r.Context(), req)
	if err != nil {
		status, code := statusOf(err)
		writeError(w, status, code, Wrap(op, err))
		return model.SearchResult{}, false
	}
	return res, true
}

// parseRequest starts from the service defaults. When any category parameter
// is present, only the categories given as true are searched.
func (h *SearchHandler) parseRequest(q url.Values) (model.SearchRequest, error) {
	req := h.deps.NewRequest(strings.TrimSpace(q.Get(paramLocation)))

	if v := q.Get(paramRadius); v != "" {
		km, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return req, fmt.Errorf("invalid %s %q", paramRadius, v)
		}
		req.RadiusKM = km
	}
	if v := q.Get(paramDedup); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, fmt.Errorf("invalid %s %q", paramDedup, v)
		}
		req.Dedup = b
	}

	flags := []struct {
		name string
		dst  *bool
	}{
		{paramWorkshops, new(bool)},
		{paramGenericRepair, new(bool)},
		{paramDealers, new(bool)},
		{paramTyres, new(bool)},
		{paramParts, new(bool)},
	}
	explicit := false
	for _, f := range flags {
		v := q.Get(f.name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, fmt.Errorf("invalid %s %q", f.name, v)
		}
		*f.dst = b
		explicit = true
	}
	if explicit {
		req.Categories = model.CategoryFlags{
			Workshops:     *flags[0].dst,
			GenericRepair: *flags[1].dst,
			Dealers:       *flags[2].dst,
			Tyres:         *flags[3].dst,
			Parts:         *flags[4].dst,
		}
	}
	return req, nil
}

func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrInvalidRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, model.ErrLocationNotFound):
		return http.StatusNotFound, "location_not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, model.ErrUpstream):
		return http.StatusBadGateway, "upstream_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
