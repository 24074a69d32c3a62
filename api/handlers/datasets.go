package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/helioview/helioview/api/metrics"
	"github.com/helioview/helioview/pkg/dataset"
	"github.com/helioview/helioview/pkg/datastore"
	"github.com/helioview/helioview/pkg/report"
)

// DatasetInfo describes one cached dataset to the client.
type DatasetInfo struct {
	Ref          string    `json:"ref"`
	Name         string    `json:"name"`
	Source       string    `json:"source"`
	Rows         int       `json:"rows"`
	Columns      []string  `json:"columns"`
	Metrics      []string  `json:"metrics"`
	HasTimestamp bool      `json:"hasTimestamp"`
	LoadedAt     time.Time `json:"loadedAt"`
}

func datasetInfo(e *datastore.Entry) DatasetInfo {
	return DatasetInfo{
		Ref:          e.Ref,
		Name:         e.Name,
		Source:       e.Source,
		Rows:         e.Dataset.NumRows(),
		Columns:      e.Dataset.Columns(),
		Metrics:      e.Dataset.AvailableMetrics(),
		HasTimestamp: e.Dataset.HasTimestamp(),
		LoadedAt:     e.LoadedAt,
	}
}

// GetSites lists the known measurement stations and their load state.
func (a *API) GetSites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.store.Sites())
}

// LoadDatasetRequest names a CSV file relative to the data root.
type LoadDatasetRequest struct {
	Path string `json:"path"`
}

// LoadDataset validates and loads a CSV file from the data root. Repeated
// loads of the same path return the cached entry.
func (a *API) LoadDataset(w http.ResponseWriter, r *http.Request) {
	var req LoadDatasetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON with a path field")
		return
	}

	if ok, reason := a.store.Validate(req.Path); !ok {
		writeError(w, http.StatusBadRequest, "source_invalid", reason)
		return
	}

	start := time.Now()
	entry, err := a.store.LoadPath(req.Path)
	metrics.RecordDatasetLoad("path", time.Since(start), err)
	if err != nil {
		a.log.Warn("dataset load failed", "path", req.Path, "error", err)
		writeDatasetError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, datasetInfo(entry))
}

// UploadDataset accepts a multipart CSV upload. Uploads are never
// deduplicated; every call produces a fresh ref.
func (a *API) UploadDataset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "upload_too_large",
			fmt.Sprintf("upload exceeds %d bytes", MaxUploadBytes))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".csv" && ext != ".txt" {
		writeError(w, http.StatusBadRequest, "source_invalid",
			fmt.Sprintf("unsupported file extension %q", ext))
		return
	}

	start := time.Now()
	entry, err := a.store.AddUpload(header.Filename, file)
	metrics.RecordDatasetLoad("upload", time.Since(start), err)
	if err != nil {
		a.log.Warn("dataset upload failed", "name", header.Filename, "error", err)
		writeDatasetError(w, err)
		return
	}

	a.log.Info("dataset uploaded", "name", header.Filename, "ref", entry.Ref, "rows", entry.Dataset.NumRows())
	writeJSON(w, http.StatusCreated, datasetInfo(entry))
}

// resolveDataset looks up the {ref} URL parameter, writing a 404 when the
// ref is unknown.
func (a *API) resolveDataset(w http.ResponseWriter, r *http.Request) (*datastore.Entry, bool) {
	ref := chi.URLParam(r, "ref")
	entry, ok := a.store.Get(ref)
	if !ok {
		writeError(w, http.StatusNotFound, "dataset_not_found", fmt.Sprintf("no dataset with ref %q", ref))
		return nil, false
	}
	return entry, true
}

// filteredDataset applies the optional start/end query parameters. With
// neither present the dataset is returned as is, so rows with null
// timestamps stay visible.
func filteredDataset(w http.ResponseWriter, r *http.Request, ds *dataset.Dataset) (*dataset.Dataset, bool) {
	startRaw := r.URL.Query().Get("start")
	endRaw := r.URL.Query().Get("end")
	if startRaw == "" && endRaw == "" {
		return ds, true
	}

	start := time.Time{}
	end := time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
	if startRaw != "" {
		t, ok := dataset.ParseTime(startRaw)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_date", fmt.Sprintf("cannot parse start date %q", startRaw))
			return nil, false
		}
		start = t
	}
	if endRaw != "" {
		t, ok := dataset.ParseTime(endRaw)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_date", fmt.Sprintf("cannot parse end date %q", endRaw))
			return nil, false
		}
		end = t
	}
	return ds.FilterByDate(start, end), true
}

// metricsParam reads the comma-separated metrics query parameter, falling
// back to every metric the dataset carries.
func metricsParam(r *http.Request, ds *dataset.Dataset) []string {
	raw := r.URL.Query().Get("metrics")
	if raw == "" {
		return ds.AvailableMetrics()
	}
	var out []string
	for _, m := range strings.Split(raw, ",") {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}

// GetDataset returns the dataset's descriptive header.
func (a *API) GetDataset(w http.ResponseWriter, r *http.Request) {
	entry, ok := a.resolveDataset(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, datasetInfo(entry))
}

// MetricsResponse lists the plottable metric columns of a dataset.
type MetricsResponse struct {
	Metrics []string `json:"metrics"`
}

func (a *API) GetMetrics(w http.ResponseWriter, r *http.Request) {
	entry, ok := a.resolveDataset(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, MetricsResponse{Metrics: entry.Dataset.AvailableMetrics()})
}

// BoundsResponse carries the datable range of a dataset. Min and Max are
// null when no row has a parseable timestamp.
type BoundsResponse struct {
	HasTimestamp bool       `json:"hasTimestamp"`
	Min          *time.Time `json:"min"`
	Max          *time.Time `json:"max"`
}

func (a *API) GetBounds(w http.ResponseWriter, r *http.Request) {
	entry, ok := a.resolveDataset(w, r)
	if !ok {
		return
	}

	resp := BoundsResponse{HasTimestamp: entry.Dataset.HasTimestamp()}
	if min, max, ok := entry.Dataset.DateBounds(); ok {
		resp.Min, resp.Max = &min, &max
	}
	writeJSON(w, http.StatusOK, resp)
}

// SummaryResponse is the per-metric statistics table.
type SummaryResponse struct {
	Summaries []dataset.Summary `json:"summaries"`
}

func (a *API) GetSummary(w http.ResponseWriter, r *http.Request) {
	entry, ok := a.resolveDataset(w, r)
	if !ok {
		return
	}
	ds, ok := filteredDataset(w, r, entry.Dataset)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, SummaryResponse{Summaries: ds.SummaryStatistics(metricsParam(r, ds))})
}

// TopResponse holds the n largest rows by one metric, as string records in
// column order.
type TopResponse struct {
	Metric  string     `json:"metric"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

func (a *API) GetTop(w http.ResponseWriter, r *http.Request) {
	entry, ok := a.resolveDataset(w, r)
	if !ok {
		return
	}
	ds, ok := filteredDataset(w, r, entry.Dataset)
	if !ok {
		return
	}

	metric := r.URL.Query().Get("metric")
	if metric == "" {
		writeError(w, http.StatusBadRequest, "missing_parameter", "metric query parameter is required")
		return
	}

	n := 10
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("cannot parse n %q", raw))
			return
		}
		n = parsed
	}

	top, err := ds.TopN(metric, n)
	if err != nil {
		writeDatasetError(w, err)
		return
	}

	rows := top.Rows(top.NumRows(), 0)
	if rows == nil {
		rows = [][]string{}
	}
	writeJSON(w, http.StatusOK, TopResponse{Metric: metric, Columns: top.Columns(), Rows: rows})
}

// GetRows pages through the raw records of a dataset.
func (a *API) GetRows(w http.ResponseWriter, r *http.Request) {
	entry, ok := a.resolveDataset(w, r)
	if !ok {
		return
	}
	ds, ok := filteredDataset(w, r, entry.Dataset)
	if !ok {
		return
	}

	params := ParsePagination(r, DefaultLimit)
	rows := ds.Rows(params.Limit, params.Offset)
	if rows == nil {
		rows = [][]string{}
	}
	writeJSON(w, http.StatusOK, PaginatedResponse[[]string]{
		Items:  rows,
		Total:  ds.NumRows(),
		Limit:  params.Limit,
		Offset: params.Offset,
	})
}

// ExportCSV streams the (optionally date-filtered) dataset back as CSV.
func (a *API) ExportCSV(w http.ResponseWriter, r *http.Request) {
	entry, ok := a.resolveDataset(w, r)
	if !ok {
		return
	}
	ds, ok := filteredDataset(w, r, entry.Dataset)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", entry.Name+".csv"))
	if err := ds.WriteCSV(w); err != nil {
		a.log.Warn("csv export failed", "ref", entry.Ref, "error", err)
	}
}

// ExportReport renders the summary workbook for download.
func (a *API) ExportReport(w http.ResponseWriter, r *http.Request) {
	entry, ok := a.resolveDataset(w, r)
	if !ok {
		return
	}
	ds, ok := filteredDataset(w, r, entry.Dataset)
	if !ok {
		return
	}

	topN := 5
	if raw := r.URL.Query().Get("n"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			topN = parsed
		}
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", entry.Name+".xlsx"))
	err := report.Write(w, report.Params{
		Title:   fmt.Sprintf("Solar measurements report: %s", entry.Name),
		Dataset: ds,
		Metrics: metricsParam(r, ds),
		TopN:    topN,
	})
	if err != nil {
		a.log.Warn("report export failed", "ref", entry.Ref, "error", err)
	}
}
