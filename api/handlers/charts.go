package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/helioview/helioview/api/metrics"
	"github.com/helioview/helioview/pkg/charts"
)

// defaultBubbleSeed keeps bubble downsampling stable across requests unless
// the caller picks their own seed.
const defaultBubbleSeed = 42

// GetChart builds one figure for the dataset. The chart kind is part of the
// URL; metric selection comes from query parameters. Charts degrade rather
// than fail: metrics with no usable values simply produce no trace.
func (a *API) GetChart(w http.ResponseWriter, r *http.Request) {
	entry, ok := a.resolveDataset(w, r)
	if !ok {
		return
	}
	ds, ok := filteredDataset(w, r, entry.Dataset)
	if !ok {
		return
	}

	q := r.URL.Query()
	kind := chi.URLParam(r, "kind")

	var fig charts.Figure
	switch kind {
	case "boxplot":
		fig = charts.Boxplot(ds, metricsParam(r, ds))

	case "timeseries":
		metric := q.Get("metric")
		if metric == "" {
			writeError(w, http.StatusBadRequest, "missing_parameter", "metric query parameter is required")
			return
		}
		fig = charts.TimeSeries(ds, metric)

	case "heatmap":
		fig = charts.CorrelationHeatmap(ds, metricsParam(r, ds))

	case "scatter":
		x, y := q.Get("x"), q.Get("y")
		if x == "" || y == "" {
			writeError(w, http.StatusBadRequest, "missing_parameter", "x and y query parameters are required")
			return
		}
		fig = charts.Scatter(ds, x, y, q.Get("color"))

	case "bubble":
		x, y, size := q.Get("x"), q.Get("y"), q.Get("size")
		if x == "" || y == "" || size == "" {
			writeError(w, http.StatusBadRequest, "missing_parameter", "x, y and size query parameters are required")
			return
		}
		seed := int64(defaultBubbleSeed)
		if raw := q.Get("seed"); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("cannot parse seed %q", raw))
				return
			}
			seed = parsed
		}
		fig = charts.Bubble(ds, x, y, size, q.Get("color"), seed)

	case "wind":
		fig = charts.WindDistribution(ds)

	case "hourly":
		metric := q.Get("metric")
		if metric == "" {
			writeError(w, http.StatusBadRequest, "missing_parameter", "metric query parameter is required")
			return
		}
		fig = charts.HourlyPattern(ds, metric)

	case "monthly":
		metric := q.Get("metric")
		if metric == "" {
			writeError(w, http.StatusBadRequest, "missing_parameter", "metric query parameter is required")
			return
		}
		fig = charts.MonthlyPattern(ds, metric)

	case "distribution":
		metric := q.Get("metric")
		if metric == "" {
			writeError(w, http.StatusBadRequest, "missing_parameter", "metric query parameter is required")
			return
		}
		fig = charts.Distribution(ds, metric)

	default:
		writeError(w, http.StatusNotFound, "unknown_chart", fmt.Sprintf("no chart kind %q", kind))
		return
	}

	metrics.ChartBuildsTotal.WithLabelValues(kind).Inc()
	writeJSON(w, http.StatusOK, fig)
}
