package charts

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/helioview/helioview/pkg/dataset"
)

// MaxBubblePoints bounds the number of points in a bubble chart; larger
// datasets are uniformly sampled down to this size.
const MaxBubblePoints = 1000

// histogramBins is the bin count for distribution charts.
const histogramBins = 50

var monthNames = []string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// Boxplot builds one box trace per requested metric. Metrics absent from the
// dataset are skipped; null values are dropped from each box.
func Boxplot(ds *dataset.Dataset, metrics []string) Figure {
	layout := Layout{
		Title: "Metric Comparison",
		XAxis: Axis{Title: "Metric"},
		YAxis: Axis{Title: "Value"},
	}
	fig := emptyFigure(layout)
	for _, metric := range metrics {
		vals, ok := ds.MetricValues(metric)
		if !ok {
			continue
		}
		fig.Traces = append(fig.Traces, Trace{
			Type: "box",
			Name: metric,
			Y:    floatValues(dropNaN(vals)),
		})
	}
	return fig
}

// TimeSeries plots a metric ordered by Timestamp ascending. Rows with a null
// Timestamp are excluded; null metric values stay as gaps.
func TimeSeries(ds *dataset.Dataset, metric string) Figure {
	layout := Layout{
		Title: fmt.Sprintf("%s Over Time", metric),
		XAxis: Axis{Title: "Date/Time"},
		YAxis: Axis{Title: metric},
	}
	vals, ok := ds.MetricValues(metric)
	if !ok || !ds.HasTimestamp() {
		return emptyFigure(layout)
	}

	type point struct {
		t time.Time
		v float64
	}
	points := make([]point, 0, len(vals))
	for i, v := range vals {
		t, valid := ds.Time(i)
		if !valid {
			continue
		}
		points = append(points, point{t: t, v: v})
	}
	sort.SliceStable(points, func(a, b int) bool { return points[a].t.Before(points[b].t) })

	x := make([]any, len(points))
	y := make([]any, len(points))
	for i, p := range points {
		x[i] = p.t.Format(time.RFC3339)
		y[i] = dataset.Float(p.v)
	}
	return Figure{
		Traces: []Trace{{Type: "scatter", Mode: "lines", Name: metric, X: x, Y: y}},
		Layout: layout,
	}
}

// CorrelationHeatmap builds a pairwise Pearson correlation matrix over the
// requested metrics. Each pair is computed over the rows where both values
// are non-null; with fewer than two such rows the cell is undefined and
// serializes as null.
func CorrelationHeatmap(ds *dataset.Dataset, metrics []string) Figure {
	layout := Layout{Title: "Correlation Heatmap"}

	var present []string
	for _, m := range metrics {
		if ds.HasColumn(m) {
			present = append(present, m)
		}
	}
	if len(present) < 2 {
		return emptyFigure(layout)
	}

	cols := make([][]float64, len(present))
	for i, m := range present {
		cols[i], _ = ds.MetricValues(m)
	}

	z := make([][]dataset.Float, len(present))
	text := make([][]string, len(present))
	names := make([]any, len(present))
	for i, m := range present {
		names[i] = m
		z[i] = make([]dataset.Float, len(present))
		text[i] = make([]string, len(present))
		for j := range present {
			r := pairwiseCorrelation(cols[i], cols[j])
			z[i][j] = dataset.Float(r)
			if math.IsNaN(r) {
				text[i][j] = "NaN"
			} else {
				text[i][j] = fmt.Sprintf("%.2f", r)
			}
		}
	}
	return Figure{
		Traces: []Trace{{Type: "heatmap", X: names, Y: names, Z: z, Text: text}},
		Layout: layout,
	}
}

// pairwiseCorrelation computes the Pearson correlation over rows where both
// values are non-NaN. NaN when fewer than two co-present rows exist.
func pairwiseCorrelation(a, b []float64) float64 {
	xs := make([]float64, 0, len(a))
	ys := make([]float64, 0, len(b))
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		xs = append(xs, a[i])
		ys = append(ys, b[i])
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}

// Scatter plots metricY against metricX, excluding rows where either axis
// value is null. colorMetric, when present, attaches a per-point color value.
func Scatter(ds *dataset.Dataset, metricX, metricY, colorMetric string) Figure {
	layout := Layout{
		Title: fmt.Sprintf("%s vs %s", metricY, metricX),
		XAxis: Axis{Title: metricX},
		YAxis: Axis{Title: metricY},
	}
	xs, okX := ds.MetricValues(metricX)
	ys, okY := ds.MetricValues(metricY)
	if !okX || !okY {
		return emptyFigure(layout)
	}
	colors, hasColor := ds.MetricValues(colorMetric)

	trace := Trace{Type: "scatter", Mode: "markers", Opacity: 0.6}
	if hasColor {
		trace.Marker = &Marker{ColorMetric: colorMetric}
	}
	for i := range xs {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			continue
		}
		trace.X = append(trace.X, xs[i])
		trace.Y = append(trace.Y, dataset.Float(ys[i]))
		if hasColor {
			trace.Marker.Color = append(trace.Marker.Color, dataset.Float(colors[i]))
		}
	}
	return Figure{Traces: []Trace{trace}, Layout: layout}
}

// Bubble plots metricY against metricX with metricSize as bubble size. When
// the dataset has more than MaxBubblePoints rows, a uniform random sample of
// MaxBubblePoints rows is taken; seed makes the sample reproducible. Rows
// with a null value in any required metric are excluded.
func Bubble(ds *dataset.Dataset, metricX, metricY, metricSize, colorMetric string, seed int64) Figure {
	layout := Layout{
		Title: fmt.Sprintf("Bubble Chart: %s vs %s", metricY, metricX),
		XAxis: Axis{Title: metricX},
		YAxis: Axis{Title: metricY},
	}
	xs, okX := ds.MetricValues(metricX)
	ys, okY := ds.MetricValues(metricY)
	sizes, okS := ds.MetricValues(metricSize)
	if !okX || !okY || !okS {
		return emptyFigure(layout)
	}
	colors, hasColor := ds.MetricValues(colorMetric)

	idx := sampleIndices(len(xs), MaxBubblePoints, seed)

	trace := Trace{
		Type:    "scatter",
		Mode:    "markers",
		Opacity: 0.6,
		Marker:  &Marker{SizeMax: 30},
	}
	if hasColor {
		trace.Marker.ColorMetric = colorMetric
	}
	for _, i := range idx {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) || math.IsNaN(sizes[i]) {
			continue
		}
		trace.X = append(trace.X, xs[i])
		trace.Y = append(trace.Y, dataset.Float(ys[i]))
		trace.Marker.Size = append(trace.Marker.Size, dataset.Float(sizes[i]))
		if hasColor {
			trace.Marker.Color = append(trace.Marker.Color, dataset.Float(colors[i]))
		}
	}
	return Figure{Traces: []Trace{trace}, Layout: layout}
}

// sampleIndices returns row indices, uniformly sampled down to max when n
// exceeds it, in ascending order so the original row order is preserved.
func sampleIndices(n, max int, seed int64) []int {
	if n <= max {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	rng := rand.New(rand.NewSource(seed))
	idx := rng.Perm(n)[:max]
	sort.Ints(idx)
	return idx
}

// WindDistribution builds a wind speed histogram from WS with an overlaid
// WSgust histogram when that column is present.
func WindDistribution(ds *dataset.Dataset) Figure {
	layout := Layout{
		Title:   "Wind Speed Distribution",
		XAxis:   Axis{Title: "Wind Speed (m/s)"},
		YAxis:   Axis{Title: "Frequency"},
		BarMode: "overlay",
	}
	fig := emptyFigure(layout)

	ws, ok := ds.MetricValues("WS")
	if !ok {
		return fig
	}
	if trace, ok := histogramTrace("Wind Speed", dropNaN(ws), false); ok {
		fig.Traces = append(fig.Traces, trace)
	}
	if gust, ok := ds.MetricValues("WSgust"); ok {
		if trace, ok := histogramTrace("Wind Gust", dropNaN(gust), false); ok {
			fig.Traces = append(fig.Traces, trace)
		}
	}
	return fig
}

// HourlyPattern plots the mean of a metric grouped by hour of day (0-23).
// Rows with a null Timestamp or null metric value are excluded.
func HourlyPattern(ds *dataset.Dataset, metric string) Figure {
	layout := Layout{
		Title: fmt.Sprintf("Average %s by Hour of Day", metric),
		XAxis: Axis{Title: "Hour of Day"},
		YAxis: Axis{Title: fmt.Sprintf("Average %s", metric)},
	}
	groups := groupMeans(ds, metric, func(t time.Time) int { return t.Hour() })
	if len(groups) == 0 {
		return emptyFigure(layout)
	}

	trace := Trace{Type: "scatter", Mode: "lines+markers", Name: metric}
	for _, g := range groups {
		trace.X = append(trace.X, g.key)
		trace.Y = append(trace.Y, dataset.Float(g.mean))
	}
	return Figure{Traces: []Trace{trace}, Layout: layout}
}

// MonthlyPattern plots the mean of a metric grouped by calendar month
// (1-12). Rows with a null Timestamp or null metric value are excluded.
func MonthlyPattern(ds *dataset.Dataset, metric string) Figure {
	layout := Layout{
		Title: fmt.Sprintf("Average %s by Month", metric),
		XAxis: Axis{Title: "Month"},
		YAxis: Axis{Title: fmt.Sprintf("Average %s", metric)},
	}
	groups := groupMeans(ds, metric, func(t time.Time) int { return int(t.Month()) })
	if len(groups) == 0 {
		return emptyFigure(layout)
	}

	trace := Trace{Type: "bar", Name: metric}
	for _, g := range groups {
		trace.X = append(trace.X, monthNames[g.key-1])
		trace.Y = append(trace.Y, dataset.Float(g.mean))
	}
	return Figure{Traces: []Trace{trace}, Layout: layout}
}

// Distribution builds a probability-density histogram of a metric's non-null
// values.
func Distribution(ds *dataset.Dataset, metric string) Figure {
	layout := Layout{
		Title: fmt.Sprintf("%s Distribution", metric),
		XAxis: Axis{Title: metric},
		YAxis: Axis{Title: "Density"},
	}
	vals, ok := ds.MetricValues(metric)
	if !ok {
		return emptyFigure(layout)
	}
	trace, ok := histogramTrace("Distribution", dropNaN(vals), true)
	if !ok {
		return emptyFigure(layout)
	}
	return Figure{Traces: []Trace{trace}, Layout: layout}
}

type group struct {
	key  int
	mean float64
}

// groupMeans buckets non-null metric values of rows with a valid timestamp
// by keyFn, returning per-bucket means sorted by key.
func groupMeans(ds *dataset.Dataset, metric string, keyFn func(time.Time) int) []group {
	vals, ok := ds.MetricValues(metric)
	if !ok || !ds.HasTimestamp() {
		return nil
	}
	buckets := make(map[int][]float64)
	for i, v := range vals {
		t, valid := ds.Time(i)
		if !valid || math.IsNaN(v) {
			continue
		}
		buckets[keyFn(t)] = append(buckets[keyFn(t)], v)
	}
	groups := make([]group, 0, len(buckets))
	for key, bucket := range buckets {
		groups = append(groups, group{key: key, mean: stat.Mean(bucket, nil)})
	}
	sort.Slice(groups, func(a, b int) bool { return groups[a].key < groups[b].key })
	return groups
}

// histogramTrace bins values into histogramBins equal-width bins and emits a
// bar trace of bin centers. With density set, counts are normalized to a
// probability density. ok is false when there are no values to bin.
func histogramTrace(name string, values []float64, density bool) (Trace, bool) {
	if len(values) == 0 {
		return Trace{}, false
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	min, max := sorted[0], sorted[len(sorted)-1]

	trace := Trace{Type: "bar", Name: name, Opacity: 0.7}
	if min == max {
		count := float64(len(sorted))
		if density {
			count = 1
		}
		trace.X = []any{min}
		trace.Y = []any{dataset.Float(count)}
		return trace, true
	}

	dividers := make([]float64, histogramBins+1)
	floats.Span(dividers, min, max)
	// stat.Histogram requires every value to fall strictly below the last
	// divider.
	dividers[len(dividers)-1] = math.Nextafter(max, math.Inf(1))

	counts := stat.Histogram(make([]float64, histogramBins), dividers, sorted, nil)
	width := (max - min) / histogramBins
	total := float64(len(sorted))
	for i, c := range counts {
		if density {
			c = c / (total * width)
		}
		trace.X = append(trace.X, min+width*(float64(i)+0.5))
		trace.Y = append(trace.Y, dataset.Float(c))
	}
	return trace, true
}

// floatValues wraps values for an axis slice, keeping NaN-as-null
// marshalling.
func floatValues(vals []float64) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = dataset.Float(v)
	}
	return out
}

func dropNaN(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
