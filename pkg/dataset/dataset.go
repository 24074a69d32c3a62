// Package dataset implements loading and derived views over solar measurement
// CSV files: timestamp parsing, date-range filtering, summary statistics and
// top-N selection. A Dataset is immutable once loaded; every view is a new
// value.
package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// TimestampColumn is the only structurally special column: when present it is
// parsed as a point-in-time value. Its absence is a valid state.
const TimestampColumn = "Timestamp"

// MetricAllowList is the fixed set of column names recognized as physical
// measurements. A dataset's available metrics are the intersection of its
// columns with this list, in dataset column order.
var MetricAllowList = []string{
	"GHI", "DNI", "DHI", "Tamb", "RH", "WS", "WSgust",
	"ModA", "ModB", "BP", "Precipitation",
}

// timestampLayouts are tried in order when parsing Timestamp cells. Cells
// matching none of them become null; the row itself is retained.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime parses a timestamp cell or query parameter. ok is false when the
// value matches none of the accepted layouts.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Dataset is an immutable tabular collection of typed columns and ordered
// rows. When a Timestamp column is present its parsed values are kept
// alongside the frame; unparseable cells are null (times[i] invalid) but the
// rows stay in the frame.
type Dataset struct {
	df      dataframe.DataFrame
	times   []time.Time
	timesOK []bool
	hasTime bool
}

// LoadOptions controls dataset loading.
type LoadOptions struct {
	// ParseTimestamps enables parsing of the Timestamp column when present.
	ParseTimestamps bool
}

// DefaultLoadOptions returns the options used by the dashboard: timestamps
// parsed.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{ParseTimestamps: true}
}

// ValidateSource reports whether path names a loadable CSV artifact. All
// failures are returned as data, never as an error: a missing or malformed
// path is an expected user-input condition. When root is non-empty, paths
// resolving outside it are rejected.
func ValidateSource(root, path string) (bool, string) {
	if strings.TrimSpace(path) == "" {
		return false, "no file path provided"
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".csv" && ext != ".txt" {
		return false, fmt.Sprintf("file must be a CSV file, got %q", filepath.Ext(path))
	}

	full := path
	if root != "" {
		if filepath.IsAbs(path) {
			return false, "absolute paths are not allowed"
		}
		rel, err := filepath.Rel(root, filepath.Join(root, path))
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return false, "path escapes the data root"
		}
		full = filepath.Join(root, path)
	}

	info, err := os.Stat(full)
	if err != nil {
		return false, fmt.Sprintf("file does not exist: %s", path)
	}
	if !info.Mode().IsRegular() {
		return false, fmt.Sprintf("path is not a file: %s", path)
	}
	return true, ""
}

// Load parses CSV content into a Dataset. The Timestamp column, when present
// and ParseTimestamps is set, is parsed per cell; cells that fail to parse
// become null and their rows are retained. A structural parse failure (bad
// CSV, duplicate headers, empty input) returns a *LoadError.
func Load(r io.Reader, opts LoadOptions) (*Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &LoadError{Err: err}
	}
	if err := checkHeader(data); err != nil {
		return nil, &LoadError{Err: err}
	}

	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.DefaultType(series.Float),
		dataframe.WithTypes(map[string]series.Type{TimestampColumn: series.String}),
	)
	if df.Err != nil {
		return nil, &LoadError{Err: df.Err}
	}

	ds := &Dataset{df: df}
	if opts.ParseTimestamps {
		ds.parseTimestampColumn()
	}
	return ds, nil
}

// LoadFile validates and loads a CSV from disk. path is resolved relative to
// root when root is non-empty. Validation failures are returned as a
// *LoadError wrapping the reason so callers that skipped ValidateSource still
// cannot read outside the root.
func LoadFile(root, path string, opts LoadOptions) (*Dataset, error) {
	if ok, reason := ValidateSource(root, path); !ok {
		return nil, &LoadError{Source: path, Err: errors.New(reason)}
	}
	full := path
	if root != "" {
		full = filepath.Join(root, path)
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	defer f.Close()

	ds, err := Load(f, opts)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Source = path
		}
		return nil, err
	}
	return ds, nil
}

// checkHeader rejects duplicate column names in the raw CSV header. The
// frame parser silently renames duplicates (GHI, GHI becomes GHI_0, GHI_1),
// which would mask the conflict, so the header is inspected first.
func checkHeader(data []byte) error {
	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		// Structural problems surface from the frame parse.
		return nil
	}
	seen := make(map[string]struct{}, len(header))
	for _, name := range header {
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate column name %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

func (d *Dataset) parseTimestampColumn() {
	col := d.df.Col(TimestampColumn)
	if col.Err != nil {
		return
	}
	recs := col.Records()
	d.times = make([]time.Time, len(recs))
	d.timesOK = make([]bool, len(recs))
	for i, rec := range recs {
		if t, ok := ParseTime(rec); ok {
			d.times[i] = t
			d.timesOK[i] = true
		}
	}
	d.hasTime = true
}

// NumRows returns the number of rows, including rows with null timestamps.
func (d *Dataset) NumRows() int { return d.df.Nrow() }

// Columns returns the column names in dataset order.
func (d *Dataset) Columns() []string { return d.df.Names() }

// HasColumn reports whether name is a column of the dataset.
func (d *Dataset) HasColumn(name string) bool {
	for _, n := range d.df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// HasTimestamp reports whether the dataset has a parsed Timestamp column.
func (d *Dataset) HasTimestamp() bool { return d.hasTime }

// Time returns the parsed timestamp of row i. ok is false for rows whose
// Timestamp cell was null or unparseable, and for datasets without a
// Timestamp column.
func (d *Dataset) Time(i int) (time.Time, bool) {
	if !d.hasTime || i < 0 || i >= len(d.times) {
		return time.Time{}, false
	}
	return d.times[i], d.timesOK[i]
}

// AvailableMetrics returns the allow-listed metric columns present in the
// dataset, preserving dataset column order. Empty when none match.
func (d *Dataset) AvailableMetrics() []string {
	allowed := make(map[string]struct{}, len(MetricAllowList))
	for _, m := range MetricAllowList {
		allowed[m] = struct{}{}
	}
	var metrics []string
	for _, name := range d.df.Names() {
		if _, ok := allowed[name]; ok {
			metrics = append(metrics, name)
		}
	}
	return metrics
}

// MetricValues returns the values of a column as floats, with NaN for null or
// non-numeric cells. ok is false when the column is absent.
func (d *Dataset) MetricValues(name string) ([]float64, bool) {
	col := d.df.Col(name)
	if col.Err != nil {
		return nil, false
	}
	return col.Float(), true
}

// DateBounds returns the minimum and maximum non-null timestamps. ok is
// false when there is no Timestamp column or every value is null; callers
// must treat that as "date filtering unavailable", not as an error.
func (d *Dataset) DateBounds() (min, max time.Time, ok bool) {
	if !d.hasTime {
		return time.Time{}, time.Time{}, false
	}
	for i, t := range d.times {
		if !d.timesOK[i] {
			continue
		}
		if !ok {
			min, max, ok = t, t, true
			continue
		}
		if t.Before(min) {
			min = t
		}
		if t.After(max) {
			max = t
		}
	}
	return min, max, ok
}

// FilterByDate returns the rows whose timestamp lies in [start, end]
// inclusive, preserving row order. Rows with null timestamps are excluded
// from the view. Datasets without a Timestamp column are returned unchanged.
func (d *Dataset) FilterByDate(start, end time.Time) *Dataset {
	if !d.hasTime {
		return d
	}
	var idx []int
	for i, t := range d.times {
		if !d.timesOK[i] {
			continue
		}
		if t.Before(start) || t.After(end) {
			continue
		}
		idx = append(idx, i)
	}
	return d.subset(idx)
}

// TopN returns the n rows with the largest value of metric, descending, ties
// broken by original row order. Rows with a null metric value are never
// returned. n <= 0 yields an empty dataset; n beyond the row count returns
// every candidate row.
func (d *Dataset) TopN(metric string, n int) (*Dataset, error) {
	vals, ok := d.MetricValues(metric)
	if !ok {
		return nil, &MetricNotFoundError{Metric: metric}
	}
	if n < 0 {
		n = 0
	}

	idx := make([]int, 0, len(vals))
	for i, v := range vals {
		if !isNaN(v) {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return vals[idx[a]] > vals[idx[b]]
	})
	if n < len(idx) {
		idx = idx[:n]
	}
	return d.subset(idx), nil
}

// Head returns the first n rows as a new Dataset.
func (d *Dataset) Head(n int) *Dataset {
	if n < 0 {
		n = 0
	}
	if n > d.df.Nrow() {
		n = d.df.Nrow()
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return d.subset(idx)
}

// Rows returns up to limit rows of string records starting at offset, in row
// order. Used for raw-data pagination.
func (d *Dataset) Rows(limit, offset int) [][]string {
	recs := d.df.Records()
	if len(recs) <= 1 {
		return nil
	}
	rows := recs[1:]
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if limit >= 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	out := make([][]string, len(rows))
	copy(out, rows)
	return out
}

// WriteCSV writes the dataset, header included, as CSV.
func (d *Dataset) WriteCSV(w io.Writer) error {
	return d.df.WriteCSV(w)
}

// subset builds a new Dataset from the given row indices, carrying the
// parsed-timestamp view along.
func (d *Dataset) subset(idx []int) *Dataset {
	if idx == nil {
		idx = []int{}
	}
	sub := d.df.Subset(idx)
	out := &Dataset{df: sub, hasTime: d.hasTime}
	if d.hasTime {
		out.times = make([]time.Time, len(idx))
		out.timesOK = make([]bool, len(idx))
		for i, j := range idx {
			out.times[i] = d.times[j]
			out.timesOK[i] = d.timesOK[j]
		}
	}
	return out
}

func isNaN(f float64) bool { return f != f }
