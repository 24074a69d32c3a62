package charts_test

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helioview/helioview/pkg/charts"
	"github.com/helioview/helioview/pkg/dataset"
)

func loadCSV(t *testing.T, csv string) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Load(strings.NewReader(csv), dataset.DefaultLoadOptions())
	require.NoError(t, err)
	return ds
}

// syntheticCSV builds a dataset with n hourly rows and linearly increasing
// GHI/DNI/WS values.
func syntheticCSV(n int) string {
	var b strings.Builder
	b.WriteString("Timestamp,GHI,DNI,WS,WSgust\n")
	for i := 0; i < n; i++ {
		day := i/24 + 1
		hour := i % 24
		fmt.Fprintf(&b, "2024-01-%02d %02d:00:00,%d,%d,%d,%d\n",
			day%28+1, hour, i, i*2, i%20, i%20+2)
	}
	return b.String()
}

func TestBoxplotSkipsAbsentMetrics(t *testing.T) {
	ds := loadCSV(t, syntheticCSV(48))
	fig := charts.Boxplot(ds, []string{"GHI", "NotThere", "WS"})
	require.Len(t, fig.Traces, 2)
	assert.Equal(t, "GHI", fig.Traces[0].Name)
	assert.Equal(t, "WS", fig.Traces[1].Name)
	assert.Equal(t, "box", fig.Traces[0].Type)
}

func TestTimeSeriesOrderedAndNullTimestampsExcluded(t *testing.T) {
	csv := "Timestamp,GHI\n" +
		"2024-01-03 00:00:00,30\n" +
		"not-a-date,99\n" +
		"2024-01-01 00:00:00,10\n" +
		"2024-01-02 00:00:00,20\n"
	ds := loadCSV(t, csv)

	fig := charts.TimeSeries(ds, "GHI")
	require.Len(t, fig.Traces, 1)
	trace := fig.Traces[0]
	require.Len(t, trace.X, 3)
	assert.Equal(t, []any{dataset.Float(10), dataset.Float(20), dataset.Float(30)}, trace.Y)
}

func TestTimeSeriesWithoutTimestamp(t *testing.T) {
	ds := loadCSV(t, "GHI\n1\n2\n")
	fig := charts.TimeSeries(ds, "GHI")
	assert.Empty(t, fig.Traces)
}

func TestCorrelationHeatmap(t *testing.T) {
	// DNI is exactly 2*GHI, so their correlation is 1.
	ds := loadCSV(t, syntheticCSV(100))
	fig := charts.CorrelationHeatmap(ds, []string{"GHI", "DNI"})
	require.Len(t, fig.Traces, 1)
	z := fig.Traces[0].Z
	require.Len(t, z, 2)
	assert.InDelta(t, 1.0, float64(z[0][0]), 1e-9)
	assert.InDelta(t, 1.0, float64(z[0][1]), 1e-9)
}

func TestCorrelationHeatmapUndefinedUnderTwoRows(t *testing.T) {
	ds := loadCSV(t, "Timestamp,GHI,DNI\n2024-01-01 00:00:00,1,2\n")
	fig := charts.CorrelationHeatmap(ds, []string{"GHI", "DNI"})
	require.Len(t, fig.Traces, 1)
	assert.True(t, fig.Traces[0].Z[0][1].IsNull())
	assert.Equal(t, "NaN", fig.Traces[0].Text[0][1])
}

func TestCorrelationHeatmapAxisLabels(t *testing.T) {
	ds := loadCSV(t, syntheticCSV(10))
	fig := charts.CorrelationHeatmap(ds, []string{"GHI", "DNI"})

	data, err := json.Marshal(fig)
	require.NoError(t, err)

	var decoded struct {
		Data []struct {
			X []string `json:"x"`
			Y []string `json:"y"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Data, 1)
	assert.Equal(t, []string{"GHI", "DNI"}, decoded.Data[0].X)
	assert.Equal(t, []string{"GHI", "DNI"}, decoded.Data[0].Y)
}

func TestCorrelationHeatmapNeedsTwoMetrics(t *testing.T) {
	ds := loadCSV(t, syntheticCSV(10))
	fig := charts.CorrelationHeatmap(ds, []string{"GHI", "NotThere"})
	assert.Empty(t, fig.Traces)
}

func TestScatterExcludesNullAxisRows(t *testing.T) {
	csv := "GHI,DNI,Tamb\n1,2,25\n,4,26\n5,,27\n7,8,\n"
	ds := loadCSV(t, csv)

	fig := charts.Scatter(ds, "GHI", "DNI", "Tamb")
	require.Len(t, fig.Traces, 1)
	trace := fig.Traces[0]
	// Rows 2 and 3 have a null axis value; row 4 only has null color.
	require.Len(t, trace.X, 2)
	require.NotNil(t, trace.Marker)
	assert.Equal(t, "Tamb", trace.Marker.ColorMetric)
	require.Len(t, trace.Marker.Color, 2)
	assert.True(t, trace.Marker.Color[1].IsNull())
}

func TestBubbleSamplesLargeDatasets(t *testing.T) {
	big := loadCSV(t, syntheticCSV(5000))
	fig := charts.Bubble(big, "GHI", "DNI", "WS", "", 42)
	require.Len(t, fig.Traces, 1)
	assert.Len(t, fig.Traces[0].X, 1000)

	small := loadCSV(t, syntheticCSV(500))
	fig = charts.Bubble(small, "GHI", "DNI", "WS", "", 42)
	require.Len(t, fig.Traces, 1)
	assert.Len(t, fig.Traces[0].X, 500)
}

func TestBubbleSamplingIsSeeded(t *testing.T) {
	ds := loadCSV(t, syntheticCSV(3000))
	a := charts.Bubble(ds, "GHI", "DNI", "WS", "", 7)
	b := charts.Bubble(ds, "GHI", "DNI", "WS", "", 7)
	assert.Equal(t, a.Traces[0].X, b.Traces[0].X)

	c := charts.Bubble(ds, "GHI", "DNI", "WS", "", 8)
	assert.NotEqual(t, a.Traces[0].X, c.Traces[0].X)
}

func TestBubbleMissingSizeMetric(t *testing.T) {
	ds := loadCSV(t, "GHI,DNI\n1,2\n")
	fig := charts.Bubble(ds, "GHI", "DNI", "NotThere", "", 1)
	assert.Empty(t, fig.Traces)
}

func TestWindDistribution(t *testing.T) {
	ds := loadCSV(t, syntheticCSV(200))
	fig := charts.WindDistribution(ds)
	require.Len(t, fig.Traces, 2)
	assert.Equal(t, "Wind Speed", fig.Traces[0].Name)
	assert.Equal(t, "Wind Gust", fig.Traces[1].Name)
	assert.Equal(t, "overlay", fig.Layout.BarMode)
}

func TestWindDistributionWithoutGust(t *testing.T) {
	ds := loadCSV(t, "Timestamp,WS\n2024-01-01 00:00:00,2\n2024-01-01 01:00:00,6\n")
	fig := charts.WindDistribution(ds)
	require.Len(t, fig.Traces, 1)
}

func TestWindDistributionWithoutWS(t *testing.T) {
	ds := loadCSV(t, "GHI\n1\n")
	fig := charts.WindDistribution(ds)
	assert.Empty(t, fig.Traces)
}

func TestHourlyPattern(t *testing.T) {
	csv := "Timestamp,GHI\n" +
		"2024-01-01 06:00:00,10\n" +
		"2024-01-02 06:00:00,30\n" +
		"2024-01-01 12:00:00,100\n" +
		"not-a-date,999\n"
	ds := loadCSV(t, csv)

	fig := charts.HourlyPattern(ds, "GHI")
	require.Len(t, fig.Traces, 1)
	trace := fig.Traces[0]
	// Two groups: hour 6 (mean 20) and hour 12 (mean 100); the null-timestamp
	// row is excluded.
	require.Len(t, trace.X, 2)
	assert.Equal(t, 6, trace.X[0])
	assert.InDelta(t, 20.0, float64(trace.Y[0].(dataset.Float)), 1e-9)
	assert.Equal(t, 12, trace.X[1])
	assert.InDelta(t, 100.0, float64(trace.Y[1].(dataset.Float)), 1e-9)
}

func TestHourlyPatternWithoutTimestamp(t *testing.T) {
	ds := loadCSV(t, "GHI\n1\n2\n")
	fig := charts.HourlyPattern(ds, "GHI")
	assert.Empty(t, fig.Traces)
}

func TestMonthlyPattern(t *testing.T) {
	csv := "Timestamp,GHI\n" +
		"2024-01-15 12:00:00,10\n" +
		"2024-03-15 12:00:00,30\n" +
		"2024-03-20 12:00:00,50\n"
	ds := loadCSV(t, csv)

	fig := charts.MonthlyPattern(ds, "GHI")
	require.Len(t, fig.Traces, 1)
	trace := fig.Traces[0]
	require.Len(t, trace.X, 2)
	assert.Equal(t, "Jan", trace.X[0])
	assert.Equal(t, "Mar", trace.X[1])
	assert.InDelta(t, 40.0, float64(trace.Y[1].(dataset.Float)), 1e-9)
}

func TestDistributionBinCountsSumToValueCount(t *testing.T) {
	ds := loadCSV(t, syntheticCSV(240))
	fig := charts.Distribution(ds, "WS")
	require.Len(t, fig.Traces, 1)

	// Density times bin width sums to 1 over all bins.
	trace := fig.Traces[0]
	var sum float64
	for _, y := range trace.Y {
		sum += float64(y.(dataset.Float))
	}
	require.Greater(t, len(trace.Y), 1)
	width := float64(trace.X[1].(float64) - trace.X[0].(float64))
	assert.InDelta(t, 1.0, sum*width, 1e-6)
}

func TestDistributionAbsentMetric(t *testing.T) {
	ds := loadCSV(t, "GHI\n1\n")
	fig := charts.Distribution(ds, "NotThere")
	assert.Empty(t, fig.Traces)
}

func TestEmptyDatasetFiguresAreValid(t *testing.T) {
	ds := loadCSV(t, "Timestamp,GHI,DNI,WS\n2024-01-01 00:00:00,1,2,3\n")
	empty := ds.FilterByDate(mustTime(t, "2030-01-01"), mustTime(t, "2030-01-02"))
	require.Equal(t, 0, empty.NumRows())

	figs := []charts.Figure{
		charts.Boxplot(empty, []string{"GHI"}),
		charts.TimeSeries(empty, "GHI"),
		charts.Scatter(empty, "GHI", "DNI", ""),
		charts.Bubble(empty, "GHI", "DNI", "WS", "", 1),
		charts.WindDistribution(empty),
		charts.HourlyPattern(empty, "GHI"),
		charts.MonthlyPattern(empty, "GHI"),
		charts.Distribution(empty, "GHI"),
	}
	for _, fig := range figs {
		_, err := json.Marshal(fig)
		require.NoError(t, err)
	}
}

func TestFigureJSONIsNaNSafe(t *testing.T) {
	// One row: every correlation is undefined.
	ds := loadCSV(t, "GHI,DNI\n1,2\n")
	fig := charts.CorrelationHeatmap(ds, []string{"GHI", "DNI"})

	data, err := json.Marshal(fig)
	require.NoError(t, err)

	var decoded struct {
		Data []struct {
			Z [][]*float64 `json:"z"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Data, 1)
	assert.Nil(t, decoded.Data[0].Z[0][1])
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, ok := dataset.ParseTime(s)
	require.True(t, ok)
	return ts
}
