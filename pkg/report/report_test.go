package report_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/helioview/helioview/pkg/dataset"
	"github.com/helioview/helioview/pkg/report"
)

const sampleCSV = `Timestamp,GHI,DNI
2024-01-01 00:00:00,10,1
2024-01-02 00:00:00,50,2
2024-01-03 00:00:00,30,3
`

func TestWrite(t *testing.T) {
	ds, err := dataset.Load(strings.NewReader(sampleCSV), dataset.DefaultLoadOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	err = report.Write(&buf, report.Params{
		Title:   "Benin Malanville",
		Dataset: ds,
		Metrics: []string{"GHI", "NotThere"},
		TopN:    2,
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"Summary", "Top GHI"}, f.GetSheetList())

	title, err := f.GetCellValue("Summary", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Benin Malanville", title)

	metric, err := f.GetCellValue("Summary", "A5")
	require.NoError(t, err)
	assert.Equal(t, "GHI", metric)

	mean, err := f.GetCellValue("Summary", "C5")
	require.NoError(t, err)
	assert.Equal(t, "30", mean)

	// Top sheet is descending by GHI.
	topVal, err := f.GetCellValue("Top GHI", "B2")
	require.NoError(t, err)
	assert.Equal(t, "50", topVal)
}

func TestWriteWithoutTopSheets(t *testing.T) {
	ds, err := dataset.Load(strings.NewReader(sampleCSV), dataset.DefaultLoadOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	err = report.Write(&buf, report.Params{Dataset: ds, Metrics: []string{"GHI"}, TopN: 0})
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Summary"}, f.GetSheetList())
}
