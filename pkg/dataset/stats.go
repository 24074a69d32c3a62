package dataset

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary holds the descriptive statistics of one metric column. StdDev is
// the sample standard deviation (n-1 denominator), the conventional choice
// for measurement data; it is NaN (null in JSON) for fewer than two values.
type Summary struct {
	Metric string `json:"metric"`
	Count  int    `json:"count"`
	Mean   Float  `json:"mean"`
	Median Float  `json:"median"`
	StdDev Float  `json:"stdDev"`
	Min    Float  `json:"min"`
	Max    Float  `json:"max"`
}

// SummaryStatistics computes per-metric statistics over non-null values.
// Metrics absent from the dataset are silently skipped, so the result row
// set is the intersection of the request and the dataset's columns; an empty
// request or empty intersection yields an empty table, not a failure.
func (d *Dataset) SummaryStatistics(metrics []string) []Summary {
	summaries := make([]Summary, 0, len(metrics))
	for _, metric := range metrics {
		vals, ok := d.MetricValues(metric)
		if !ok {
			continue
		}
		clean := make([]float64, 0, len(vals))
		for _, v := range vals {
			if !isNaN(v) {
				clean = append(clean, v)
			}
		}
		s := Summary{Metric: metric, Count: len(clean)}
		if len(clean) == 0 {
			nan := Float(math.NaN())
			s.Mean, s.Median, s.StdDev, s.Min, s.Max = nan, nan, nan, nan, nan
		} else {
			s.Mean = Float(stat.Mean(clean, nil))
			s.Median = Float(median(clean))
			s.StdDev = Float(stat.StdDev(clean, nil))
			s.Min = Float(floats.Min(clean))
			s.Max = Float(floats.Max(clean))
		}
		summaries = append(summaries, s)
	}
	return summaries
}

// median returns the middle value, averaging the two central values for even
// counts. The input is not modified.
func median(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
