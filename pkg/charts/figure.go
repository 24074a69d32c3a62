// Package charts builds renderable figure values from datasets. Builders are
// pure functions: no shared state, no I/O, and a dataset with zero matching
// rows yields an empty-but-valid figure. Figures are shaped for a
// plotly-compatible browser renderer and always serialize to JSON (NaN
// becomes null).
package charts

import "github.com/helioview/helioview/pkg/dataset"

// Trace is a single plotted series within a figure. X and Y hold whatever
// the axis carries: timestamps or category labels as strings, numeric values
// as dataset.Float so NaN still marshals to null.
type Trace struct {
	Type    string            `json:"type"`
	Name    string            `json:"name,omitempty"`
	Mode    string            `json:"mode,omitempty"`
	X       []any             `json:"x,omitempty"`
	Y       []any             `json:"y,omitempty"`
	Z       [][]dataset.Float `json:"z,omitempty"`
	Text    [][]string        `json:"text,omitempty"`
	Marker  *Marker           `json:"marker,omitempty"`
	Opacity float64           `json:"opacity,omitempty"`
}

// Marker carries per-point encoding for scatter and bubble traces.
type Marker struct {
	Size    []dataset.Float `json:"size,omitempty"`
	SizeMax int             `json:"sizemax,omitempty"`
	Color   []dataset.Float `json:"color,omitempty"`
	// ColorMetric names the metric behind Color so the renderer can label
	// the color scale.
	ColorMetric string `json:"colormetric,omitempty"`
}

// Axis describes one figure axis.
type Axis struct {
	Title string `json:"title,omitempty"`
}

// Layout carries figure-level presentation hints.
type Layout struct {
	Title   string `json:"title,omitempty"`
	XAxis   Axis   `json:"xaxis"`
	YAxis   Axis   `json:"yaxis"`
	BarMode string `json:"barmode,omitempty"`
}

// Figure is a renderable chart value: traces plus layout. An empty Traces
// slice is the valid "no data" figure; the embedding UI decides how to
// present it.
type Figure struct {
	Traces []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

func emptyFigure(layout Layout) Figure {
	return Figure{Traces: []Trace{}, Layout: layout}
}
