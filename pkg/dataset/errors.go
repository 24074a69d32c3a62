package dataset

import "fmt"

// LoadError indicates that a source artifact exists but could not be parsed
// as tabular text. It is returned from Load and LoadFile and is expected to
// be surfaced to the user by the embedding layer rather than recovered from.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("load dataset: %v", e.Err)
	}
	return fmt.Sprintf("load dataset %q: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// MetricNotFoundError indicates an operation was asked to use a column that
// is not present in the dataset, in a context where absence is a caller
// mistake rather than a degraded-data condition.
type MetricNotFoundError struct {
	Metric string
}

func (e *MetricNotFoundError) Error() string {
	return fmt.Sprintf("metric %q not found in dataset", e.Metric)
}
