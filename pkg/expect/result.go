// Package expect compiles declarative expectations into SQL checks and
// evaluates them against a data source.
package expect

// Result is the outcome of evaluating one expectation against one asset
// query.
type Result struct {
	ExpectationType string         `json:"expectation_type"`
	Kwargs          map[string]any `json:"kwargs"`
	Success         bool           `json:"success"`

	// ObservedValue is what the check actually measured: a row count, an
	// aggregate, or an unexpected-value fraction.
	ObservedValue any `json:"observed_value,omitempty"`

	// Row-level checks report how many rows failed the condition.
	ElementCount          int     `json:"element_count,omitempty"`
	UnexpectedCount       int     `json:"unexpected_count,omitempty"`
	UnexpectedPercent     float64 `json:"unexpected_percent,omitempty"`
	PartialUnexpectedList []any   `json:"partial_unexpected_list,omitempty"`
}
