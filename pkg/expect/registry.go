package expect

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vigildata/vigil/pkg/resources"
	"github.com/vigildata/vigil/pkg/source"
)

// Check is a compiled expectation, ready to run against an asset query.
type Check interface {
	Type() string
	Evaluate(ctx context.Context, src source.Source, assetQuery string) (*Result, error)
}

type builder func(kwargs map[string]any) (Check, error)

var registry = map[string]builder{
	"expect_table_row_count_to_be_between":    newRowCountBetween,
	"expect_table_row_count_to_equal":         newRowCountEqual,
	"expect_column_to_exist":                  newColumnExists,
	"expect_column_values_to_not_be_null":     newValuesNotNull,
	"expect_column_values_to_be_unique":       newValuesUnique,
	"expect_column_values_to_be_between":      newValuesBetween,
	"expect_column_values_to_be_in_set":       newValuesInSet,
	"expect_column_values_to_match_regex":     newValuesMatchRegex,
	"expect_column_mean_to_be_between":        newAggBuilder("avg"),
	"expect_column_min_to_be_between":         newAggBuilder("min"),
	"expect_column_max_to_be_between":         newAggBuilder("max"),
	"expect_column_sum_to_be_between":         newAggBuilder("sum"),
	"expect_column_values_to_not_match_regex": newValuesNotMatchRegex,
}

// Types returns the sorted names of all registered expectation types.
func Types() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Compile builds the check for a single declared expectation. Unknown types
// and malformed kwargs fail here, before any query is executed.
func Compile(e resources.Expectation) (Check, error) {
	b, ok := registry[e.Type]
	if !ok {
		return nil, fmt.Errorf("unknown expectation type %q", e.Type)
	}
	check, err := b(e.Kwargs)
	if err != nil {
		return nil, fmt.Errorf("expectation %s: %w", e.Type, err)
	}
	return check, nil
}

// CompileSuite compiles every expectation in a suite.
func CompileSuite(s *resources.Suite) ([]Check, error) {
	checks := make([]Check, 0, len(s.Expectations))
	for _, e := range s.Expectations {
		check, err := Compile(e)
		if err != nil {
			return nil, fmt.Errorf("suite %q: %w", s.Name, err)
		}
		checks = append(checks, check)
	}
	return checks, nil
}

// subselect wraps a rendered asset query so checks can aggregate over it.
// A trailing semicolon in the template would break the wrapping.
func subselect(assetQuery string) string {
	q := strings.TrimRight(strings.TrimSpace(assetQuery), ";")
	return "(\n" + q + "\n) AS asset"
}
