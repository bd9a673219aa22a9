package expect

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/vigildata/vigil/pkg/source"
)

const partialUnexpectedLimit = 20

// rowCountCheck implements the table row count expectations.
type rowCountCheck struct {
	typ    string
	kwargs map[string]any
	min    *float64
	max    *float64
	equal  *float64
}

func newRowCountBetween(kwargs map[string]any) (Check, error) {
	c := &rowCountCheck{typ: "expect_table_row_count_to_be_between", kwargs: kwargs}
	if v, ok, err := floatArg(kwargs, "min_value"); err != nil {
		return nil, err
	} else if ok {
		c.min = &v
	}
	if v, ok, err := floatArg(kwargs, "max_value"); err != nil {
		return nil, err
	} else if ok {
		c.max = &v
	}
	if c.min == nil && c.max == nil {
		return nil, fmt.Errorf("at least one of min_value, max_value is required")
	}
	return c, nil
}

func newRowCountEqual(kwargs map[string]any) (Check, error) {
	v, err := requiredFloatArg(kwargs, "value")
	if err != nil {
		return nil, err
	}
	return &rowCountCheck{typ: "expect_table_row_count_to_equal", kwargs: kwargs, equal: &v}, nil
}

func (c *rowCountCheck) Type() string { return c.typ }

func (c *rowCountCheck) Evaluate(ctx context.Context, src source.Source, assetQuery string) (*Result, error) {
	sql := fmt.Sprintf("SELECT count(*) AS total FROM %s", subselect(assetQuery))
	total, err := queryScalar(ctx, src, sql, "total")
	if err != nil {
		return nil, err
	}

	success := true
	if c.equal != nil {
		success = total == *c.equal
	} else {
		if c.min != nil && total < *c.min {
			success = false
		}
		if c.max != nil && total > *c.max {
			success = false
		}
	}

	return &Result{
		ExpectationType: c.typ,
		Kwargs:          c.kwargs,
		Success:         success,
		ObservedValue:   int(total),
	}, nil
}

// columnExistsCheck verifies the asset query exposes a column.
type columnExistsCheck struct {
	kwargs map[string]any
	column string
}

func newColumnExists(kwargs map[string]any) (Check, error) {
	col, err := columnArg(kwargs)
	if err != nil {
		return nil, err
	}
	return &columnExistsCheck{kwargs: kwargs, column: col}, nil
}

func (c *columnExistsCheck) Type() string { return "expect_column_to_exist" }

func (c *columnExistsCheck) Evaluate(ctx context.Context, src source.Source, assetQuery string) (*Result, error) {
	sql := fmt.Sprintf("SELECT * FROM %s LIMIT 0", subselect(assetQuery))
	res, err := src.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", c.Type(), err)
	}

	found := false
	for _, col := range res.Columns {
		if col == c.column {
			found = true
			break
		}
	}
	return &Result{
		ExpectationType: c.Type(),
		Kwargs:          c.kwargs,
		Success:         found,
		ObservedValue:   res.Columns,
	}, nil
}

// rowConditionCheck is the shared shape of row-level value expectations: a
// per-row failure condition counted against the non-null elements of a
// column, with a 'mostly' tolerance.
type rowConditionCheck struct {
	typ    string
	kwargs map[string]any
	column string
	mostly float64
	// failCond renders the per-row failure predicate for the quoted column.
	failCond func(d source.Dialect, col string) string
	// countNulls folds NULL elements into the element and failure counts
	// (used by not_null, where NULL itself is the failure).
	countNulls bool
}

func newValuesNotNull(kwargs map[string]any) (Check, error) {
	col, err := columnArg(kwargs)
	if err != nil {
		return nil, err
	}
	mostly, err := mostlyArg(kwargs)
	if err != nil {
		return nil, err
	}
	return &rowConditionCheck{
		typ:        "expect_column_values_to_not_be_null",
		kwargs:     kwargs,
		column:     col,
		mostly:     mostly,
		countNulls: true,
		failCond: func(d source.Dialect, col string) string {
			return fmt.Sprintf("%s IS NULL", col)
		},
	}, nil
}

func newValuesBetween(kwargs map[string]any) (Check, error) {
	col, err := columnArg(kwargs)
	if err != nil {
		return nil, err
	}
	mostly, err := mostlyArg(kwargs)
	if err != nil {
		return nil, err
	}
	minV, hasMin, err := floatArg(kwargs, "min_value")
	if err != nil {
		return nil, err
	}
	maxV, hasMax, err := floatArg(kwargs, "max_value")
	if err != nil {
		return nil, err
	}
	if !hasMin && !hasMax {
		return nil, fmt.Errorf("at least one of min_value, max_value is required")
	}
	return &rowConditionCheck{
		typ:    "expect_column_values_to_be_between",
		kwargs: kwargs,
		column: col,
		mostly: mostly,
		failCond: func(d source.Dialect, col string) string {
			switch {
			case hasMin && hasMax:
				return fmt.Sprintf("(%s < %v OR %s > %v)", col, minV, col, maxV)
			case hasMin:
				return fmt.Sprintf("%s < %v", col, minV)
			default:
				return fmt.Sprintf("%s > %v", col, maxV)
			}
		},
	}, nil
}

func newValuesInSet(kwargs map[string]any) (Check, error) {
	col, err := columnArg(kwargs)
	if err != nil {
		return nil, err
	}
	mostly, err := mostlyArg(kwargs)
	if err != nil {
		return nil, err
	}
	set, err := valueSetArg(kwargs)
	if err != nil {
		return nil, err
	}
	literals := make([]string, len(set))
	for i, v := range set {
		literals[i] = sqlLiteral(v)
	}
	return &rowConditionCheck{
		typ:    "expect_column_values_to_be_in_set",
		kwargs: kwargs,
		column: col,
		mostly: mostly,
		failCond: func(d source.Dialect, col string) string {
			return fmt.Sprintf("%s NOT IN (%s)", col, strings.Join(literals, ", "))
		},
	}, nil
}

func newValuesMatchRegex(kwargs map[string]any) (Check, error) {
	return newRegexCheck(kwargs, "expect_column_values_to_match_regex", false)
}

func newValuesNotMatchRegex(kwargs map[string]any) (Check, error) {
	return newRegexCheck(kwargs, "expect_column_values_to_not_match_regex", true)
}

func newRegexCheck(kwargs map[string]any, typ string, negate bool) (Check, error) {
	col, err := columnArg(kwargs)
	if err != nil {
		return nil, err
	}
	mostly, err := mostlyArg(kwargs)
	if err != nil {
		return nil, err
	}
	pattern, err := stringArg(kwargs, "regex")
	if err != nil {
		return nil, err
	}
	pattern = escapeSingleQuotes(pattern)
	return &rowConditionCheck{
		typ:    typ,
		kwargs: kwargs,
		column: col,
		mostly: mostly,
		failCond: func(d source.Dialect, col string) string {
			match := d.RegexMatch(col, pattern)
			if negate {
				return match
			}
			return fmt.Sprintf("NOT %s", match)
		},
	}, nil
}

func (c *rowConditionCheck) Type() string { return c.typ }

func (c *rowConditionCheck) Evaluate(ctx context.Context, src source.Source, assetQuery string) (*Result, error) {
	col := src.Dialect().QuoteIdent(c.column)
	sub := subselect(assetQuery)

	fail := c.failCond(src.Dialect(), col)
	if !c.countNulls {
		// Value conditions only apply to non-null elements.
		fail = fmt.Sprintf("%s IS NOT NULL AND %s", col, fail)
	}

	elementsExpr := fmt.Sprintf("count(%s)", col)
	if c.countNulls {
		elementsExpr = "count(*)"
	}

	sql := fmt.Sprintf(
		"SELECT %s AS elements, count(CASE WHEN %s THEN 1 END) AS unexpected FROM %s",
		elementsExpr, fail, sub,
	)
	res, err := src.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", c.typ, err)
	}
	elements, unexpected, err := scanCounts(res, "elements", "unexpected")
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", c.typ, err)
	}

	result := buildRowResult(c.typ, c.kwargs, elements, unexpected, c.mostly)
	if unexpected > 0 {
		listSQL := fmt.Sprintf(
			"SELECT %s AS v FROM %s WHERE %s LIMIT %d",
			col, sub, fail, partialUnexpectedLimit,
		)
		if listRes, err := src.Query(ctx, listSQL); err == nil {
			for _, row := range listRes.Rows {
				result.PartialUnexpectedList = append(result.PartialUnexpectedList, row["v"])
			}
		}
	}
	return result, nil
}

// uniqueCheck counts duplicated elements via a distinct comparison instead of
// a per-row predicate.
type uniqueCheck struct {
	kwargs map[string]any
	column string
	mostly float64
}

func newValuesUnique(kwargs map[string]any) (Check, error) {
	col, err := columnArg(kwargs)
	if err != nil {
		return nil, err
	}
	mostly, err := mostlyArg(kwargs)
	if err != nil {
		return nil, err
	}
	return &uniqueCheck{kwargs: kwargs, column: col, mostly: mostly}, nil
}

func (c *uniqueCheck) Type() string { return "expect_column_values_to_be_unique" }

func (c *uniqueCheck) Evaluate(ctx context.Context, src source.Source, assetQuery string) (*Result, error) {
	col := src.Dialect().QuoteIdent(c.column)
	sub := subselect(assetQuery)

	sql := fmt.Sprintf(
		"SELECT count(%s) AS elements, count(DISTINCT %s) AS distinct_count FROM %s",
		col, col, sub,
	)
	res, err := src.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", c.Type(), err)
	}
	elements, distinct, err := scanCounts(res, "elements", "distinct_count")
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", c.Type(), err)
	}
	unexpected := elements - distinct

	result := buildRowResult(c.Type(), c.kwargs, elements, unexpected, c.mostly)
	if unexpected > 0 {
		listSQL := fmt.Sprintf(
			"SELECT %s AS v FROM %s WHERE %s IS NOT NULL GROUP BY %s HAVING count(*) > 1 LIMIT %d",
			col, sub, col, col, partialUnexpectedLimit,
		)
		if listRes, err := src.Query(ctx, listSQL); err == nil {
			for _, row := range listRes.Rows {
				result.PartialUnexpectedList = append(result.PartialUnexpectedList, row["v"])
			}
		}
	}
	return result, nil
}

// aggCheck implements the column aggregate expectations (mean/min/max/sum
// between bounds).
type aggCheck struct {
	typ    string
	kwargs map[string]any
	column string
	agg    string
	min    *float64
	max    *float64
}

func newAggBuilder(agg string) builder {
	typ := map[string]string{
		"avg": "expect_column_mean_to_be_between",
		"min": "expect_column_min_to_be_between",
		"max": "expect_column_max_to_be_between",
		"sum": "expect_column_sum_to_be_between",
	}[agg]

	return func(kwargs map[string]any) (Check, error) {
		col, err := columnArg(kwargs)
		if err != nil {
			return nil, err
		}
		c := &aggCheck{typ: typ, kwargs: kwargs, column: col, agg: agg}
		if v, ok, err := floatArg(kwargs, "min_value"); err != nil {
			return nil, err
		} else if ok {
			c.min = &v
		}
		if v, ok, err := floatArg(kwargs, "max_value"); err != nil {
			return nil, err
		} else if ok {
			c.max = &v
		}
		if c.min == nil && c.max == nil {
			return nil, fmt.Errorf("at least one of min_value, max_value is required")
		}
		return c, nil
	}
}

func (c *aggCheck) Type() string { return c.typ }

func (c *aggCheck) Evaluate(ctx context.Context, src source.Source, assetQuery string) (*Result, error) {
	col := src.Dialect().QuoteIdent(c.column)
	sql := fmt.Sprintf("SELECT %s(%s) AS observed FROM %s", c.agg, col, subselect(assetQuery))

	res, err := src.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", c.typ, err)
	}
	if res.Count == 0 || res.Rows[0]["observed"] == nil {
		// Aggregate over zero rows has no observed value to compare.
		return &Result{ExpectationType: c.typ, Kwargs: c.kwargs, Success: false}, nil
	}
	observed, ok := toFloat(res.Rows[0]["observed"])
	if !ok {
		return nil, fmt.Errorf("check %s: non-numeric observed value %v", c.typ, res.Rows[0]["observed"])
	}

	success := true
	if c.min != nil && observed < *c.min {
		success = false
	}
	if c.max != nil && observed > *c.max {
		success = false
	}
	return &Result{
		ExpectationType: c.typ,
		Kwargs:          c.kwargs,
		Success:         success,
		ObservedValue:   observed,
	}, nil
}

// buildRowResult applies the 'mostly' tolerance to element/unexpected counts.
// Zero elements is a vacuous success.
func buildRowResult(typ string, kwargs map[string]any, elements, unexpected int, mostly float64) *Result {
	var pct float64
	success := true
	if elements > 0 {
		pct = 100 * float64(unexpected) / float64(elements)
		success = (1 - float64(unexpected)/float64(elements)) >= mostly
	}
	return &Result{
		ExpectationType:   typ,
		Kwargs:            kwargs,
		Success:           success,
		ObservedValue:     fmt.Sprintf("%.2f%% unexpected", pct),
		ElementCount:      elements,
		UnexpectedCount:   unexpected,
		UnexpectedPercent: math.Round(pct*100) / 100,
	}
}

func queryScalar(ctx context.Context, src source.Source, sql, col string) (float64, error) {
	res, err := src.Query(ctx, sql)
	if err != nil {
		return 0, fmt.Errorf("failed to query %s: %w", col, err)
	}
	if res.Count == 0 {
		return 0, fmt.Errorf("query for %s returned no rows", col)
	}
	v, ok := toFloat(res.Rows[0][col])
	if !ok {
		return 0, fmt.Errorf("non-numeric %s value %v", col, res.Rows[0][col])
	}
	return v, nil
}

func scanCounts(res *source.QueryResult, aCol, bCol string) (int, int, error) {
	if res.Count == 0 {
		return 0, 0, fmt.Errorf("count query returned no rows")
	}
	a, ok := toFloat(res.Rows[0][aCol])
	if !ok {
		return 0, 0, fmt.Errorf("non-numeric %s value %v", aCol, res.Rows[0][aCol])
	}
	b, ok := toFloat(res.Rows[0][bCol])
	if !ok {
		return 0, 0, fmt.Errorf("non-numeric %s value %v", bCol, res.Rows[0][bCol])
	}
	return int(a), int(b), nil
}
