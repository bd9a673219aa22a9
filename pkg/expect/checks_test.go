package expect_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vigildata/vigil/pkg/expect"
	"github.com/vigildata/vigil/pkg/resources"
	"github.com/vigildata/vigil/pkg/source"
	"github.com/vigildata/vigil/pkg/source/sourcetest"
)

const assetQuery = "SELECT * FROM way4.doc"

func compile(t *testing.T, typ string, kwargs map[string]any) expect.Check {
	t.Helper()
	check, err := expect.Compile(resources.Expectation{Type: typ, Kwargs: kwargs})
	require.NoError(t, err)
	return check
}

func TestVigil_Expect_UnknownType(t *testing.T) {
	t.Parallel()
	_, err := expect.Compile(resources.Expectation{Type: "expect_the_unexpected", Kwargs: nil})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown expectation type")
}

func TestVigil_Expect_RowCountBetween(t *testing.T) {
	t.Parallel()
	fake := sourcetest.New("pg", source.DialectPostgres)
	fake.Script("count(*) AS total", sourcetest.Rows([]string{"total"}, []any{int64(42)}))

	check := compile(t, "expect_table_row_count_to_be_between", map[string]any{"min_value": 1, "max_value": 100})
	res, err := check.Evaluate(t.Context(), fake, assetQuery)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, 42, res.ObservedValue)

	tight := compile(t, "expect_table_row_count_to_be_between", map[string]any{"min_value": 100})
	res, err = tight.Evaluate(t.Context(), fake, assetQuery)
	require.NoError(t, err)
	require.False(t, res.Success)
}

func TestVigil_Expect_RowCountBetween_RequiresBound(t *testing.T) {
	t.Parallel()
	_, err := expect.Compile(resources.Expectation{
		Type:   "expect_table_row_count_to_be_between",
		Kwargs: map[string]any{},
	})
	require.Error(t, err)
}

func TestVigil_Expect_RowCountEqual(t *testing.T) {
	t.Parallel()
	fake := sourcetest.New("pg", source.DialectPostgres)
	fake.Script("count(*) AS total", sourcetest.Rows([]string{"total"}, []any{int64(7)}))

	check := compile(t, "expect_table_row_count_to_equal", map[string]any{"value": 7})
	res, err := check.Evaluate(t.Context(), fake, assetQuery)
	require.NoError(t, err)
	require.True(t, res.Success)
}

func TestVigil_Expect_ColumnExists(t *testing.T) {
	t.Parallel()
	fake := sourcetest.New("pg", source.DialectPostgres)
	fake.Script("LIMIT 0", &source.QueryResult{Columns: []string{"doc_id", "amount"}})

	check := compile(t, "expect_column_to_exist", map[string]any{"column": "doc_id"})
	res, err := check.Evaluate(t.Context(), fake, assetQuery)
	require.NoError(t, err)
	require.True(t, res.Success)

	missing := compile(t, "expect_column_to_exist", map[string]any{"column": "ghost"})
	res, err = missing.Evaluate(t.Context(), fake, assetQuery)
	require.NoError(t, err)
	require.False(t, res.Success)
}

func TestVigil_Expect_ValuesNotNull(t *testing.T) {
	t.Parallel()
	fake := sourcetest.New("pg", source.DialectPostgres)
	fake.Script("AS elements", sourcetest.Rows(
		[]string{"elements", "unexpected"}, []any{int64(100), int64(3)}))
	fake.Script("LIMIT 20", sourcetest.Rows([]string{"v"}, []any{nil}, []any{nil}, []any{nil}))

	check := compile(t, "expect_column_values_to_not_be_null", map[string]any{"column": "doc_id"})
	res, err := check.Evaluate(t.Context(), fake, assetQuery)
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Equal(t, 100, res.ElementCount)
	require.Equal(t, 3, res.UnexpectedCount)
	require.InDelta(t, 3.0, res.UnexpectedPercent, 0.001)
	require.Len(t, res.PartialUnexpectedList, 3)
}

func TestVigil_Expect_ValuesNotNull_Mostly(t *testing.T) {
	t.Parallel()
	fake := sourcetest.New("pg", source.DialectPostgres)
	fake.Script("AS elements", sourcetest.Rows(
		[]string{"elements", "unexpected"}, []any{int64(100), int64(3)}))
	fake.Script("LIMIT 20", sourcetest.Rows([]string{"v"}))

	// 97% non-null clears a 0.95 tolerance.
	check := compile(t, "expect_column_values_to_not_be_null",
		map[string]any{"column": "doc_id", "mostly": 0.95})
	res, err := check.Evaluate(t.Context(), fake, assetQuery)
	require.NoError(t, err)
	require.True(t, res.Success)
}

func TestVigil_Expect_EmptyTableIsVacuousSuccess(t *testing.T) {
	t.Parallel()
	fake := sourcetest.New("pg", source.DialectPostgres)
	fake.Script("AS elements", sourcetest.Rows(
		[]string{"elements", "unexpected"}, []any{int64(0), int64(0)}))

	check := compile(t, "expect_column_values_to_not_be_null", map[string]any{"column": "doc_id"})
	res, err := check.Evaluate(t.Context(), fake, assetQuery)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, 0, res.ElementCount)
}

func TestVigil_Expect_ValuesBetween_GeneratedSQL(t *testing.T) {
	t.Parallel()
	fake := sourcetest.New("pg", source.DialectPostgres)
	fake.Script("AS elements", sourcetest.Rows(
		[]string{"elements", "unexpected"}, []any{int64(10), int64(0)}))

	check := compile(t, "expect_column_values_to_be_between",
		map[string]any{"column": "amount", "min_value": 0, "max_value": 1000})
	_, err := check.Evaluate(t.Context(), fake, assetQuery)
	require.NoError(t, err)

	require.Len(t, fake.Queries, 1)
	sql := fake.Queries[0]
	require.Contains(t, sql, `"amount" IS NOT NULL`)
	require.Contains(t, sql, `("amount" < 0 OR "amount" > 1000)`)
	require.Contains(t, sql, assetQuery)
}

func TestVigil_Expect_ValuesInSet(t *testing.T) {
	t.Parallel()
	fake := sourcetest.New("pg", source.DialectPostgres)
	fake.Script("AS elements", sourcetest.Rows(
		[]string{"elements", "unexpected"}, []any{int64(50), int64(2)}))
	fake.Script("LIMIT 20", sourcetest.Rows([]string{"v"}, []any{"XX"}, []any{"YY"}))

	check := compile(t, "expect_column_values_to_be_in_set",
		map[string]any{"column": "status", "value_set": []any{"OPEN", "CLOSED", "O'NEIL"}})
	res, err := check.Evaluate(t.Context(), fake, assetQuery)
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Equal(t, []any{"XX", "YY"}, res.PartialUnexpectedList)

	// String literals are quoted and embedded quotes doubled.
	require.Contains(t, fake.Queries[0], `NOT IN ('OPEN', 'CLOSED', 'O''NEIL')`)
}

func TestVigil_Expect_MatchRegex_DialectSQL(t *testing.T) {
	t.Parallel()
	kwargs := map[string]any{"column": "code", "regex": "^[A-Z]{3}$"}

	pg := sourcetest.New("pg", source.DialectPostgres)
	pg.Script("AS elements", sourcetest.Rows(
		[]string{"elements", "unexpected"}, []any{int64(5), int64(0)}))
	check := compile(t, "expect_column_values_to_match_regex", kwargs)
	_, err := check.Evaluate(t.Context(), pg, assetQuery)
	require.NoError(t, err)
	require.Contains(t, pg.Queries[0], `"code" ~ '^[A-Z]{3}$'`)

	ch := sourcetest.New("ch", source.DialectClickHouse)
	ch.Script("AS elements", sourcetest.Rows(
		[]string{"elements", "unexpected"}, []any{uint64(5), uint64(0)}))
	check = compile(t, "expect_column_values_to_match_regex", kwargs)
	_, err = check.Evaluate(t.Context(), ch, assetQuery)
	require.NoError(t, err)
	require.Contains(t, ch.Queries[0], "match(`code`, '^[A-Z]{3}$')")
}

func TestVigil_Expect_ValuesUnique(t *testing.T) {
	t.Parallel()
	fake := sourcetest.New("pg", source.DialectPostgres)
	fake.Script("distinct_count", sourcetest.Rows(
		[]string{"elements", "distinct_count"}, []any{int64(100), int64(98)}))
	fake.Script("HAVING count(*) > 1", sourcetest.Rows([]string{"v"}, []any{"dup-1"}, []any{"dup-2"}))

	check := compile(t, "expect_column_values_to_be_unique", map[string]any{"column": "doc_id"})
	res, err := check.Evaluate(t.Context(), fake, assetQuery)
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Equal(t, 2, res.UnexpectedCount)
	require.Len(t, res.PartialUnexpectedList, 2)
}

func TestVigil_Expect_ColumnMeanBetween(t *testing.T) {
	t.Parallel()
	fake := sourcetest.New("pg", source.DialectPostgres)
	fake.Script("avg(", sourcetest.Rows([]string{"observed"}, []any{42.5}))

	check := compile(t, "expect_column_mean_to_be_between",
		map[string]any{"column": "amount", "min_value": 10, "max_value": 50})
	res, err := check.Evaluate(t.Context(), fake, assetQuery)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, 42.5, res.ObservedValue)
}

func TestVigil_Expect_ColumnMeanBetween_NullObserved(t *testing.T) {
	t.Parallel()
	fake := sourcetest.New("pg", source.DialectPostgres)
	fake.Script("avg(", sourcetest.Rows([]string{"observed"}, []any{nil}))

	check := compile(t, "expect_column_mean_to_be_between",
		map[string]any{"column": "amount", "min_value": 10})
	res, err := check.Evaluate(t.Context(), fake, assetQuery)
	require.NoError(t, err)
	require.False(t, res.Success)
}

func TestVigil_Expect_ColumnKwargRejectsInjection(t *testing.T) {
	t.Parallel()
	_, err := expect.Compile(resources.Expectation{
		Type:   "expect_column_values_to_not_be_null",
		Kwargs: map[string]any{"column": "doc_id; DROP TABLE docs"},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "identifier")
}

func TestVigil_Expect_QueryErrorPropagates(t *testing.T) {
	t.Parallel()
	fake := sourcetest.New("pg", source.DialectPostgres)
	fake.ScriptErr("count(*)", errors.New("relation does not exist"))

	check := compile(t, "expect_table_row_count_to_equal", map[string]any{"value": 1})
	_, err := check.Evaluate(t.Context(), fake, assetQuery)
	require.Error(t, err)
	require.Contains(t, err.Error(), "relation does not exist")
}

func TestVigil_Expect_CompileSuite(t *testing.T) {
	t.Parallel()
	suite := &resources.Suite{
		Name: "doc_suite",
		Expectations: []resources.Expectation{
			{Type: "expect_table_row_count_to_be_between", Kwargs: map[string]any{"min_value": 1}},
			{Type: "expect_column_values_to_not_be_null", Kwargs: map[string]any{"column": "doc_id"}},
		},
	}
	checks, err := expect.CompileSuite(suite)
	require.NoError(t, err)
	require.Len(t, checks, 2)

	suite.Expectations = append(suite.Expectations, resources.Expectation{Type: "bogus"})
	_, err = expect.CompileSuite(suite)
	require.Error(t, err)
	require.Contains(t, err.Error(), `suite "doc_suite"`)
}

func TestVigil_Expect_Types(t *testing.T) {
	t.Parallel()
	types := expect.Types()
	require.Contains(t, types, "expect_table_row_count_to_be_between")
	require.Contains(t, types, "expect_column_values_to_be_unique")
	require.GreaterOrEqual(t, len(types), 12)
}
