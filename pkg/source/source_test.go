package source

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVigil_Source_DialectQuoting(t *testing.T) {
	t.Parallel()
	require.Equal(t, `"amount"`, DialectPostgres.QuoteIdent("amount"))
	require.Equal(t, "`amount`", DialectClickHouse.QuoteIdent("amount"))
}

func TestVigil_Source_DialectRegexMatch(t *testing.T) {
	t.Parallel()
	require.Equal(t, `"code" ~ '^A'`, DialectPostgres.RegexMatch(`"code"`, "^A"))
	require.Equal(t, "match(`code`, '^A')", DialectClickHouse.RegexMatch("`code`", "^A"))
}
