package expect

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// identRe limits column kwargs to plain identifiers. Queries are rendered
// into generated SQL, so anything fancier is rejected up front.
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func columnArg(kwargs map[string]any) (string, error) {
	v, ok := kwargs["column"]
	if !ok {
		return "", fmt.Errorf("kwarg 'column' is required")
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("kwarg 'column' must be a non-empty string")
	}
	if !identRe.MatchString(s) {
		return "", fmt.Errorf("kwarg 'column' %q is not a valid identifier", s)
	}
	return s, nil
}

// floatArg reads an optional numeric kwarg. YAML hands numbers over as int
// or float64 depending on how they were written.
func floatArg(kwargs map[string]any, key string) (float64, bool, error) {
	v, ok := kwargs[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, false, fmt.Errorf("kwarg %q must be numeric, got %T", key, v)
	}
	return f, true, nil
}

func requiredFloatArg(kwargs map[string]any, key string) (float64, error) {
	f, ok, err := floatArg(kwargs, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("kwarg %q is required", key)
	}
	return f, nil
}

// mostlyArg reads the optional 'mostly' kwarg: the fraction of rows that must
// satisfy a row-level expectation. Defaults to 1 (every row).
func mostlyArg(kwargs map[string]any) (float64, error) {
	m, ok, err := floatArg(kwargs, "mostly")
	if err != nil {
		return 0, err
	}
	if !ok {
		return 1, nil
	}
	if m < 0 || m > 1 {
		return 0, fmt.Errorf("kwarg 'mostly' must be between 0 and 1, got %v", m)
	}
	return m, nil
}

func stringArg(kwargs map[string]any, key string) (string, error) {
	v, ok := kwargs[key]
	if !ok {
		return "", fmt.Errorf("kwarg %q is required", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("kwarg %q must be a non-empty string", key)
	}
	return s, nil
}

func valueSetArg(kwargs map[string]any) ([]any, error) {
	v, ok := kwargs["value_set"]
	if !ok {
		return nil, fmt.Errorf("kwarg 'value_set' is required")
	}
	set, ok := v.([]any)
	if !ok || len(set) == 0 {
		return nil, fmt.Errorf("kwarg 'value_set' must be a non-empty list")
	}
	return set, nil
}

// toFloat coerces the numeric types YAML parsing and row scanning produce.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		// Drivers report numerics as driver-specific types; fall back to
		// their string form.
		f, err := strconv.ParseFloat(strings.TrimSpace(fmt.Sprint(v)), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
}

// sqlLiteral renders a value-set element as a SQL literal. Strings have
// single quotes doubled.
func sqlLiteral(v any) string {
	switch s := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	case nil:
		return "NULL"
	default:
		return fmt.Sprint(v)
	}
}

func escapeSingleQuotes(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
