package query

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Params are the scheduler-injected parameters available to query templates.
type Params struct {
	StartDate time.Time
	EndDate   time.Time
	JobName   string
}

// placeholderRe matches {name} placeholders. Date-format strings passed to
// SQL functions (to_char, formatDateTime) use % verbs and are never touched;
// only brace placeholders are substitution syntax.
var placeholderRe = regexp.MustCompile(`\{([a-z_]+)\}`)

// Render substitutes the supported placeholders into a SQL template:
//
//	{start_date}  YYYY-MM-DD
//	{end_date}    YYYY-MM-DD
//	{start_ts}    RFC3339 at midnight UTC
//	{end_ts}      RFC3339 at midnight UTC
//	{job_name}    raw job name
//
// Any other {name} placeholder is an error, so a typo surfaces before the
// query reaches a database.
func Render(template string, p Params) (string, error) {
	values := map[string]string{
		"start_date": p.StartDate.Format("2006-01-02"),
		"end_date":   p.EndDate.Format("2006-01-02"),
		"start_ts":   p.StartDate.UTC().Format(time.RFC3339),
		"end_ts":     p.EndDate.UTC().Format(time.RFC3339),
		"job_name":   p.JobName,
	}

	var unknown []string
	rendered := placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := values[name]
		if !ok {
			unknown = append(unknown, name)
			return m
		}
		return v
	})
	if len(unknown) > 0 {
		return "", fmt.Errorf("unknown placeholder(s) in query template: %s", strings.Join(unknown, ", "))
	}
	return rendered, nil
}

// ParseDate parses a scheduler-provided date argument (YYYY-MM-DD).
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}
