// Package sourcetest provides a scripted in-memory source for unit tests.
package sourcetest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vigildata/vigil/pkg/source"
)

// Fake is a Source whose query results are scripted by the test. Queries are
// matched by substring so tests can key on the discriminating fragment
// instead of the full generated SQL.
type Fake struct {
	SourceName  string
	SourceKind  source.Dialect
	Handler     func(sql string) (*source.QueryResult, error)
	PingErr     error
	mu          sync.Mutex
	results     []scripted
	Queries     []string
	CloseCalled bool
}

type scripted struct {
	match  string
	result *source.QueryResult
	err    error
}

func New(name string, dialect source.Dialect) *Fake {
	return &Fake{SourceName: name, SourceKind: dialect}
}

// Script registers a result for any query containing match.
func (f *Fake) Script(match string, result *source.QueryResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, scripted{match: match, result: result})
}

// ScriptErr registers an error for any query containing match.
func (f *Fake) ScriptErr(match string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, scripted{match: match, err: err})
}

// Rows is a convenience constructor for a single-row result.
func Rows(cols []string, rows ...[]any) *source.QueryResult {
	out := &source.QueryResult{Columns: cols}
	for _, r := range rows {
		m := make(map[string]any, len(cols))
		for i, c := range cols {
			m[c] = r[i]
		}
		out.Rows = append(out.Rows, m)
	}
	out.Count = len(out.Rows)
	return out
}

func (f *Fake) Query(ctx context.Context, sql string) (*source.QueryResult, error) {
	f.mu.Lock()
	f.Queries = append(f.Queries, sql)
	f.mu.Unlock()

	if f.Handler != nil {
		return f.Handler(sql)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.results {
		if strings.Contains(sql, s.match) {
			if s.err != nil {
				return nil, s.err
			}
			return s.result, nil
		}
	}
	return nil, fmt.Errorf("sourcetest: no scripted result for query: %s", sql)
}

func (f *Fake) Ping(ctx context.Context) error { return f.PingErr }

func (f *Fake) Dialect() source.Dialect {
	if f.SourceKind == "" {
		return source.DialectPostgres
	}
	return f.SourceKind
}

func (f *Fake) Name() string { return f.SourceName }

func (f *Fake) Close() error {
	f.CloseCalled = true
	return nil
}
