package source

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vigildata/vigil/pkg/resources"
)

// Dialect identifies the SQL dialect a source speaks. Expectation compilation
// uses it for identifier quoting and regex matching.
type Dialect string

const (
	DialectPostgres   Dialect = "postgres"
	DialectClickHouse Dialect = "clickhouse"
)

// QuoteIdent quotes a column identifier for the dialect.
func (d Dialect) QuoteIdent(name string) string {
	switch d {
	case DialectClickHouse:
		return "`" + name + "`"
	default:
		return `"` + name + `"`
	}
}

// RegexMatch returns a boolean SQL expression matching col against a regex
// literal.
func (d Dialect) RegexMatch(col, pattern string) string {
	switch d {
	case DialectClickHouse:
		return fmt.Sprintf("match(%s, '%s')", col, pattern)
	default:
		return fmt.Sprintf("%s ~ '%s'", col, pattern)
	}
}

// QueryResult holds a scanned result set as generic rows.
type QueryResult struct {
	Columns []string
	Rows    []map[string]any
	Count   int
}

// Source is a live connection to a declared data source.
type Source interface {
	// Query executes a raw SQL query and scans all rows.
	Query(ctx context.Context, sql string) (*QueryResult, error)
	Ping(ctx context.Context) error
	Dialect() Dialect
	Name() string
	Close() error
}

// Open connects to a declared data source, keyed on its kind.
func Open(ctx context.Context, log *slog.Logger, spec *resources.DataSource) (Source, error) {
	switch spec.Kind {
	case "postgres":
		return openPostgres(ctx, log, spec)
	case "clickhouse":
		return openClickHouse(ctx, log, spec)
	default:
		return nil, fmt.Errorf("unsupported data source kind %q", spec.Kind)
	}
}

// Pool opens sources lazily and caches them by name for the duration of a
// run, so multiple runs against the same source share one connection.
type Pool struct {
	log    *slog.Logger
	loader *resources.Loader
	open   map[string]Source
}

func NewPool(log *slog.Logger, loader *resources.Loader) *Pool {
	return &Pool{
		log:    log,
		loader: loader,
		open:   make(map[string]Source),
	}
}

// Get returns the open source with the given name, connecting on first use.
func (p *Pool) Get(ctx context.Context, name string) (Source, error) {
	if name == "" {
		return nil, fmt.Errorf("data source name is required")
	}
	if src, ok := p.open[name]; ok {
		return src, nil
	}

	spec, err := p.loader.LoadDataSource(name)
	if err != nil {
		return nil, err
	}
	src, err := Open(ctx, p.log, spec)
	if err != nil {
		return nil, err
	}
	p.open[name] = src
	return src, nil
}

// Close closes every open source.
func (p *Pool) Close() {
	for name, src := range p.open {
		if err := src.Close(); err != nil {
			p.log.Warn("failed to close data source", "name", name, "error", err)
		}
	}
	p.open = make(map[string]Source)
}
