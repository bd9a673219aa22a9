package source

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/vigildata/vigil/pkg/resources"
)

type clickhouseSource struct {
	name string
	conn driver.Conn
	log  *slog.Logger
}

func openClickHouse(ctx context.Context, log *slog.Logger, spec *resources.DataSource) (Source, error) {
	options, err := clickhouse.ParseDSN(spec.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse clickhouse DSN: %w", err)
	}
	if options.Settings == nil {
		options.Settings = clickhouse.Settings{}
	}
	options.Settings["max_execution_time"] = 60
	options.DialTimeout = 5 * time.Second

	// TLS for ClickHouse Cloud (port 9440)
	if spec.Secure {
		options.TLS = &tls.Config{}
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open clickhouse connection: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	log.Info("clickhouse source connected", "name", spec.Name, "secure", spec.Secure)

	return &clickhouseSource{name: spec.Name, conn: conn, log: log}, nil
}

func (s *clickhouseSource) Query(ctx context.Context, sql string) (*QueryResult, error) {
	rows, err := s.conn.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	columns := rows.Columns()
	columnTypes := rows.ColumnTypes()

	var resultRows []map[string]any
	for rows.Next() {
		valuePtrs := scanTargets(columnTypes)
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = dereference(valuePtrs[i])
		}
		resultRows = append(resultRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return &QueryResult{
		Columns: columns,
		Rows:    resultRows,
		Count:   len(resultRows),
	}, nil
}

// scanTargets allocates one scan destination per column from the driver's
// reported scan types, so arbitrary user queries can be scanned without a
// schema.
func scanTargets(columnTypes []driver.ColumnType) []any {
	valuePtrs := make([]any, len(columnTypes))
	for i, colType := range columnTypes {
		st := colType.ScanType()
		if st == nil {
			var v any
			valuePtrs[i] = &v
			continue
		}
		valuePtrs[i] = reflect.New(st).Interface()
	}
	return valuePtrs
}

// dereference unwraps the scan destination, flattening Nullable pointers to
// nil or their value.
func dereference(ptr any) any {
	v := reflect.ValueOf(ptr)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	return v.Interface()
}

func (s *clickhouseSource) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

func (s *clickhouseSource) Dialect() Dialect { return DialectClickHouse }
func (s *clickhouseSource) Name() string     { return s.name }

func (s *clickhouseSource) Close() error {
	return s.conn.Close()
}
