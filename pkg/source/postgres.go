package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vigildata/vigil/pkg/resources"
)

type postgresSource struct {
	name string
	pool *pgxpool.Pool
	log  *slog.Logger
}

func openPostgres(ctx context.Context, log *slog.Logger, spec *resources.DataSource) (Source, error) {
	poolConfig, err := pgxpool.ParseConfig(spec.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}

	poolConfig.MaxConns = 4
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	log.Info("postgres source connected", "name", spec.Name, "database", poolConfig.ConnConfig.Database)

	return &postgresSource{name: spec.Name, pool: pool, log: log}, nil
}

func (s *postgresSource) Query(ctx context.Context, sql string) (*QueryResult, error) {
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	var resultRows []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
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

func (s *postgresSource) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *postgresSource) Dialect() Dialect { return DialectPostgres }
func (s *postgresSource) Name() string     { return s.name }

func (s *postgresSource) Close() error {
	s.pool.Close()
	return nil
}
