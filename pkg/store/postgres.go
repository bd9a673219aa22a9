package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver with database/sql
	"github.com/pressly/goose/v3"

	"github.com/vigildata/vigil/pkg/checkpoint"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// PostgresStore persists validation results into a vigil_validations table.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewPostgresStore(ctx context.Context, log *slog.Logger, dsn string) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}
	poolConfig.MaxConns = 4
	poolConfig.MaxConnLifetime = time.Hour

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

	if err := runMigrations(dsn); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("postgres result store ready")
	return &PostgresStore{pool: pool, log: log}, nil
}

func runMigrations(dsn string) error {
	goose.SetBaseFS(embedMigrations)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return err
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, res *checkpoint.Result) error {
	for _, v := range res.Validations {
		payload, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal validation: %w", err)
		}
		_, err = s.pool.Exec(ctx, `
			INSERT INTO vigil_validations
				(run_id, run_time, env, checkpoint_name, job_name, asset_name, suite_name, success, result)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, res.RunID, res.RunTime, res.Env, res.Name, v.JobName, v.AssetName, v.SuiteName, v.Success, payload)
		if err != nil {
			return fmt.Errorf("failed to insert validation: %w", err)
		}
	}
	s.log.Info("validation results stored", "run_id", res.RunID, "validations", len(res.Validations))
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
