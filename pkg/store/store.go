// Package store persists checkpoint results. Two backends exist: a
// filesystem store under the project directory, and a postgres store with
// goose-managed schema.
package store

import (
	"context"

	"github.com/vigildata/vigil/pkg/checkpoint"
)

type Store interface {
	// Save persists every validation of a checkpoint run.
	Save(ctx context.Context, res *checkpoint.Result) error
	Close() error
}

// Action adapts a Store into a checkpoint action.
type Action struct {
	Store Store
}

func (a *Action) Name() string { return "store_validation_result" }

func (a *Action) Run(ctx context.Context, res *checkpoint.Result) error {
	return a.Store.Save(ctx, res)
}
