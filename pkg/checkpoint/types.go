// Package checkpoint runs resolved jobs against their data sources and fans
// the aggregated result out to actions (result store, data docs, webhook).
package checkpoint

import (
	"context"
	"time"

	"github.com/vigildata/vigil/pkg/expect"
)

// Statistics summarizes one validation.
type Statistics struct {
	EvaluatedExpectations    int     `json:"evaluated_expectations"`
	SuccessfulExpectations   int     `json:"successful_expectations"`
	UnsuccessfulExpectations int     `json:"unsuccessful_expectations"`
	SuccessPercent           float64 `json:"success_percent"`
}

// ValidationResult is the outcome of running one suite against one asset.
type ValidationResult struct {
	JobName       string          `json:"job_name"`
	AssetRef      string          `json:"asset_ref"`
	AssetName     string          `json:"asset_name"`
	DataSource    string          `json:"data_source"`
	SuiteName     string          `json:"suite_name"`
	RenderedQuery string          `json:"rendered_query"`
	Success       bool            `json:"success"`
	Results       []expect.Result `json:"results"`
	Statistics    Statistics      `json:"statistics"`
}

// Result is the outcome of one checkpoint run: every validation produced by
// the selected jobs, plus run identity for stores and docs.
type Result struct {
	Name        string             `json:"name"`
	RunID       string             `json:"run_id"`
	RunTime     time.Time          `json:"run_time"`
	Env         string             `json:"env"`
	StartDate   time.Time          `json:"start_date"`
	EndDate     time.Time          `json:"end_date"`
	Success     bool               `json:"success"`
	Validations []ValidationResult `json:"validations"`
}

// Statistics aggregates validation counts for the whole run.
func (r *Result) Stats() Statistics {
	var s Statistics
	for _, v := range r.Validations {
		s.EvaluatedExpectations += v.Statistics.EvaluatedExpectations
		s.SuccessfulExpectations += v.Statistics.SuccessfulExpectations
		s.UnsuccessfulExpectations += v.Statistics.UnsuccessfulExpectations
	}
	if s.EvaluatedExpectations > 0 {
		s.SuccessPercent = 100 * float64(s.SuccessfulExpectations) / float64(s.EvaluatedExpectations)
	}
	return s
}

// Action is a post-validation step. Action failures are operational, not
// data-quality failures: they are logged and do not change the run outcome.
type Action interface {
	Name() string
	Run(ctx context.Context, res *Result) error
}
