package checkpoint

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/vigildata/vigil/pkg/expect"
	"github.com/vigildata/vigil/pkg/metrics"
	"github.com/vigildata/vigil/pkg/query"
	"github.com/vigildata/vigil/pkg/resources"
	"github.com/vigildata/vigil/pkg/source"
)

// Sources resolves data source names into live connections. *source.Pool
// satisfies it.
type Sources interface {
	Get(ctx context.Context, name string) (source.Source, error)
}

type Config struct {
	Logger  *slog.Logger
	Clock   clockwork.Clock
	Sources Sources
	Params  query.Params
	Env     string
	Actions []Action
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if cfg.Sources == nil {
		return fmt.Errorf("sources are required")
	}
	return nil
}

// Runner executes checkpoints: jobs run sequentially, one validation per
// (asset, suite) binding.
type Runner struct {
	log     *slog.Logger
	clock   clockwork.Clock
	sources Sources
	params  query.Params
	env     string
	actions []Action
}

func New(cfg Config) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &Runner{
		log:     cfg.Logger,
		clock:   cfg.Clock,
		sources: cfg.Sources,
		params:  cfg.Params,
		env:     cfg.Env,
		actions: cfg.Actions,
	}, nil
}

// Run validates every run of the given jobs and then executes the action
// list. The returned result is non-nil whenever validation itself completed,
// even if every expectation failed.
func (r *Runner) Run(ctx context.Context, name string, jobs []*resources.Job) (*Result, error) {
	started := r.clock.Now().UTC()
	result := &Result{
		Name:      name,
		RunID:     fmt.Sprintf("%s-%s", started.Format("20060102T150405Z"), uuid.NewString()[:8]),
		RunTime:   started,
		Env:       r.env,
		StartDate: r.params.StartDate,
		EndDate:   r.params.EndDate,
		Success:   true,
	}

	r.logJobsToRun(jobs)

	for _, job := range jobs {
		for _, run := range job.Runs {
			checks, err := expect.CompileSuite(&run.Suite)
			if err != nil {
				return nil, err
			}
			for _, asset := range run.Assets {
				validation, err := r.validate(ctx, job, asset, run.Suite, checks)
				if err != nil {
					return nil, fmt.Errorf("job %q asset %q: %w", job.Name, asset.Ref, err)
				}
				if !validation.Success {
					result.Success = false
				}
				result.Validations = append(result.Validations, *validation)

				outcome := "success"
				if !validation.Success {
					outcome = "failure"
				}
				metrics.ValidationsTotal.WithLabelValues(run.Suite.Name, outcome).Inc()
			}
		}
	}

	outcome := "success"
	if !result.Success {
		outcome = "failure"
	}
	metrics.RunsTotal.WithLabelValues(name, outcome).Inc()
	metrics.RunDuration.WithLabelValues(name).Observe(r.clock.Since(started).Seconds())

	r.runActions(ctx, result)

	stats := result.Stats()
	r.log.Info("checkpoint finished",
		"name", name,
		"run_id", result.RunID,
		"success", result.Success,
		"validations", len(result.Validations),
		"expectations", stats.EvaluatedExpectations,
		"failed_expectations", stats.UnsuccessfulExpectations,
	)
	return result, nil
}

// validate renders one asset query and evaluates the suite's checks against
// it, sequentially.
func (r *Runner) validate(ctx context.Context, job *resources.Job, asset resources.Asset, suite resources.Suite, checks []expect.Check) (*ValidationResult, error) {
	r.params.JobName = job.Name
	rendered, err := query.Render(asset.Query, r.params)
	if err != nil {
		return nil, err
	}

	src, err := r.sources.Get(ctx, asset.DataSource)
	if err != nil {
		return nil, err
	}

	r.log.Debug("validating asset", "asset", asset.Name, "suite", suite.Name, "data_source", asset.DataSource)

	validation := &ValidationResult{
		JobName:       job.Name,
		AssetRef:      asset.Ref,
		AssetName:     asset.Name,
		DataSource:    asset.DataSource,
		SuiteName:     suite.Name,
		RenderedQuery: rendered,
		Success:       true,
	}

	for _, check := range checks {
		res, err := check.Evaluate(ctx, src, rendered)
		if err != nil {
			return nil, err
		}
		validation.Results = append(validation.Results, *res)
		validation.Statistics.EvaluatedExpectations++
		if res.Success {
			validation.Statistics.SuccessfulExpectations++
		} else {
			validation.Statistics.UnsuccessfulExpectations++
			validation.Success = false
			metrics.ExpectationFailuresTotal.WithLabelValues(res.ExpectationType).Inc()
			r.log.Warn("expectation failed",
				"asset", asset.Name,
				"suite", suite.Name,
				"expectation_type", res.ExpectationType,
				"observed", res.ObservedValue,
			)
		}
	}
	if n := validation.Statistics.EvaluatedExpectations; n > 0 {
		validation.Statistics.SuccessPercent = 100 * float64(validation.Statistics.SuccessfulExpectations) / float64(n)
	}
	return validation, nil
}

func (r *Runner) runActions(ctx context.Context, result *Result) {
	for _, action := range r.actions {
		if err := action.Run(ctx, result); err != nil {
			r.log.Error("checkpoint action failed", "action", action.Name(), "error", err)
		} else {
			r.log.Debug("checkpoint action complete", "action", action.Name())
		}
	}
}

func (r *Runner) logJobsToRun(jobs []*resources.Job) {
	names := make([]string, len(jobs))
	for i, job := range jobs {
		names[i] = job.Name
	}
	r.log.Info("jobs to be run", "jobs", strings.Join(names, ", "))
}
