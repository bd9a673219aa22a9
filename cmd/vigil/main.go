package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/vigildata/vigil/pkg/checkpoint"
	"github.com/vigildata/vigil/pkg/config"
	"github.com/vigildata/vigil/pkg/docs"
	"github.com/vigildata/vigil/pkg/logger"
	"github.com/vigildata/vigil/pkg/metrics"
	"github.com/vigildata/vigil/pkg/notify"
	"github.com/vigildata/vigil/pkg/query"
	"github.com/vigildata/vigil/pkg/resources"
	"github.com/vigildata/vigil/pkg/source"
	"github.com/vigildata/vigil/pkg/store"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// errValidationFailed marks a run where expectations were not met, so the
// scheduler sees a failed task.
var errValidationFailed = errors.New("expectations are not met")

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")

	// Scheduler-injected parameters
	startDateFlag := flag.String("start-date", "", "validation window start (YYYY-MM-DD, default: yesterday)")
	endDateFlag := flag.String("end-date", "", "validation window end (YYYY-MM-DD, default: today)")
	jobNameFlag := flag.String("job-name", "", "job to run, referenced as sub.name")
	jobTagsFlag := flag.String("job-tags", "", "dash-separated tags; runs every job carrying all of them")
	webhookFlag := flag.String("webhook", "", "chat webhook URL (or set VIGIL_TEAMS_WEBHOOK / VIGIL_SLACK_WEBHOOK env var)")
	webhookKindFlag := flag.String("webhook-kind", "", "webhook format: teams or slack (default: teams)")
	notifyOnFlag := flag.String("notify-on", "failure", "when to notify: all, failure or success")

	// Project configuration
	projectDirFlag := flag.String("project-dir", "", "project directory holding resources/ (or set VIGIL_PROJECT_DIR env var)")
	envFlag := flag.String("env", "", "environment name for reporting (or set VIGIL_ENV env var)")
	resultsDirFlag := flag.String("results-dir", "", "filesystem result store directory, relative to project dir")
	resultsDSNFlag := flag.String("results-dsn", "", "postgres result store DSN (or set VIGIL_RESULTS_DSN env var)")

	// Commands
	listJobsFlag := flag.Bool("list-jobs", false, "list all declared jobs and exit")
	validateConfigFlag := flag.Bool("validate-config", false, "load every job and ping every data source, then exit")
	docsOnlyFlag := flag.Bool("docs", false, "rebuild data docs from stored results and exit")
	serveDocsFlag := flag.String("serve-docs", "", "serve the generated docs site on this address and block")
	metricsAddrFlag := flag.String("metrics-addr", "", "expose /metrics on this address for the duration of the run")

	flag.Parse()

	log := logger.New(*verboseFlag)
	metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)

	cfg := &config.Config{
		Env:         *envFlag,
		ProjectDir:  *projectDirFlag,
		Webhook:     *webhookFlag,
		WebhookKind: *webhookKindFlag,
		NotifyOn:    config.NotifyOn(*notifyOnFlag),
		ResultsDir:  *resultsDirFlag,
		ResultsDSN:  *resultsDSNFlag,
	}
	if *webhookFlag != "" && *webhookKindFlag == "" {
		cfg.WebhookKind = "teams"
	}
	if *resultsDSNFlag != "" {
		cfg.ResultStore = config.ResultStorePostgres
	}
	if err := config.LoadFromEnv(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader := resources.NewLoader(cfg.ResourcesDir())

	switch {
	case *listJobsFlag:
		return listJobs(loader)
	case *validateConfigFlag:
		return validateConfig(ctx, log, loader, cfg)
	case *docsOnlyFlag:
		return rebuildDocs(log, cfg)
	case *serveDocsFlag != "":
		return docs.Serve(ctx, log, *serveDocsFlag, cfg.DocsDir())
	}

	params, err := parseWindow(*startDateFlag, *endDateFlag)
	if err != nil {
		return err
	}

	log.Info("starting validation run",
		"job_name", *jobNameFlag,
		"job_tags", *jobTagsFlag,
		"start_date", params.StartDate.Format("2006-01-02"),
		"end_date", params.EndDate.Format("2006-01-02"),
		"env", cfg.Env,
	)

	// Resolve the jobs to run. The checkpoint is named after whichever
	// selector was used.
	var jobs []*resources.Job
	var checkpointName string
	switch {
	case *jobNameFlag != "":
		job, err := loader.SelectJobByName(*jobNameFlag)
		if err != nil {
			return err
		}
		jobs = []*resources.Job{job}
		checkpointName = *jobNameFlag
	case *jobTagsFlag != "":
		tags := strings.Split(*jobTagsFlag, "-")
		jobs, err = loader.SelectJobsByTags(tags)
		if err != nil {
			return err
		}
		checkpointName = *jobTagsFlag
	default:
		return errors.New("no job name or tags provided")
	}

	pool := source.NewPool(log, loader)
	defer pool.Close()

	actions, closeActions, err := buildActions(ctx, log, cfg)
	if err != nil {
		return err
	}
	defer closeActions()

	runner, err := checkpoint.New(checkpoint.Config{
		Logger:  log,
		Sources: pool,
		Params:  params,
		Env:     cfg.Env,
		Actions: actions,
	})
	if err != nil {
		return err
	}

	// Optionally expose metrics while the run is in flight.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)
	if *metricsAddrFlag != "" {
		g.Go(func() error {
			return docs.Serve(gctx, log, *metricsAddrFlag, cfg.DocsDir())
		})
	}

	result, runErr := runner.Run(ctx, checkpointName, jobs)
	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("metrics listener error", "error", err)
	}
	if runErr != nil {
		return runErr
	}
	if !result.Success {
		return errValidationFailed
	}
	return nil
}

// parseWindow resolves the validation window, defaulting to the last full
// day when the scheduler passes nothing.
func parseWindow(startDate, endDate string) (query.Params, error) {
	var p query.Params
	var err error

	if endDate != "" {
		p.EndDate, err = query.ParseDate(endDate)
		if err != nil {
			return p, err
		}
	} else {
		p.EndDate = time.Now().UTC().Truncate(24 * time.Hour)
	}

	if startDate != "" {
		p.StartDate, err = query.ParseDate(startDate)
		if err != nil {
			return p, err
		}
	} else {
		p.StartDate = p.EndDate.AddDate(0, 0, -1)
	}

	if p.StartDate.After(p.EndDate) {
		return p, fmt.Errorf("start date %s is after end date %s",
			p.StartDate.Format("2006-01-02"), p.EndDate.Format("2006-01-02"))
	}
	return p, nil
}

// buildActions assembles the post-validation action list in execution order:
// store results, update data docs, notify webhook. The returned closer shuts
// down the result store.
func buildActions(ctx context.Context, log *slog.Logger, cfg *config.Config) ([]checkpoint.Action, func(), error) {
	var actions []checkpoint.Action

	var resultStore store.Store
	var history func() ([]*checkpoint.Result, error)
	switch cfg.ResultStore {
	case config.ResultStorePostgres:
		pgStore, err := store.NewPostgresStore(ctx, log, cfg.ResultsDSN)
		if err != nil {
			return nil, nil, err
		}
		resultStore = pgStore
	default:
		fsStore := store.NewFilesystemStore(log, cfg.ResultsPath())
		resultStore = fsStore
		history = fsStore.LoadAll
	}
	actions = append(actions, &store.Action{Store: resultStore})

	builder, err := docs.NewBuilder(log, cfg.DocsDir(), docsSiteName(cfg))
	if err != nil {
		resultStore.Close()
		return nil, nil, err
	}
	actions = append(actions, &docs.Action{Builder: builder, History: history})

	if cfg.Webhook != "" {
		notifier, err := notify.New(cfg.WebhookKind, cfg.Webhook)
		if err != nil {
			resultStore.Close()
			return nil, nil, err
		}
		actions = append(actions, &notify.Action{Notifier: notifier, On: cfg.NotifyOn})
	} else {
		log.Warn("no webhook configured, skipping notification action")
	}

	closer := func() {
		if err := resultStore.Close(); err != nil {
			log.Warn("failed to close result store", "error", err)
		}
	}
	return actions, closer, nil
}

func docsSiteName(cfg *config.Config) string {
	if cfg.DocsSiteName != "" {
		return cfg.DocsSiteName
	}
	return fmt.Sprintf("Data Docs (%s)", cfg.Env)
}

func listJobs(loader *resources.Loader) error {
	jobs, err := loader.ListJobs()
	if err != nil {
		return err
	}
	for _, job := range jobs {
		assets := 0
		for _, run := range job.Runs {
			assets += len(run.Assets)
		}
		fmt.Printf("%-40s tags=%v runs=%d assets=%d\n", job.Name, job.Tags, len(job.Runs), assets)
	}
	return nil
}

// validateConfig loads every job (exercising every asset and suite
// reference) and pings every declared data source concurrently.
func validateConfig(ctx context.Context, log *slog.Logger, loader *resources.Loader, cfg *config.Config) error {
	jobs, err := loader.ListJobs()
	if err != nil {
		return err
	}
	log.Info("all jobs loaded", "jobs", len(jobs))

	names, err := loader.ListDataSources()
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		g.Go(func() error {
			spec, err := loader.LoadDataSource(name)
			if err != nil {
				return err
			}
			src, err := source.Open(gctx, log, spec)
			if err != nil {
				return fmt.Errorf("data source %q: %w", name, err)
			}
			defer src.Close()
			if err := src.Ping(gctx); err != nil {
				return fmt.Errorf("data source %q: %w", name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("configuration valid", "jobs", len(jobs), "data_sources", len(names))
	return nil
}

func rebuildDocs(log *slog.Logger, cfg *config.Config) error {
	fsStore := store.NewFilesystemStore(log, cfg.ResultsPath())
	results, err := fsStore.LoadAll()
	if err != nil {
		return err
	}
	builder, err := docs.NewBuilder(log, cfg.DocsDir(), docsSiteName(cfg))
	if err != nil {
		return err
	}
	return builder.Build(results)
}
