package resources

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SelectJobByName resolves a single job referenced as "sub.name", mapping to
// resources/jobs/<sub>/<name>.yml.
func (l *Loader) SelectJobByName(ref string) (*Job, error) {
	sub, name, ok := strings.Cut(ref, ".")
	if !ok || sub == "" || name == "" {
		return nil, fmt.Errorf("invalid job reference %q: want sub.name", ref)
	}

	path := filepath.Join(l.root, "jobs", sub, name+".yml")
	job, err := l.loadJobFile(path)
	if err != nil {
		return nil, fmt.Errorf("no job found for name %q: %w", ref, err)
	}
	return job, nil
}

// SelectJobsByTags walks resources/jobs and returns every job carrying all of
// the given tags. Zero matches is an error so a misspelled tag fails the
// scheduler task instead of silently validating nothing.
func (l *Loader) SelectJobsByTags(tags []string) ([]*Job, error) {
	if len(tags) == 0 {
		return nil, fmt.Errorf("no tags provided")
	}

	var jobs []*Job
	root := filepath.Join(l.root, "jobs")
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".yml") {
			return nil
		}
		job, err := l.loadJobFile(path)
		if err != nil {
			return err
		}
		if job.HasTags(tags) {
			jobs = append(jobs, job)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("no job found for tags %v", tags)
	}
	return jobs, nil
}

// loadJobFile parses one job YAML file and resolves its asset and suite
// references into a fully-inlined Job.
func (l *Loader) loadJobFile(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var spec jobSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse job file %s: %w", path, err)
	}
	if spec.Name == "" {
		return nil, fmt.Errorf("job file %s: name is required", path)
	}
	if len(spec.Runs) == 0 {
		return nil, fmt.Errorf("job %q has no runs", spec.Name)
	}

	job := &Job{Name: spec.Name, Tags: spec.Tags}
	for i, rs := range spec.Runs {
		if len(rs.DataAssets) == 0 {
			return nil, fmt.Errorf("job %q: run %d has no data_assets", spec.Name, i)
		}
		if rs.Suite == "" {
			return nil, fmt.Errorf("job %q: run %d has no suite", spec.Name, i)
		}

		run := Run{}
		for _, ref := range rs.DataAssets {
			asset, err := l.ResolveAsset(ref)
			if err != nil {
				return nil, fmt.Errorf("job %q: %w", spec.Name, err)
			}
			run.Assets = append(run.Assets, *asset)
		}
		suite, err := l.LoadSuite(rs.Suite)
		if err != nil {
			return nil, fmt.Errorf("job %q: %w", spec.Name, err)
		}
		run.Suite = *suite
		job.Runs = append(job.Runs, run)
	}
	return job, nil
}

// ListJobs walks resources/jobs and returns every job, for `--list-jobs`.
func (l *Loader) ListJobs() ([]*Job, error) {
	var jobs []*Job
	root := filepath.Join(l.root, "jobs")
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".yml") {
			return nil
		}
		job, err := l.loadJobFile(path)
		if err != nil {
			return err
		}
		jobs = append(jobs, job)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk jobs: %w", err)
	}
	return jobs, nil
}
