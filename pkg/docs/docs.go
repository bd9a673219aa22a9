// Package docs renders validation history into a static documentation site.
package docs

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vigildata/vigil/pkg/checkpoint"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

// Builder writes the docs site into an output directory.
type Builder struct {
	log      *slog.Logger
	outDir   string
	siteName string
	tmpl     *template.Template
}

func NewBuilder(log *slog.Logger, outDir, siteName string) (*Builder, error) {
	if siteName == "" {
		siteName = "Data Docs"
	}
	tmpl, err := template.ParseFS(templateFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse docs templates: %w", err)
	}
	return &Builder{log: log, outDir: outDir, siteName: siteName, tmpl: tmpl}, nil
}

type indexData struct {
	SiteName string
	Runs     []*checkpoint.Result
}

type runData struct {
	SiteName string
	Run      *checkpoint.Result
	Stats    checkpoint.Statistics
}

// Build regenerates the whole site from run history, newest first. Every
// invocation rewrites the index and one page per run.
func (b *Builder) Build(results []*checkpoint.Result) error {
	runDir := filepath.Join(b.outDir, "validations")
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return fmt.Errorf("failed to create docs dir: %w", err)
	}

	if err := b.render(filepath.Join(b.outDir, "index.html"), "index.html.tmpl", indexData{
		SiteName: b.siteName,
		Runs:     results,
	}); err != nil {
		return err
	}

	for _, res := range results {
		path := filepath.Join(runDir, res.RunID+".html")
		if err := b.render(path, "run.html.tmpl", runData{
			SiteName: b.siteName,
			Run:      res,
			Stats:    res.Stats(),
		}); err != nil {
			return err
		}
	}

	b.log.Info("data docs updated", "dir", b.outDir, "runs", len(results))
	return nil
}

func (b *Builder) render(path, name string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := b.tmpl.ExecuteTemplate(f, name, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	return nil
}

// Action adapts the builder into a checkpoint action. History loads prior
// runs so the site covers more than the current invocation; when nil, only
// the current run is rendered.
type Action struct {
	Builder *Builder
	History func() ([]*checkpoint.Result, error)
}

func (a *Action) Name() string { return "update_data_docs" }

func (a *Action) Run(ctx context.Context, res *checkpoint.Result) error {
	results := []*checkpoint.Result{res}
	if a.History != nil {
		history, err := a.History()
		if err != nil {
			return err
		}
		if len(history) > 0 {
			// History includes the current run if the store action ran first.
			results = history
		}
	}
	return a.Builder.Build(results)
}
