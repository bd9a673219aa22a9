package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// NotifyOn controls which validation outcomes trigger a webhook notification.
type NotifyOn string

const (
	NotifyOnAll     NotifyOn = "all"
	NotifyOnFailure NotifyOn = "failure"
	NotifyOnSuccess NotifyOn = "success"
)

// ResultStoreKind selects where validation results are persisted.
type ResultStoreKind string

const (
	ResultStoreFilesystem ResultStoreKind = "filesystem"
	ResultStorePostgres   ResultStoreKind = "postgres"
)

// Config holds runtime settings for a validation run. Flags take precedence
// over environment variables; a .env file in the working directory is loaded
// first if present.
type Config struct {
	Env        string
	ProjectDir string

	// Webhook is the chat webhook used for outcome notifications.
	Webhook      string
	WebhookKind  string // "teams" or "slack"
	NotifyOn     NotifyOn
	DocsSiteName string

	ResultStore ResultStoreKind
	// ResultsDir is the filesystem store root, relative to ProjectDir
	// unless absolute.
	ResultsDir string
	// ResultsDSN is the postgres store connection string.
	ResultsDSN string
}

// LoadFromEnv fills settings not already set from flags with environment
// variables.
func LoadFromEnv(cfg *Config) error {
	// Optional .env for local development.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return fmt.Errorf("failed to load .env: %w", err)
		}
	}

	if cfg.Env == "" {
		cfg.Env = os.Getenv("VIGIL_ENV")
	}
	if cfg.Env == "" {
		cfg.Env = "dev"
	}

	if cfg.ProjectDir == "" {
		cfg.ProjectDir = os.Getenv("VIGIL_PROJECT_DIR")
	}

	if cfg.Webhook == "" {
		cfg.Webhook = os.Getenv("VIGIL_TEAMS_WEBHOOK")
		if cfg.Webhook != "" {
			cfg.WebhookKind = "teams"
		}
	}
	if cfg.Webhook == "" {
		cfg.Webhook = os.Getenv("VIGIL_SLACK_WEBHOOK")
		if cfg.Webhook != "" {
			cfg.WebhookKind = "slack"
		}
	}
	if cfg.WebhookKind == "" {
		cfg.WebhookKind = "teams"
	}
	if cfg.NotifyOn == "" {
		cfg.NotifyOn = NotifyOnFailure
	}

	if cfg.ResultStore == "" {
		if os.Getenv("VIGIL_RESULTS_DSN") != "" {
			cfg.ResultStore = ResultStorePostgres
		} else {
			cfg.ResultStore = ResultStoreFilesystem
		}
	}
	if cfg.ResultsDSN == "" {
		cfg.ResultsDSN = os.Getenv("VIGIL_RESULTS_DSN")
	}
	if cfg.ResultsDir == "" {
		cfg.ResultsDir = "validations"
	}

	return nil
}

func (cfg *Config) Validate() error {
	if cfg.ProjectDir == "" {
		return errors.New("project dir is required")
	}
	if info, err := os.Stat(cfg.ProjectDir); err != nil || !info.IsDir() {
		return fmt.Errorf("project dir %q is not a directory", cfg.ProjectDir)
	}
	switch cfg.NotifyOn {
	case NotifyOnAll, NotifyOnFailure, NotifyOnSuccess:
	default:
		return fmt.Errorf("notify-on must be 'all', 'failure' or 'success', got: %s", cfg.NotifyOn)
	}
	switch cfg.WebhookKind {
	case "teams", "slack":
	default:
		return fmt.Errorf("webhook kind must be 'teams' or 'slack', got: %s", cfg.WebhookKind)
	}
	if cfg.ResultStore == ResultStorePostgres && cfg.ResultsDSN == "" {
		return errors.New("postgres result store requires VIGIL_RESULTS_DSN")
	}
	return nil
}

// ResourcesDir returns the root of the YAML resource tree.
func (cfg *Config) ResourcesDir() string {
	return filepath.Join(cfg.ProjectDir, "resources")
}

// DocsDir returns the output directory for generated data docs.
func (cfg *Config) DocsDir() string {
	return filepath.Join(cfg.ProjectDir, "docs")
}

// ResultsPath returns the absolute filesystem store root.
func (cfg *Config) ResultsPath() string {
	if filepath.IsAbs(cfg.ResultsDir) {
		return cfg.ResultsDir
	}
	return filepath.Join(cfg.ProjectDir, cfg.ResultsDir)
}
