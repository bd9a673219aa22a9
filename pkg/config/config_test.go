package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVigil_Config_LoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("VIGIL_ENV", "")
	t.Setenv("VIGIL_TEAMS_WEBHOOK", "")
	t.Setenv("VIGIL_SLACK_WEBHOOK", "")
	t.Setenv("VIGIL_RESULTS_DSN", "")

	cfg := &Config{}
	require.NoError(t, LoadFromEnv(cfg))
	require.Equal(t, "dev", cfg.Env)
	require.Equal(t, "teams", cfg.WebhookKind)
	require.Equal(t, NotifyOnFailure, cfg.NotifyOn)
	require.Equal(t, ResultStoreFilesystem, cfg.ResultStore)
	require.Equal(t, "validations", cfg.ResultsDir)
}

func TestVigil_Config_LoadFromEnv_WebhookKinds(t *testing.T) {
	t.Setenv("VIGIL_TEAMS_WEBHOOK", "")
	t.Setenv("VIGIL_SLACK_WEBHOOK", "https://hooks.slack.com/services/T/B/x")
	t.Setenv("VIGIL_RESULTS_DSN", "")

	cfg := &Config{}
	require.NoError(t, LoadFromEnv(cfg))
	require.Equal(t, "slack", cfg.WebhookKind)
	require.Contains(t, cfg.Webhook, "hooks.slack.com")
}

func TestVigil_Config_LoadFromEnv_PostgresStore(t *testing.T) {
	t.Setenv("VIGIL_RESULTS_DSN", "postgres://vigil@localhost:5432/vigil")

	cfg := &Config{}
	require.NoError(t, LoadFromEnv(cfg))
	require.Equal(t, ResultStorePostgres, cfg.ResultStore)
	require.NotEmpty(t, cfg.ResultsDSN)
}

func TestVigil_Config_Validate(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	cfg := &Config{
		ProjectDir:  dir,
		NotifyOn:    NotifyOnFailure,
		WebhookKind: "teams",
		ResultStore: ResultStoreFilesystem,
	}
	require.NoError(t, cfg.Validate())

	cfg.ProjectDir = ""
	require.Error(t, cfg.Validate())

	cfg.ProjectDir = filepath.Join(dir, "nope")
	require.Error(t, cfg.Validate())

	cfg.ProjectDir = dir
	cfg.NotifyOn = "sometimes"
	require.Error(t, cfg.Validate())

	cfg.NotifyOn = NotifyOnAll
	cfg.WebhookKind = "fax"
	require.Error(t, cfg.Validate())

	cfg.WebhookKind = "slack"
	cfg.ResultStore = ResultStorePostgres
	require.Error(t, cfg.Validate(), "postgres store without DSN")

	cfg.ResultsDSN = "postgres://vigil@localhost/vigil"
	require.NoError(t, cfg.Validate())
}

func TestVigil_Config_Paths(t *testing.T) {
	t.Parallel()
	cfg := &Config{ProjectDir: "/srv/vigil", ResultsDir: "validations"}
	require.Equal(t, filepath.Join("/srv/vigil", "resources"), cfg.ResourcesDir())
	require.Equal(t, filepath.Join("/srv/vigil", "docs"), cfg.DocsDir())
	require.Equal(t, filepath.Join("/srv/vigil", "validations"), cfg.ResultsPath())

	cfg.ResultsDir = "/var/lib/vigil/results"
	require.Equal(t, "/var/lib/vigil/results", cfg.ResultsPath())
}
