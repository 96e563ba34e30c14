package main

import (
	"bytes"
	"github.com/beldeveloper/ecomet/internal/app/config"
	"github.com/beldeveloper/ecomet/internal/app/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	postgresStack   = "../../deploy/postgres/docker-compose.yml"
	clickhouseStack = "../../deploy/clickhouse/docker-compose.yml"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Cleanup(func() {
		composeEnvFile, composeNoInterpolate, scrapeSink, scrapeMetricsFile = "", false, sinkClickHouse, ""
		envFile = config.EnvFile
	})
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func Test_ComposeValidate(t *testing.T) {
	out, err := execute(t, "compose", "validate", postgresStack, clickhouseStack)
	require.NoError(t, err)
	assert.Equal(t, postgresStack+": ok\n"+clickhouseStack+": ok\n", out)
}

func Test_ComposeValidate_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docker-compose.yml")
	require.NoError(t, os.WriteFile(path, []byte("services:\n  app:\n    image: app\n    depends_on: [db]\n"), 0o600))

	out, err := execute(t, "compose", "validate", path)
	assert.Error(t, err)
	assert.Contains(t, out, "error: services.app.depends_on.db")
}

func Test_ComposeOrder(t *testing.T) {
	out, err := execute(t, "compose", "order", postgresStack)
	require.NoError(t, err)
	assert.Equal(t, "1: postgres\n2: app\n", out)
}

func Test_ComposeConfig(t *testing.T) {
	t.Setenv("POSTGRES_USER", "admin")
	out, err := execute(t, "compose", "config", postgresStack)
	require.NoError(t, err)
	assert.Contains(t, out, "POSTGRES_USER: admin")
	assert.NotContains(t, out, "${POSTGRES_USER")

	out, err = execute(t, "compose", "config", "--no-interpolate", postgresStack)
	require.NoError(t, err)
	assert.Contains(t, out, "${POSTGRES_USER:-postgres}")
}

func Test_Scrape_UnknownSink(t *testing.T) {
	_, err := execute(t, "scrape", "--sink", "kafka")
	assert.ErrorContains(t, err, "unknown sink")
}

func Test_Scrape_MetricsFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/search/repositories" {
			_, _ = w.Write([]byte(`{"items":[{"name":"go","owner":{"login":"golang"},"stargazers_count":10}]}`))
			return
		}
		_, _ = w.Write([]byte(`[{"commit":{"author":{"name":"gopher"}}}]`))
	}))
	defer srv.Close()
	t.Setenv("GITHUB__BASE_URL", srv.URL)
	t.Setenv("GITHUB__TOP_REPOS_LIMIT", "1")
	dir := t.TempDir()
	file := filepath.Join(dir, "ecomet.prom")

	out, err := execute(t, "scrape", "--sink", "log", "--metrics-file", file, "--env-file", filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Contains(t, out, "saved 1 of 1 repositories")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `ecomet_github_requests_total{status="200"} 2`)
	assert.Contains(t, string(data), "ecomet_github_scraped_repositories_total 1")
}

func Test_writeMetrics(t *testing.T) {
	require.NoError(t, writeMetrics("", metrics.NewCollector()))

	m := metrics.NewCollector()
	m.StoredRows.WithLabelValues("repositories").Add(3)
	m.GithubRateLimited.Inc()
	file := filepath.Join(t.TempDir(), "ecomet.prom")
	require.NoError(t, writeMetrics(file, m))
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `ecomet_clickhouse_stored_rows_total{table="repositories"} 3`)
	assert.Contains(t, string(data), "ecomet_github_rate_limited_total 1")

	assert.Error(t, writeMetrics(filepath.Join(t.TempDir(), "missing", "ecomet.prom"), m))
}

func Test_targetProbe(t *testing.T) {
	s := config.Defaults()
	p, err := targetProbe(s, targetPostgres)
	require.NoError(t, err)
	assert.Equal(t, targetPostgres, p.Name())

	p, err = targetProbe(s, targetClickHouse)
	require.NoError(t, err)
	assert.Equal(t, targetClickHouse, p.Name())

	s.ClickHouse.Protocol = config.ProtocolNative
	p, err = targetProbe(s, targetClickHouse)
	require.NoError(t, err)
	assert.Equal(t, targetClickHouse, p.Name())

	_, err = targetProbe(s, "redis")
	assert.True(t, strings.Contains(err.Error(), "unknown target"))
}
