package http

import (
	"context"
	"fmt"
	"github.com/beldeveloper/ecomet/internal/app"
	"github.com/beldeveloper/ecomet/internal/app/errtype"
	"github.com/beldeveloper/ecomet/internal/app/metrics"
	"github.com/beldeveloper/ecomet/internal/app/svc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeDBInfo struct {
	version string
	err     error
}

func (f fakeDBInfo) Version(context.Context) (string, error) {
	return f.version, f.err
}

func (f fakeDBInfo) Ping(context.Context) error {
	return f.err
}

type fakeRepos map[string]app.Repository

func (f fakeRepos) FindAll(context.Context) ([]app.Repository, error) {
	res := make([]app.Repository, 0, len(f))
	for _, r := range f {
		res = append(res, r)
	}
	return res, nil
}

func (f fakeRepos) FindByName(_ context.Context, owner, name string) (app.Repository, error) {
	r, ok := f[owner+"/"+name]
	if !ok {
		return r, fmt.Errorf("%w: repository %s/%s", errtype.ErrNotFound, owner, name)
	}
	return r, nil
}

type fakeHealth struct {
	ready  bool
	failed map[string]string
}

func (f fakeHealth) Job(context.Context) error {
	return nil
}

func (f fakeHealth) Status() (bool, map[string]string) {
	return f.ready, f.failed
}

type fixture struct {
	dbInfo    fakeDBInfo
	repos     fakeRepos
	health    fakeHealth
	accessKey string
	metrics   *metrics.Collector
}

func (f fixture) server(t *testing.T) *httptest.Server {
	if f.metrics == nil {
		f.metrics = metrics.NewCollector()
	}
	reg, err := metrics.NewRegistry(f.metrics)
	require.NoError(t, err)
	h := NewHandler(f.dbInfo, f.repos, svc.NewCompose(), f.health, app.ApiAccessKey(f.accessKey))
	srv := httptest.NewServer(NewServerHandler(NewRouter(h, f.metrics, reg)))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (*http.Response, map[string]interface{}) {
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var res map[string]interface{}
	if len(data) > 0 && data[0] == '{' {
		require.NoError(t, json.Unmarshal(data, &res))
	}
	return resp, res
}

func Test_DBVersion(t *testing.T) {
	srv := fixture{dbInfo: fakeDBInfo{version: "PostgreSQL 16.2"}}.server(t)

	resp, err := http.Get(srv.URL + "/api/db_version")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
	assert.JSONEq(t, `"PostgreSQL 16.2"`, string(body))
}

func Test_DBVersion_DatabaseError(t *testing.T) {
	err := errtype.WithDetails(
		fmt.Errorf("%w: connection refused", errtype.ErrDatabaseConnection),
		errtype.Details{"host": "postgres"},
	)
	srv := fixture{dbInfo: fakeDBInfo{err: err}}.server(t)

	resp, res := do(t, http.MethodGet, srv.URL+"/api/db_version", "")

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, map[string]interface{}{
		"error":   "database connection error",
		"code":    "DATABASE_CONNECTION_ERROR",
		"details": map[string]interface{}{"host": "postgres"},
	}, res)
}

func Test_Repositories(t *testing.T) {
	srv := fixture{repos: fakeRepos{"golang/go": {Owner: "golang", Name: "go", Position: 1, Stars: 10}}}.server(t)

	resp, err := http.Get(srv.URL + "/api/repositories")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"name":"go","owner":"golang","position":1,"stars":10,"watchers":0,"forks":0,
		"language":"","authorsCommitsNum":null}]`, string(body))

	resp, res := do(t, http.MethodGet, srv.URL+"/api/repositories/golang/go", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "golang", res["owner"])

	resp, res = do(t, http.MethodGet, srv.URL+"/api/repositories/golang/missing", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", res["code"])
	assert.Equal(t, "not found: repository golang/missing", res["error"])
}

func Test_AccessKey(t *testing.T) {
	srv := fixture{dbInfo: fakeDBInfo{version: "v"}, accessKey: "secret"}.server(t)

	resp, res := do(t, http.MethodGet, srv.URL+"/api/db_version", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", res["code"])

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/db_version?accessKey=wrong", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/db_version?accessKey=secret", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// probes stay open
	resp, _ = do(t, http.MethodGet, srv.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

const validCompose = `
services:
  app:
    image: app
    depends_on:
      db:
        condition: service_healthy
  db:
    image: postgres
`

func Test_ValidateCompose(t *testing.T) {
	srv := fixture{}.server(t)

	resp, res := do(t, http.MethodPost, srv.URL+"/api/compose/validate", validCompose)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	issues := res["issues"].([]interface{})
	require.Len(t, issues, 1)
	assert.Equal(t, "warning", issues[0].(map[string]interface{})["severity"])

	resp, res = do(t, http.MethodPost, srv.URL+"/api/compose/validate", "services: [")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "BAD_INPUT", res["code"])

	invalid := "services:\n  app:\n    depends_on: [db]\n"
	resp, res = do(t, http.MethodPost, srv.URL+"/api/compose/validate", invalid)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "INVALID_COMPOSE", res["code"])
	details := res["details"].(map[string]interface{})
	assert.Len(t, details["issues"], 2)
	assert.Contains(t, res["error"], "services.app.depends_on.db")
}

func Test_ValidateCompose_TooLarge(t *testing.T) {
	srv := fixture{}.server(t)

	resp, res := do(t, http.MethodPost, srv.URL+"/api/compose/validate", strings.Repeat("#", MaxComposeSize+1))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "BAD_INPUT", res["code"])
}

func Test_ComposeOrder(t *testing.T) {
	srv := fixture{}.server(t)

	resp, res := do(t, http.MethodPost, srv.URL+"/api/compose/order", validCompose)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []interface{}{[]interface{}{"db"}, []interface{}{"app"}}, res["levels"])

	cyclic := "services:\n  a:\n    image: a\n    depends_on: [b]\n  b:\n    image: b\n    depends_on: [a]\n"
	resp, res = do(t, http.MethodPost, srv.URL+"/api/compose/order", cyclic)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, res["error"], "dependency cycle")
}

func Test_Readiness(t *testing.T) {
	srv := fixture{health: fakeHealth{failed: map[string]string{"postgres": "refused"}}}.server(t)
	resp, res := do(t, http.MethodGet, srv.URL+"/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "unavailable", res["status"])
	assert.Equal(t, map[string]interface{}{"postgres": "refused"}, res["failed"])

	srv = fixture{health: fakeHealth{ready: true}}.server(t)
	resp, res = do(t, http.MethodGet, srv.URL+"/readyz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", res["status"])
}

func Test_Options(t *testing.T) {
	srv := fixture{}.server(t)

	resp, _ := do(t, http.MethodOptions, srv.URL+"/api/compose/validate", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func Test_NotFound(t *testing.T) {
	srv := fixture{}.server(t)

	resp, res := do(t, http.MethodGet, srv.URL+"/api/unknown", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", res["code"])
}

func Test_RequestID_KeepsIncoming(t *testing.T) {
	srv := fixture{}.server(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "abc")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc", resp.Header.Get(RequestIDHeader))
}

func Test_Metrics(t *testing.T) {
	m := metrics.NewCollector()
	srv := fixture{metrics: m, dbInfo: fakeDBInfo{err: fmt.Errorf("boom")}}.server(t)

	do(t, http.MethodGet, srv.URL+"/healthz", "")
	do(t, http.MethodGet, srv.URL+"/api/db_version", "")

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `ecomet_http_requests_total{code="200",method="GET",route="/healthz"} 1`)
	assert.Contains(t, string(body), `ecomet_http_requests_total{code="500",method="GET",route="/api/db_version"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
