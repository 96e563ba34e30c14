package probe

import (
	"context"
	"fmt"
	"github.com/beldeveloper/ecomet/internal/app"
	"github.com/beldeveloper/go-errors-context"
	"github.com/jackc/pgx/v4"
	"io"
	"net/http"
)

// NewHTTP creates a probe that expects a 2xx answer to GET url, like the ClickHouse /ping check.
func NewHTTP(name, url string, client *http.Client) HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	return HTTP{name: name, url: url, client: client}
}

// HTTP is an HTTP GET probe.
type HTTP struct {
	name   string
	url    string
	client *http.Client
}

// Name returns the probe name.
func (p HTTP) Name() string {
	return p.name
}

// Check performs a single request.
func (p HTTP) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return errors.WrapContext(err, errors.Context{
			Path:   "probe.HTTP.Check.NewRequest",
			Params: errors.Params{"url": p.url},
		})
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return errors.WrapContext(err, errors.Context{
			Path:   "probe.HTTP.Check.Do",
			Params: errors.Params{"url": p.url},
		})
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.NewWithContext("unexpected status", errors.Context{
			Path:   "probe.HTTP.Check",
			Params: errors.Params{"url": p.url, "status": resp.StatusCode},
		})
	}
	return nil
}

// NewPostgres creates a probe that connects and pings the server, like pg_isready.
func NewPostgres(name, dsn string) Postgres {
	return Postgres{name: name, dsn: dsn}
}

// Postgres is a connection probe.
type Postgres struct {
	name string
	dsn  string
}

// Name returns the probe name.
func (p Postgres) Name() string {
	return p.name
}

// Check opens a connection, pings the server and closes the connection.
func (p Postgres) Check(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, p.dsn)
	if err != nil {
		return errors.WrapContext(err, errors.Context{Path: "probe.Postgres.Check.Connect"})
	}
	defer conn.Close(context.Background())
	return errors.WrapContext(conn.Ping(ctx), errors.Context{Path: "probe.Postgres.Check.Ping"})
}

// Func adapts a function to app.Probe.
type Func struct {
	ProbeName string
	Fn        func(ctx context.Context) error
}

// Name returns the probe name.
func (f Func) Name() string {
	return f.ProbeName
}

// Check calls the function.
func (f Func) Check(ctx context.Context) error {
	if f.Fn == nil {
		return fmt.Errorf("probe %s has no check", f.ProbeName)
	}
	return f.Fn(ctx)
}

var (
	_ app.Probe = HTTP{}
	_ app.Probe = Postgres{}
	_ app.Probe = Func{}
)
