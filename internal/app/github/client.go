package github

import (
	"context"
	"fmt"
	"github.com/beldeveloper/ecomet/internal/app/config"
	"github.com/beldeveloper/ecomet/internal/app/logging"
	"github.com/beldeveloper/ecomet/internal/app/metrics"
	"github.com/beldeveloper/go-errors-context"
	"github.com/google/go-querystring/query"
	jsoniter "github.com/json-iterator/go"
	"github.com/juju/clock"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// AcceptHeader selects the v3 REST API.
	AcceptHeader = "application/vnd.github.v3+json"
	// RateLimitResetHeader carries the unix time the rate limit window resets at.
	RateLimitResetHeader = "X-RateLimit-Reset"
	// MaxRateLimitWait is the longest wait for the rate limit reset; longer waits fail the request.
	MaxRateLimitWait = time.Hour
	// MaxRateLimitRetries bounds the retries of a single request after rate limit waits.
	MaxRateLimitRetries = 3
)

var (
	json   = jsoniter.ConfigCompatibleWithStandardLibrary
	logger = logging.GetLogger("github")
)

// StatusError is returned for the responses with status 400 and above.
type StatusError struct {
	Status int
	Body   string
	Reset  string
}

func (e StatusError) Error() string {
	return fmt.Sprintf("github api error: %d - %s", e.Status, strings.TrimSpace(e.Body))
}

// NewClient creates a new instance of the GitHub REST client.
func NewClient(s config.GithubSettings, httpClient *http.Client, clk clock.Clock, m *metrics.Collector) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if clk == nil {
		clk = clock.WallClock
	}
	limit := rate.Inf
	if s.RequestsPerSecond > 0 {
		limit = rate.Limit(s.RequestsPerSecond)
	}
	concurrency := int64(s.MaxConcurrentRequests)
	if concurrency < 1 {
		concurrency = 1
	}
	return &Client{
		baseURL: strings.TrimRight(s.BaseURL, "/"),
		token:   s.AccessToken,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, 1),
		sem:     semaphore.NewWeighted(concurrency),
		clock:   clk,
		metrics: m,
	}
}

// Client is a GitHub REST API client with a request rate limit and a concurrency limit.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	sem     *semaphore.Weighted
	clock   clock.Clock
	metrics *metrics.Collector
}

// Get requests the endpoint relative to the base URL and decodes the JSON answer into out.
// params is encoded with go-querystring and may be nil.
func (c *Client) Get(ctx context.Context, endpoint string, params interface{}, out interface{}) error {
	u := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if params != nil {
		v, err := query.Values(params)
		if err != nil {
			return errors.WrapContext(err, errors.Context{
				Path:   "github.Client.Get.Values",
				Params: errors.Params{"endpoint": endpoint},
			})
		}
		if q := v.Encode(); q != "" {
			u += "?" + q
		}
	}
	for retries := 0; ; retries++ {
		body, err := c.do(ctx, u)
		if err == nil {
			err = json.Unmarshal(body, out)
			return errors.WrapContext(err, errors.Context{
				Path:   "github.Client.Get.Unmarshal",
				Params: errors.Params{"endpoint": endpoint},
			})
		}
		wait, ok := c.rateLimitWait(err)
		if !ok || retries >= MaxRateLimitRetries {
			logger.Errorf("request error: %v", err)
			return errors.WrapContext(err, errors.Context{
				Path:   "github.Client.Get",
				Params: errors.Params{"endpoint": endpoint},
			})
		}
		logger.Warningf("github api rate limit exceeded, waiting %s", wait)
		if c.metrics != nil {
			c.metrics.GithubRateLimited.Inc()
		}
		select {
		case <-c.clock.After(wait):
		case <-ctx.Done():
			logger.Warningf("request cancelled")
			return errors.WrapContext(ctx.Err(), errors.Context{
				Path:   "github.Client.Get.Wait",
				Params: errors.Params{"endpoint": endpoint},
			})
		}
	}
}

func (c *Client) do(ctx context.Context, u string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", AcceptHeader)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	logger.Debugf("executing request: GET %s", u)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if c.metrics != nil {
		c.metrics.GithubRequests.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		logger.Errorf("github api error: %d - %s", resp.StatusCode, body)
		return nil, StatusError{Status: resp.StatusCode, Body: string(body), Reset: resp.Header.Get(RateLimitResetHeader)}
	}
	return body, nil
}

// rateLimitWait computes max(0, reset-now)+1s for a 403 answer; a missing reset time counts as 0.
func (c *Client) rateLimitWait(err error) (time.Duration, bool) {
	se, ok := err.(StatusError)
	if !ok || se.Status != http.StatusForbidden {
		return 0, false
	}
	var reset int64
	if se.Reset != "" {
		var convErr error
		if reset, convErr = strconv.ParseInt(se.Reset, 10, 64); convErr != nil {
			return 0, false
		}
	}
	wait := time.Unix(reset, 0).Sub(c.clock.Now())
	if wait < 0 {
		wait = 0
	}
	wait += time.Second
	if wait >= MaxRateLimitWait {
		return 0, false
	}
	return wait, true
}
