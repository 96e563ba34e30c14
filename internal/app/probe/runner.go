package probe

import (
	"context"
	"fmt"
	"github.com/beldeveloper/ecomet/internal/app"
	"github.com/beldeveloper/ecomet/internal/app/compose"
	"github.com/beldeveloper/ecomet/internal/app/logging"
	"github.com/beldeveloper/go-errors-context"
	"github.com/juju/clock"
	"github.com/juju/retry"
	"time"
)

// Defaults of the container runtime for the fields a healthcheck leaves out.
const (
	DefaultInterval = 30 * time.Second
	DefaultTimeout  = 30 * time.Second
	DefaultRetries  = 3
)

var logger = logging.GetLogger("probe")

// Policy defines how often and how long the probe is polled.
// Failures during StartPeriod don't count toward Retries.
type Policy struct {
	Interval    time.Duration
	Timeout     time.Duration
	StartPeriod time.Duration
	Retries     int
}

// Attempts is the total number of checks performed before giving up.
func (p Policy) Attempts() int {
	p = p.withDefaults()
	return p.Retries + int(p.StartPeriod/p.Interval)
}

func (p Policy) withDefaults() Policy {
	if p.Interval <= 0 {
		p.Interval = DefaultInterval
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	if p.Retries <= 0 {
		p.Retries = DefaultRetries
	}
	return p
}

// PolicyFromHealthCheck builds the policy the runtime applies to the healthcheck.
func PolicyFromHealthCheck(h *compose.HealthCheck) Policy {
	if h == nil {
		return Policy{}.withDefaults()
	}
	return Policy{
		Interval:    h.Interval.Std(),
		Timeout:     h.Timeout.Std(),
		StartPeriod: h.StartPeriod.Std(),
		Retries:     h.Retries,
	}.withDefaults()
}

// NewRunner creates a new instance of the probe runner.
func NewRunner(clk clock.Clock) Runner {
	if clk == nil {
		clk = clock.WallClock
	}
	return Runner{clock: clk}
}

// Runner polls probes until they pass.
type Runner struct {
	clock clock.Clock
}

// Wait polls the probe until it passes, the attempts are exhausted or the context is done.
// The first check runs immediately.
func (r Runner) Wait(ctx context.Context, p app.Probe, policy Policy) error {
	policy = policy.withDefaults()
	var lastErr error
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			cctx, cancel := context.WithTimeout(ctx, policy.Timeout)
			defer cancel()
			return p.Check(cctx)
		},
		IsFatalError: func(error) bool {
			return ctx.Err() != nil
		},
		NotifyFunc: func(err error, attempt int) {
			lastErr = err
			logger.Debugf("probe %s: attempt %d failed: %v", p.Name(), attempt, err)
		},
		Attempts: policy.Attempts(),
		Delay:    policy.Interval,
		Clock:    r.clock,
		Stop:     ctx.Done(),
	})
	if err == nil {
		logger.Infof("probe %s is healthy", p.Name())
		return nil
	}
	if retry.IsAttemptsExceeded(err) {
		err = fmt.Errorf("not healthy after %d attempts: %w", policy.Attempts(), lastErr)
	} else if retry.IsRetryStopped(err) {
		err = ctx.Err()
	}
	return errors.WrapContext(err, errors.Context{
		Path:   "probe.Runner.Wait",
		Params: errors.Params{"probe": p.Name()},
	})
}
