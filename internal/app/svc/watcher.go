package svc

import (
	"context"
	"github.com/beldeveloper/ecomet/internal/app"
	"github.com/beldeveloper/ecomet/internal/app/logging"
	"github.com/beldeveloper/go-errors-context"
	"github.com/juju/clock"
	"time"
)

// WatchJobDelay defines the delay between jobs.
const WatchJobDelay = time.Second

// NewWatcher creates a new instance of the watcher service.
func NewWatcher(jobs []app.WatcherJob, clk clock.Clock) Watcher {
	if clk == nil {
		clk = clock.WallClock
	}
	return Watcher{jobs: jobs, clock: clk}
}

// Watcher is a service that runs the sequences of jobs in a loop.
type Watcher struct {
	jobs  []app.WatcherJob
	clock clock.Clock
}

var watcherLogger = logging.GetLogger("watcher")

// Watch runs the jobs until the context is done.
func (s Watcher) Watch(ctx context.Context) {
	if len(s.jobs) == 0 {
		<-ctx.Done()
		return
	}
	for {
		for _, j := range s.jobs {
			select {
			case <-ctx.Done():
				return
			case <-s.clock.After(WatchJobDelay):
			}
			if err := j.Do(ctx); err != nil && ctx.Err() == nil {
				watcherLogger.Errorf("%v", errors.WrapContext(err, errors.Context{
					Path:   "svc.Watcher.Watch",
					Params: errors.Params{"job": j.Name},
				}))
			}
		}
	}
}
