package svc

import (
	"context"
	"github.com/beldeveloper/ecomet/internal/app"
	"github.com/beldeveloper/ecomet/internal/app/logging"
	"github.com/beldeveloper/go-errors-context"
	"sync"
)

// StatusSetter receives the overall serving status.
type StatusSetter interface {
	SetServing(serving bool)
}

// NewHealth creates a new instance of the health service.
func NewHealth(probes []app.Probe, setter StatusSetter) *Health {
	return &Health{probes: probes, setter: setter}
}

// Health checks the dependencies and tracks the readiness of the application.
type Health struct {
	probes []app.Probe
	setter StatusSetter

	mu     sync.RWMutex
	ready  bool
	failed map[string]string
}

var healthLogger = logging.GetLogger("health")

// Job runs every probe once and updates the status; it's meant for the watcher.
func (s *Health) Job(ctx context.Context) error {
	failed := make(map[string]string)
	var firstErr error
	for _, p := range s.probes {
		if err := p.Check(ctx); err != nil {
			failed[p.Name()] = err.Error()
			if firstErr == nil {
				firstErr = errors.WrapContext(err, errors.Context{
					Path:   "svc.Health.Job",
					Params: errors.Params{"probe": p.Name()},
				})
			}
		}
	}
	ready := len(failed) == 0
	s.mu.Lock()
	changed := ready != s.ready
	s.ready, s.failed = ready, failed
	s.mu.Unlock()
	if changed {
		healthLogger.Infof("readiness changed: ready=%t", ready)
	}
	if s.setter != nil {
		s.setter.SetServing(ready)
	}
	return firstErr
}

// Status returns the readiness and the failed probes with their errors.
func (s *Health) Status() (bool, map[string]string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	failed := make(map[string]string, len(s.failed))
	for k, v := range s.failed {
		failed[k] = v
	}
	return s.ready, failed
}

var _ app.HealthSvc = (*Health)(nil)
