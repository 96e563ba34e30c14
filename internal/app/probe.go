package app

import "context"

// Probe checks whether a dependency is ready to serve requests.
type Probe interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthSvc tracks the readiness of the dependencies.
type HealthSvc interface {
	Job(ctx context.Context) error
	Status() (ready bool, failed map[string]string)
}

// WatcherJob is a job the watcher service runs in a loop, such as HealthSvc.Job.
type WatcherJob struct {
	Name string
	Do   func(ctx context.Context) error
}
