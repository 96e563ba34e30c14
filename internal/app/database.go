package app

import "context"

// ApiAccessKey is a data type for storing the API access key, used for DI.
type ApiAccessKey string

// DBInfoSvc describes the database introspection service.
type DBInfoSvc interface {
	Version(ctx context.Context) (string, error)
	Ping(ctx context.Context) error
}
