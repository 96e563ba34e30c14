package svc

import (
	"context"
	"github.com/beldeveloper/ecomet/internal/app"
	"github.com/beldeveloper/ecomet/internal/app/compose"
	"github.com/beldeveloper/go-errors-context"
)

// NewCompose creates a new instance of the compose checker service.
func NewCompose() app.ComposeSvc {
	return Compose{}
}

// Compose checks compose files sent over the API. Variables resolve to their defaults only,
// since the server environment is not the one the file is deployed with.
type Compose struct{}

var apiOptions = compose.Options{Lookup: func(string) (string, bool) { return "", false }}

// Validate parses and validates the file.
func (s Compose) Validate(_ context.Context, data []byte) (compose.Report, error) {
	f, err := compose.Parse(data, apiOptions)
	if err != nil {
		return compose.Report{}, errors.WrapContext(err, errors.Context{Path: "svc.Compose.Validate.Parse"})
	}
	return compose.Validate(f), nil
}

// StartupOrder parses the file and returns the service startup levels.
func (s Compose) StartupOrder(_ context.Context, data []byte) ([][]string, error) {
	f, err := compose.Parse(data, apiOptions)
	if err != nil {
		return nil, errors.WrapContext(err, errors.Context{Path: "svc.Compose.StartupOrder.Parse"})
	}
	levels, err := compose.StartupOrder(f)
	return levels, errors.WrapContext(err, errors.Context{Path: "svc.Compose.StartupOrder"})
}
