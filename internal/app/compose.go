package app

import (
	"context"
	"github.com/beldeveloper/ecomet/internal/app/compose"
)

// ComposeSvc describes the compose file checker.
type ComposeSvc interface {
	Validate(ctx context.Context, data []byte) (compose.Report, error)
	StartupOrder(ctx context.Context, data []byte) ([][]string, error)
}
