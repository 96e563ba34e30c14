//go:build wireinject
// +build wireinject

package main

import (
	"context"
	"github.com/beldeveloper/ecomet/internal/app"
	"github.com/beldeveloper/ecomet/internal/app/config"
	"github.com/beldeveloper/ecomet/internal/app/health"
	"github.com/beldeveloper/ecomet/internal/app/http"
	"github.com/beldeveloper/ecomet/internal/app/metrics"
	"github.com/beldeveloper/ecomet/internal/app/postgres"
	"github.com/beldeveloper/ecomet/internal/app/svc"
	"github.com/google/wire"
)

func initializeContainer(ctx context.Context, settings config.Settings) (container, func(), error) {
	wire.Build(
		newAPIPool,
		newBackgroundPool,
		newProbes,
		newGRPCSettings,
		health.NewServer,
		wire.Bind(new(svc.StatusSetter), new(*health.Server)),
		svc.NewHealth,
		wire.Bind(new(app.HealthSvc), new(*svc.Health)),
		newWatcher,
		postgres.NewDBInfo,
		newRepositoryRepo,
		svc.NewCompose,
		newAccessKey,
		metrics.NewCollector,
		newRegistry,
		http.NewHandler,
		http.NewRouter,
		http.NewServerHandler,
		newContainer,
	)
	return container{}, nil, nil
}
