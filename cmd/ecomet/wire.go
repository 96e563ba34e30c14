//go:build wireinject
// +build wireinject

package main

import (
	"context"
	"github.com/beldeveloper/ecomet/internal/app"
	"github.com/beldeveloper/ecomet/internal/app/config"
	"github.com/beldeveloper/ecomet/internal/app/metrics"
	"github.com/beldeveloper/ecomet/internal/app/svc"
	"github.com/google/wire"
)

func initializeScrape(ctx context.Context, settings config.Settings, kind sinkKind, m *metrics.Collector) (app.ScrapeSvc, func(), error) {
	wire.Build(
		newGithubSettings,
		newGithubClient,
		newGithubSvc,
		newSink,
		svc.NewScrape,
	)
	return nil, nil, nil
}
