package main

import (
	"context"
	"fmt"
	"github.com/beldeveloper/ecomet/internal/app"
	"github.com/beldeveloper/ecomet/internal/app/clickhouse"
	"github.com/beldeveloper/ecomet/internal/app/config"
	"github.com/beldeveloper/ecomet/internal/app/github"
	"github.com/beldeveloper/ecomet/internal/app/metrics"
	"github.com/beldeveloper/ecomet/internal/app/postgres"
	"github.com/beldeveloper/ecomet/internal/app/svc"
	"github.com/beldeveloper/go-errors-context"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

const (
	sinkClickHouse = "clickhouse"
	sinkPostgres   = "postgres"
	sinkLog        = "log"
)

// sinkKind selects where the scraped repositories go.
type sinkKind string

var (
	scrapeSink        string
	scrapeMetricsFile string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape the top GitHub repositories with their recent commit authors.",
	Long: "`scrape` fetches the most starred repositories and the authors of their recent commits " +
		"and stores them in ClickHouse or Postgres, or prints the first of them with --sink=log.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch scrapeSink {
		case sinkClickHouse, sinkPostgres, sinkLog:
		default:
			return fmt.Errorf("unknown sink %q, expected %s, %s or %s", scrapeSink, sinkClickHouse, sinkPostgres, sinkLog)
		}
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()

		m := metrics.NewCollector()
		scrape, cleanup, err := initializeScrape(ctx, settings, sinkKind(scrapeSink), m)
		if err != nil {
			return err
		}
		res, err := scrape.Run(ctx)
		// the sink writes its queued rows on cleanup, so the counters are final only after it
		cleanup()
		if mErr := writeMetrics(scrapeMetricsFile, m); mErr != nil {
			if err != nil {
				logger.Errorf("%v", mErr)
				return err
			}
			return mErr
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved %d of %d repositories\n", res.Saved, res.Fetched)
		return nil
	},
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeSink, "sink", sinkClickHouse, "where to put the repositories: clickhouse, postgres or log")
	scrapeCmd.Flags().StringVar(&scrapeMetricsFile, "metrics-file", "", "write the run metrics to this file in the Prometheus text format")
}

// writeMetrics dumps the collector for the node exporter textfile collector; an empty path skips it.
func writeMetrics(path string, m *metrics.Collector) error {
	if path == "" {
		return nil
	}
	reg, err := metrics.NewRegistry(m)
	if err != nil {
		return err
	}
	if err = prometheus.WriteToTextfile(path, reg); err != nil {
		return errors.WrapContext(err, errors.Context{
			Path:   "main.writeMetrics",
			Params: errors.Params{"file": path},
		})
	}
	logger.Infof("metrics written to %s", path)
	return nil
}

func newGithubSettings(s config.Settings) config.GithubSettings {
	return s.Github
}

func newGithubClient(s config.GithubSettings, m *metrics.Collector) github.Getter {
	return github.NewClient(s, nil, nil, m)
}

func newGithubSvc(client github.Getter, s config.GithubSettings, m *metrics.Collector) app.GithubSvc {
	return github.NewScraper(client, s, nil, m)
}

func newSink(ctx context.Context, s config.Settings, kind sinkKind, m *metrics.Collector) (app.RepositorySink, func(), error) {
	switch kind {
	case sinkLog:
		return svc.NewLogSink(), func() {}, nil
	case sinkPostgres:
		return newPostgresSink(ctx, s)
	}
	conn, err := clickhouse.Open(ctx, s.ClickHouse)
	if err != nil {
		return nil, nil, err
	}
	if err = clickhouse.EnsureSchema(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	store := clickhouse.NewStore(clickhouse.NewBatchWriter(conn), s.ClickHouse.BatchSize, nil, m)
	return store, func() {
		// rows queued after a cancelled run still get written
		if err := store.Close(context.Background()); err != nil {
			logger.Errorf("close clickhouse store: %v", err)
		}
	}, nil
}

func newPostgresSink(ctx context.Context, s config.Settings) (app.RepositorySink, func(), error) {
	pool, err := postgres.NewPool(ctx, s.Database.Postgres, postgres.RoleBackground)
	if err != nil {
		return nil, nil, err
	}
	repo := postgres.NewRepository(pool, nil)
	if err = repo.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return repo, pool.Close, nil
}
