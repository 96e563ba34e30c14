package main

import (
	"context"
	"github.com/beldeveloper/ecomet/internal/app"
	"github.com/beldeveloper/ecomet/internal/app/config"
	"github.com/beldeveloper/ecomet/internal/app/health"
	"github.com/beldeveloper/ecomet/internal/app/logging"
	"github.com/beldeveloper/ecomet/internal/app/metrics"
	"github.com/beldeveloper/ecomet/internal/app/postgres"
	"github.com/beldeveloper/ecomet/internal/app/probe"
	"github.com/beldeveloper/ecomet/internal/app/svc"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
)

var logger = logging.GetLogger("main")

func main() {
	settings, err := config.Load()
	if err != nil {
		log.Fatalf("main: load settings: %v\n", err)
	}
	if err = logging.Setup(settings.Logging); err != nil {
		log.Fatalf("main: setup logging: %v\n", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// get watcher, servers and pools using DI wire
	c, cleanup, err := initializeContainer(ctx, settings)
	if err != nil {
		log.Fatalf("main: %v\n", err)
	}
	defer cleanup()
	logger.Infof("starting %s", settings.ProjectName)
	// run watcher that keeps the readiness up to date
	go c.watcher.Watch(ctx)
	if c.grpc.Enabled() {
		go func() {
			if err := c.grpc.ListenAndServe(); err != nil {
				logger.Errorf("%v", err)
			}
		}()
		defer c.grpc.Stop()
	}
	runHttpServer(ctx, settings.HTTP, c.handler)
}

type container struct {
	watcher svc.Watcher
	handler http.Handler
	grpc    *health.Server
}

func newContainer(watcher svc.Watcher, handler http.Handler, grpc *health.Server) container {
	return container{
		watcher: watcher,
		handler: handler,
		grpc:    grpc,
	}
}

// backgroundPool is the pool of the health job, separate from the one serving requests.
type backgroundPool struct {
	*pgxpool.Pool
}

func newAccessKey(s config.Settings) app.ApiAccessKey {
	return app.ApiAccessKey(s.HTTP.AccessKey)
}

func newGRPCSettings(s config.Settings) config.GRPCSettings {
	return s.GRPC
}

func newAPIPool(ctx context.Context, s config.Settings) (*pgxpool.Pool, func(), error) {
	pool, err := postgres.NewPool(ctx, s.Database.Postgres, postgres.RoleAPI)
	if err != nil {
		return nil, nil, err
	}
	return pool, func() {
		logger.Infof("closing the api pool")
		pool.Close()
	}, nil
}

func newBackgroundPool(ctx context.Context, s config.Settings) (backgroundPool, func(), error) {
	pool, err := postgres.NewPool(ctx, s.Database.Postgres, postgres.RoleBackground)
	if err != nil {
		return backgroundPool{}, nil, err
	}
	return backgroundPool{Pool: pool}, func() {
		logger.Infof("closing the background pool")
		pool.Close()
	}, nil
}

func newRepositoryRepo(ctx context.Context, pool *pgxpool.Pool) (app.RepositoryRepo, error) {
	repo := postgres.NewRepository(pool, nil)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func newProbes(pool backgroundPool) []app.Probe {
	return []app.Probe{
		probe.Func{ProbeName: "postgres", Fn: postgres.NewDBInfo(pool.Pool).Ping},
	}
}

func newWatcher(h app.HealthSvc) svc.Watcher {
	return svc.NewWatcher([]app.WatcherJob{
		{
			Name: "health",
			Do:   h.Job,
		},
	}, nil)
}

func newRegistry(c *metrics.Collector) (prometheus.Gatherer, error) {
	return metrics.NewRegistry(c)
}

func runHttpServer(ctx context.Context, s config.HTTPSettings, handler http.Handler) {
	httpPort := strconv.Itoa(s.Port)
	srv := &http.Server{
		Addr:              ":" + httpPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		var err error
		if len(s.TLSCrt) > 0 {
			err = srv.ListenAndServeTLS(s.TLSCrt, s.TLSKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("main.runHttpServer: serve http: %v; port = %s\n", err, httpPort)
		}
	}()
	logger.Infof("listening :%s for HTTP connections...", httpPort)
	<-ctx.Done()
	logger.Infof("stopping the application...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("main.runHttpServer: server shutdown: %v", err)
	}
}
