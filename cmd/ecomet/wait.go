package main

import (
	"context"
	"fmt"
	"github.com/beldeveloper/ecomet/internal/app"
	"github.com/beldeveloper/ecomet/internal/app/clickhouse"
	"github.com/beldeveloper/ecomet/internal/app/compose"
	"github.com/beldeveloper/ecomet/internal/app/config"
	"github.com/beldeveloper/ecomet/internal/app/probe"
	"github.com/spf13/cobra"
	"net/http"
	"time"
)

const (
	targetPostgres   = "postgres"
	targetClickHouse = "clickhouse"
)

var (
	waitCompose string
	waitPolicy  probe.Policy
)

var waitCmd = &cobra.Command{
	Use:   "wait TARGET...",
	Short: "Wait until postgres and/or clickhouse are healthy.",
	Long: "`wait TARGET...` polls the configured databases until they pass their checks. " +
		"With --compose the polling follows the healthcheck of the same-named service.",
	Args:      cobra.MinimumNArgs(1),
	ValidArgs: []string{targetPostgres, targetClickHouse},
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		var f *compose.File
		if waitCompose != "" {
			if f, err = compose.Load(waitCompose, compose.Options{}); err != nil {
				return err
			}
		}
		ctx, stop := signalContext()
		defer stop()

		runner := probe.NewRunner(nil)
		for _, target := range args {
			p, err := targetProbe(settings, target)
			if err != nil {
				return err
			}
			policy := waitPolicy
			if s, ok := composeService(f, target); ok && s.HealthCheck.Enabled() {
				policy = probe.PolicyFromHealthCheck(s.HealthCheck)
			}
			logger.Infof("waiting for %s: %d attempts every %s", target, policy.Attempts(), policy.Interval)
			if err = runner.Wait(ctx, p, policy); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is healthy\n", target)
		}
		return nil
	},
}

func init() {
	waitCmd.Flags().StringVar(&waitCompose, "compose", "", "compose file with the healthchecks to follow")
	waitCmd.Flags().DurationVar(&waitPolicy.Interval, "interval", 2*time.Second, "time between checks")
	waitCmd.Flags().DurationVar(&waitPolicy.Timeout, "timeout", 5*time.Second, "time limit of a check")
	waitCmd.Flags().IntVar(&waitPolicy.Retries, "retries", 15, "failed checks before giving up")
}

func targetProbe(s config.Settings, target string) (app.Probe, error) {
	switch target {
	case targetPostgres:
		return probe.NewPostgres(target, s.Database.Postgres.DSN()), nil
	case targetClickHouse:
		if s.ClickHouse.Protocol == config.ProtocolNative {
			return probe.Func{ProbeName: target, Fn: clickhousePing(s.ClickHouse)}, nil
		}
		url := fmt.Sprintf("http://%s:%d/ping", s.ClickHouse.Host, s.ClickHouse.Port)
		return probe.NewHTTP(target, url, &http.Client{}), nil
	}
	return nil, fmt.Errorf("unknown target %q, expected %s or %s", target, targetPostgres, targetClickHouse)
}

func composeService(f *compose.File, name string) (compose.Service, bool) {
	if f == nil {
		return compose.Service{}, false
	}
	s, ok := f.Services[name]
	return s, ok
}

// clickhousePing connects over the native protocol, which has no HTTP ping.
func clickhousePing(s config.ClickHouseSettings) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		conn, err := clickhouse.Open(ctx, s)
		if err != nil {
			return err
		}
		return conn.Close()
	}
}
