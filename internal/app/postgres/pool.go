package postgres

import (
	"context"
	"fmt"
	"github.com/beldeveloper/ecomet/internal/app/config"
	"github.com/beldeveloper/ecomet/internal/app/errtype"
	"github.com/beldeveloper/ecomet/internal/app/logging"
	"github.com/beldeveloper/go-errors-context"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Role selects the pool size limits.
type Role int

const (
	// RoleAPI is the pool serving API requests.
	RoleAPI Role = iota
	// RoleBackground is the pool of the background jobs.
	RoleBackground
)

func (r Role) String() string {
	if r == RoleBackground {
		return "background"
	}
	return "api"
}

var logger = logging.GetLogger("postgres")

// PoolConfig builds the pool configuration for the role.
func PoolConfig(s config.PostgresSettings, role Role) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(s.DSN())
	if err != nil {
		return nil, errors.WrapContext(err, errors.Context{
			Path:   "postgres.PoolConfig.ParseConfig",
			Params: errors.Params{"host": s.Host, "db": s.DB},
		})
	}
	minSize, maxSize := s.MinPoolSize, s.MaxPoolSize
	if role == RoleBackground {
		minSize, maxSize = s.BgMinPoolSize, s.BgMaxPoolSize
	}
	if maxSize < 1 {
		maxSize = 1
	}
	if minSize > maxSize {
		minSize = maxSize
	}
	cfg.MinConns = int32(minSize)
	cfg.MaxConns = int32(maxSize)
	cfg.MaxConnIdleTime = s.MaxInactiveLifetime()
	if s.ApplicationName != "" {
		cfg.ConnConfig.RuntimeParams["application_name"] = s.ApplicationName
	}
	return cfg, nil
}

// NewPool connects the pool for the role.
func NewPool(ctx context.Context, s config.PostgresSettings, role Role) (*pgxpool.Pool, error) {
	cfg, err := PoolConfig(s, role)
	if err != nil {
		return nil, connectionError(err, s)
	}
	logger.Infof("connecting %s pool to %s:%d/%s (%d-%d connections)", role, s.Host, s.Port, s.DB, cfg.MinConns, cfg.MaxConns)
	pool, err := pgxpool.ConnectConfig(ctx, cfg)
	if err != nil {
		logger.Errorf("pool creation error: %v", err)
		return nil, connectionError(err, s)
	}
	logger.Infof("connected to the database %s:%d/%s", s.Host, s.Port, s.DB)
	return pool, nil
}

func connectionError(err error, s config.PostgresSettings) error {
	return errors.WrapContext(
		errtype.WithDetails(
			fmt.Errorf("%w: failed to create connection pool: %v", errtype.ErrDatabaseConnection, err),
			errtype.Details{"host": s.Host, "db": s.DB},
		),
		errors.Context{Path: "postgres.NewPool", Params: errors.Params{"host": s.Host, "db": s.DB}},
	)
}
