package postgres

import (
	"context"
	"fmt"
	"github.com/beldeveloper/ecomet/internal/app"
	"github.com/beldeveloper/ecomet/internal/app/errtype"
	"github.com/beldeveloper/go-errors-context"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Querier is the part of the pool used by DBInfo.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Ping(ctx context.Context) error
}

// NewDBInfo creates a new instance of the database introspection service.
func NewDBInfo(conn *pgxpool.Pool) app.DBInfoSvc {
	return DBInfo{conn: conn}
}

// DBInfo implements the database introspection service.
type DBInfo struct {
	conn Querier
}

// Version returns the server version string.
func (s DBInfo) Version(ctx context.Context) (string, error) {
	logger.Infof("requesting database version")
	var v string
	err := s.conn.QueryRow(ctx, "SELECT version()").Scan(&v)
	if err != nil {
		logger.Errorf("error while getting database version: %v", err)
		return "", errors.WrapContext(
			fmt.Errorf("%w: failed to get database version: %v", errtype.ErrDatabaseConnection, err),
			errors.Context{Path: "postgres.DBInfo.Version.Scan"},
		)
	}
	return v, nil
}

// Ping checks the connectivity.
func (s DBInfo) Ping(ctx context.Context) error {
	err := s.conn.Ping(ctx)
	if err != nil {
		return errors.WrapContext(
			fmt.Errorf("%w: %v", errtype.ErrDatabaseConnection, err),
			errors.Context{Path: "postgres.DBInfo.Ping"},
		)
	}
	return nil
}
