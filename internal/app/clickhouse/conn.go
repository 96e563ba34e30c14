package clickhouse

import (
	"context"
	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/beldeveloper/ecomet/internal/app/config"
	"github.com/beldeveloper/ecomet/internal/app/logging"
	"github.com/beldeveloper/go-errors-context"
)

const (
	// TableRepositories holds the latest repository counters.
	TableRepositories = "repositories"
	// TableAuthorsCommits holds the daily commit counts per author.
	TableAuthorsCommits = "repositories_authors_commits"
	// TablePositions holds the daily rank of the repository.
	TablePositions = "repositories_positions"
)

// Tables lists the tables in the order they are flushed.
var Tables = []string{TableRepositories, TableAuthorsCommits, TablePositions}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS repositories (
		name     String,
		owner    String,
		stars    UInt32,
		watchers UInt32,
		forks    UInt32,
		language String,
		updated  DateTime
	) ENGINE = ReplacingMergeTree(updated)
	ORDER BY (owner, name)`,
	`CREATE TABLE IF NOT EXISTS repositories_authors_commits (
		date        Date,
		repo        String,
		author      String,
		commits_num UInt32
	) ENGINE = ReplacingMergeTree
	ORDER BY (date, repo, author)`,
	`CREATE TABLE IF NOT EXISTS repositories_positions (
		date     Date,
		repo     String,
		position UInt32
	) ENGINE = ReplacingMergeTree
	ORDER BY (date, repo)`,
}

var logger = logging.GetLogger("clickhouse")

// Options builds the driver options from the settings.
func Options(s config.ClickHouseSettings) *ch.Options {
	protocol := ch.HTTP
	if s.Protocol == config.ProtocolNative {
		protocol = ch.Native
	}
	return &ch.Options{
		Addr: []string{s.Addr()},
		Auth: ch.Auth{
			Database: s.Database,
			Username: s.User,
			Password: s.Password,
		},
		Protocol: protocol,
		Settings: ch.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: s.DialTimeout(),
	}
}

// Open connects to ClickHouse and checks the connection.
func Open(ctx context.Context, s config.ClickHouseSettings) (ch.Conn, error) {
	logger.Infof("connecting to clickhouse: host=%s, db=%s, batch_size=%d", s.Addr(), s.Database, s.BatchSize)
	conn, err := ch.Open(Options(s))
	if err != nil {
		return nil, errors.WrapContext(err, errors.Context{
			Path:   "clickhouse.Open",
			Params: errors.Params{"addr": s.Addr(), "db": s.Database},
		})
	}
	if err = conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, errors.WrapContext(err, errors.Context{
			Path:   "clickhouse.Open.Ping",
			Params: errors.Params{"addr": s.Addr(), "db": s.Database},
		})
	}
	logger.Infof("connected to clickhouse")
	return conn, nil
}

// Execer runs a statement.
type Execer interface {
	Exec(ctx context.Context, query string, args ...interface{}) error
}

// EnsureSchema creates the tables that don't exist yet.
func EnsureSchema(ctx context.Context, conn Execer) error {
	for i, q := range schema {
		if err := conn.Exec(ctx, q); err != nil {
			return errors.WrapContext(err, errors.Context{
				Path:   "clickhouse.EnsureSchema.Exec",
				Params: errors.Params{"table": Tables[i]},
			})
		}
	}
	return nil
}
