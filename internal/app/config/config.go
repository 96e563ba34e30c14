package config

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Settings is the root of the application configuration.
type Settings struct {
	ProjectName string             `mapstructure:"project_name"`
	Debug       bool               `mapstructure:"debug"` // forces the DEBUG logging level
	Logging     LoggingSettings    `mapstructure:"logging"`
	HTTP        HTTPSettings       `mapstructure:"http"`
	GRPC        GRPCSettings       `mapstructure:"grpc"`
	Database    DatabaseSettings   `mapstructure:"database"`
	Github      GithubSettings     `mapstructure:"github"`
	ClickHouse  ClickHouseSettings `mapstructure:"clickhouse"`
}

// LoggingSettings configures the root logger.
type LoggingSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// HTTPSettings configures the REST API server.
type HTTPSettings struct {
	Port      int    `mapstructure:"port"`
	AccessKey string `mapstructure:"access_key"`
	TLSCrt    string `mapstructure:"tls_crt"`
	TLSKey    string `mapstructure:"tls_key"`
}

// GRPCSettings configures the gRPC health server. Zero port disables it.
type GRPCSettings struct {
	Port int `mapstructure:"port"`
}

// DatabaseSettings groups the database connections.
type DatabaseSettings struct {
	Postgres PostgresSettings `mapstructure:"postgres"`
}

// PostgresSettings configures the Postgres pools.
type PostgresSettings struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	DB              string `mapstructure:"db"`
	MinPoolSize     int    `mapstructure:"min_pool_size"`
	MaxPoolSize     int    `mapstructure:"max_pool_size"`
	BgMinPoolSize   int    `mapstructure:"bg_min_pool_size"`
	BgMaxPoolSize   int    `mapstructure:"bg_max_pool_size"`
	ApplicationName string `mapstructure:"application_name"`
	// MaxInactiveConnectionLifetime is in seconds.
	MaxInactiveConnectionLifetime int `mapstructure:"max_inactive_connection_lifetime"`
}

// DSN builds the connection URL.
func (s PostgresSettings) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(s.Username, s.Password),
		Host:   s.Host + ":" + strconv.Itoa(s.Port),
		Path:   "/" + s.DB,
	}
	return u.String()
}

// MaxInactiveLifetime returns the idle connection lifetime as a duration.
func (s PostgresSettings) MaxInactiveLifetime() time.Duration {
	return time.Duration(s.MaxInactiveConnectionLifetime) * time.Second
}

// GithubSettings configures the GitHub scraper.
type GithubSettings struct {
	AccessToken           string `mapstructure:"access_token"`
	MaxConcurrentRequests int    `mapstructure:"max_concurrent_requests"`
	RequestsPerSecond     int    `mapstructure:"requests_per_second"`
	TopReposLimit         int    `mapstructure:"top_repos_limit"`
	CommitsSinceDays      int    `mapstructure:"commits_since_days"`
	BaseURL               string `mapstructure:"base_url"`
}

// ClickHouseSettings configures the ClickHouse store.
type ClickHouseSettings struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	User      string `mapstructure:"user"`
	Password  string `mapstructure:"password"`
	Database  string `mapstructure:"database"`
	BatchSize int    `mapstructure:"batch_size"`
	// Timeout is in seconds.
	Timeout float64 `mapstructure:"timeout"`
	// Protocol is either "http" or "native".
	Protocol string `mapstructure:"protocol"`
}

// Addr returns host:port.
func (s ClickHouseSettings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DialTimeout returns the timeout as a duration.
func (s ClickHouseSettings) DialTimeout() time.Duration {
	return time.Duration(s.Timeout * float64(time.Second))
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Settings {
	return Settings{
		ProjectName: "e-Comet",
		Logging: LoggingSettings{
			Level:  "INFO",
			Format: DefaultLogFormat,
		},
		HTTP: HTTPSettings{Port: 8000},
		GRPC: GRPCSettings{Port: 0},
		Database: DatabaseSettings{Postgres: PostgresSettings{
			Host:                          "localhost",
			Port:                          5432,
			Username:                      "postgres",
			Password:                      "postgres",
			DB:                            "postgres",
			MinPoolSize:                   5,
			MaxPoolSize:                   20,
			BgMinPoolSize:                 2,
			BgMaxPoolSize:                 10,
			ApplicationName:               "e-Comet",
			MaxInactiveConnectionLifetime: 1800,
		}},
		Github: GithubSettings{
			MaxConcurrentRequests: 10,
			RequestsPerSecond:     5,
			TopReposLimit:         100,
			CommitsSinceDays:      1,
			BaseURL:               "https://api.github.com",
		},
		ClickHouse: ClickHouseSettings{
			Host:      "localhost",
			Port:      8123,
			User:      "default",
			Database:  "test",
			BatchSize: 100,
			Timeout:   10,
			Protocol:  ProtocolHTTP,
		},
	}
}

const (
	// ProtocolHTTP selects the ClickHouse HTTP interface.
	ProtocolHTTP = "http"
	// ProtocolNative selects the ClickHouse native TCP interface.
	ProtocolNative = "native"

	// DefaultLogFormat mirrors "time - module - level - message".
	DefaultLogFormat = "{time} - {module} - {level} - {message}"
)
