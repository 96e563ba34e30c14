package config

import (
	"fmt"
	"github.com/beldeveloper/ecomet/internal/app/errtype"
	"github.com/beldeveloper/go-errors-context"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"os"
	"strings"
)

// NestedDelimiter separates the levels of nested settings in environment variable names.
const NestedDelimiter = "__"

// EnvFile is the default dotenv file read on start.
const EnvFile = ".env"

// Levels lists the accepted logging levels.
var Levels = []string{"DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL"}

// Load reads the settings from the dotenv file (if it exists) and the process environment.
// Process environment wins over the file.
func Load(envFiles ...string) (Settings, error) {
	if len(envFiles) == 0 {
		envFiles = []string{EnvFile}
	}
	env := make(map[string]string)
	for _, f := range envFiles {
		values, err := godotenv.Read(f)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Settings{}, errors.WrapContext(err, errors.Context{
				Path:   "config.Load.Read",
				Params: errors.Params{"file": f},
			})
		}
		for k, v := range values {
			env[k] = v
		}
	}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			env[k] = v
		}
	}
	return FromEnv(env)
}

// FromEnv decodes the settings from the flat environment map over the defaults.
func FromEnv(env map[string]string) (Settings, error) {
	s := Defaults()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &s,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return s, errors.WrapContext(err, errors.Context{Path: "config.FromEnv.NewDecoder"})
	}
	if err = dec.Decode(nest(env)); err != nil {
		return s, errors.WrapContext(fmt.Errorf("%w: %v", errtype.ErrInvalidConfig, err), errors.Context{Path: "config.FromEnv.Decode"})
	}
	s.Logging.Level = strings.ToUpper(s.Logging.Level)
	if s.Debug {
		s.Logging.Level = "DEBUG"
	}
	s.ClickHouse.Protocol = strings.ToLower(s.ClickHouse.Protocol)
	if err = s.Validate(); err != nil {
		return s, errors.WrapContext(err, errors.Context{Path: "config.FromEnv.Validate"})
	}
	return s, nil
}

// Validate checks the values that can't be expressed by types.
func (s Settings) Validate() error {
	if !validLevel(s.Logging.Level) {
		return fmt.Errorf("%w: invalid logging level: %s", errtype.ErrInvalidConfig, s.Logging.Level)
	}
	switch s.ClickHouse.Protocol {
	case ProtocolHTTP, ProtocolNative:
	default:
		return fmt.Errorf("%w: invalid clickhouse protocol: %s", errtype.ErrInvalidConfig, s.ClickHouse.Protocol)
	}
	if s.ClickHouse.BatchSize <= 0 {
		return fmt.Errorf("%w: clickhouse batch size must be positive", errtype.ErrInvalidConfig)
	}
	if s.Github.MaxConcurrentRequests <= 0 {
		return fmt.Errorf("%w: github max concurrent requests must be positive", errtype.ErrInvalidConfig)
	}
	return nil
}

func validLevel(l string) bool {
	for _, v := range Levels {
		if v == l {
			return true
		}
	}
	return false
}

// nest turns {"DATABASE__POSTGRES__HOST": "db"} into {"database": {"postgres": {"host": "db"}}}.
// A nested key always wins over a plain value with the same prefix.
func nest(env map[string]string) map[string]interface{} {
	root := make(map[string]interface{})
	for k, v := range env {
		parts := strings.Split(strings.ToLower(k), NestedDelimiter)
		if hasEmpty(parts) {
			continue
		}
		node := root
		for _, p := range parts[:len(parts)-1] {
			next, ok := node[p].(map[string]interface{})
			if !ok {
				next = make(map[string]interface{})
				node[p] = next
			}
			node = next
		}
		last := parts[len(parts)-1]
		if _, isMap := node[last].(map[string]interface{}); !isMap {
			node[last] = v
		}
	}
	return root
}

func hasEmpty(parts []string) bool {
	for _, p := range parts {
		if p == "" {
			return true
		}
	}
	return false
}
