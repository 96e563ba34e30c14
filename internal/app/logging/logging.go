package logging

import (
	"fmt"
	"github.com/beldeveloper/ecomet/internal/app/config"
	"github.com/juju/loggo"
	"io"
	"os"
	"strings"
	"time"
)

// RootModule is the parent of every application logger.
const RootModule = "ecomet"

// GetLogger returns the logger of the application component.
func GetLogger(component string) loggo.Logger {
	return loggo.GetLogger(RootModule + "." + component)
}

// Setup replaces the default loggo writer and sets the application log level.
func Setup(s config.LoggingSettings) error {
	return SetupWriter(os.Stdout, s)
}

// SetupWriter is Setup with a custom destination.
func SetupWriter(w io.Writer, s config.LoggingSettings) error {
	level, ok := ParseLevel(s.Level)
	if !ok {
		return fmt.Errorf("invalid logging level: %s", s.Level)
	}
	format := s.Format
	if format == "" {
		format = config.DefaultLogFormat
	}
	if _, err := loggo.ReplaceDefaultWriter(loggo.NewSimpleWriter(w, Formatter(format))); err != nil {
		return err
	}
	return loggo.ConfigureLoggers(fmt.Sprintf("<root>=WARNING;%s=%s", RootModule, level))
}

// ParseLevel accepts the configured level names; CRITICAL and WARNING are loggo's own names.
func ParseLevel(s string) (loggo.Level, bool) {
	return loggo.ParseLevel(strings.ToUpper(strings.TrimSpace(s)))
}

// Formatter renders entries by replacing {time}, {module}, {level} and {message} in the format.
func Formatter(format string) func(entry loggo.Entry) string {
	return func(entry loggo.Entry) string {
		r := strings.NewReplacer(
			"{time}", entry.Timestamp.In(time.UTC).Format("2006-01-02 15:04:05"),
			"{module}", entry.Module,
			"{level}", entry.Level.String(),
			"{message}", entry.Message,
		)
		return r.Replace(format)
	}
}
