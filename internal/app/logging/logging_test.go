package logging

import (
	"bytes"
	"github.com/beldeveloper/ecomet/internal/app/config"
	"github.com/juju/loggo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"testing"
	"time"
)

func restoreLogging(t *testing.T) {
	t.Cleanup(func() {
		_, _ = loggo.ReplaceDefaultWriter(loggo.NewSimpleWriter(os.Stderr, loggo.DefaultFormatter))
		_ = loggo.ConfigureLoggers("<root>=WARNING")
	})
}

func Test_SetupWriter_LevelAndFormat(t *testing.T) {
	restoreLogging(t)
	var buf bytes.Buffer

	err := SetupWriter(&buf, config.LoggingSettings{Level: "INFO", Format: "{module} - {level} - {message}"})
	require.NoError(t, err)

	logger := GetLogger("test")
	logger.Debugf("hidden")
	logger.Infof("hello %s", "world")

	assert.Equal(t, "ecomet.test - INFO - hello world\n", buf.String())
}

func Test_SetupWriter_InvalidLevel(t *testing.T) {
	restoreLogging(t)

	err := SetupWriter(&bytes.Buffer{}, config.LoggingSettings{Level: "LOUD"})

	assert.Error(t, err)
}

func Test_ParseLevel(t *testing.T) {
	for _, l := range config.Levels {
		_, ok := ParseLevel(l)
		assert.True(t, ok, l)
	}
	lvl, ok := ParseLevel(" warning ")
	assert.True(t, ok)
	assert.Equal(t, loggo.WARNING, lvl)
}

func Test_Formatter(t *testing.T) {
	f := Formatter(config.DefaultLogFormat)

	out := f(loggo.Entry{
		Level:     loggo.ERROR,
		Module:    "ecomet.main",
		Timestamp: time.Date(2024, 5, 1, 10, 20, 30, 0, time.UTC),
		Message:   "boom",
	})

	assert.Equal(t, "2024-05-01 10:20:30 - ecomet.main - ERROR - boom", out)
}
