package compose

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"path/filepath"
	"testing"
)

func Test_StartupOrder(t *testing.T) {
	f := parse(t, `
services:
  web: {image: w, depends_on: [api]}
  api: {image: a, depends_on: [db, cache]}
  worker: {image: w, depends_on: [db]}
  db: {image: d}
  cache: {image: c}
`)
	levels, err := StartupOrder(f)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"cache", "db"}, {"api", "worker"}, {"web"}}, levels)
}

func Test_StartupOrder_Stacks(t *testing.T) {
	for stack, db := range map[string]string{"postgres": "postgres", "clickhouse": "clickhouse"} {
		f, err := Load(filepath.Join(deployDir, stack, "docker-compose.yml"), Options{Lookup: noEnv})
		require.NoError(t, err, stack)
		levels, err := StartupOrder(f)
		require.NoError(t, err, stack)
		assert.Equal(t, [][]string{{db}, {"app"}}, levels, stack)
	}
}

func Test_StartupOrder_Errors(t *testing.T) {
	_, err := StartupOrder(parse(t, "services:\n  a: {image: a, depends_on: [b]}\n  b: {image: b, depends_on: [a]}\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errCycle)

	_, err = StartupOrder(parse(t, "services:\n  a: {image: a, depends_on: [ghost]}\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errUnknown)
}
