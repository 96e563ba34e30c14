package clickhouse

import (
	"context"
	"fmt"
	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/beldeveloper/ecomet/internal/app"
	"github.com/beldeveloper/ecomet/internal/app/config"
	"github.com/beldeveloper/ecomet/internal/app/metrics"
	"github.com/juju/clock/testclock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sync"
	"testing"
	"time"
)

type write struct {
	table string
	rows  [][]interface{}
}

type fakeWriter struct {
	mu     sync.Mutex
	fail   map[string]bool
	writes []write
	closed bool
}

func (w *fakeWriter) Write(_ context.Context, table string, rows [][]interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail[table] {
		return fmt.Errorf("table %s is read only", table)
	}
	w.writes = append(w.writes, write{table: table, rows: rows})
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func (w *fakeWriter) rows(table string) int {
	n := 0
	for _, wr := range w.writes {
		if wr.table == table {
			n += len(wr.rows)
		}
	}
	return n
}

var now = time.Date(2024, 5, 17, 13, 45, 10, 0, time.UTC)

func repo(i, authors int) app.Repository {
	r := app.Repository{
		Name: fmt.Sprintf("repo%d", i), Owner: "owner", Position: i, Stars: 100 - i, Watchers: 5, Forks: 2, Language: "Go",
	}
	for a := 0; a < authors; a++ {
		r.Authors = append(r.Authors, app.AuthorCommits{Author: fmt.Sprintf("dev%d", a), CommitsNum: a + 1})
	}
	return r
}

func Test_Store_Save_Rows(t *testing.T) {
	w := &fakeWriter{}
	s := NewStore(w, 100, testclock.NewClock(now), nil)
	require.NoError(t, s.Save(context.Background(), repo(1, 2)))
	assert.Empty(t, w.writes)
	assert.Equal(t, map[string]int{TableRepositories: 1, TablePositions: 1, TableAuthorsCommits: 2}, s.pending())

	require.NoError(t, s.Flush(context.Background()))
	require.Len(t, w.writes, 3)
	today := time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, write{table: TableRepositories, rows: [][]interface{}{
		{"repo1", "owner", uint32(99), uint32(5), uint32(2), "Go", now},
	}}, w.writes[0])
	assert.Equal(t, write{table: TableAuthorsCommits, rows: [][]interface{}{
		{today, "owner/repo1", "dev0", uint32(1)},
		{today, "owner/repo1", "dev1", uint32(2)},
	}}, w.writes[1])
	assert.Equal(t, write{table: TablePositions, rows: [][]interface{}{{today, "owner/repo1", uint32(1)}}}, w.writes[2])
	assert.Equal(t, map[string]int{TableRepositories: 0, TablePositions: 0, TableAuthorsCommits: 0}, s.pending())
}

func Test_Store_Save_FlushesOnBatchSize(t *testing.T) {
	w := &fakeWriter{}
	m := metrics.NewCollector()
	s := NewStore(w, 3, testclock.NewClock(now), m)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, repo(1, 0)))
	require.NoError(t, s.Save(ctx, repo(2, 0)))
	assert.Empty(t, w.writes)
	// the third repository fills the queues
	require.NoError(t, s.Save(ctx, repo(3, 0)))
	assert.Equal(t, 3, w.rows(TableRepositories))
	assert.Equal(t, 3, w.rows(TablePositions))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.StoredRows.WithLabelValues(TableRepositories)))

	w.writes = nil
	require.NoError(t, s.Save(ctx, repo(4, 5)))
	assert.Equal(t, 5, w.rows(TableAuthorsCommits))
	assert.Equal(t, 1, w.rows(TableRepositories))
}

func Test_Store_Flush_Requeue(t *testing.T) {
	w := &fakeWriter{fail: map[string]bool{TablePositions: true}}
	m := metrics.NewCollector()
	s := NewStore(w, 10, testclock.NewClock(now), m)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, repo(1, 1)))
	err := s.Flush(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read only")
	assert.Equal(t, 1, w.rows(TableRepositories))
	assert.Equal(t, 1, s.pending()[TablePositions])
	assert.Equal(t, float64(1), testutil.ToFloat64(m.StoreFailures.WithLabelValues(TablePositions)))

	w.fail = nil
	require.NoError(t, s.Flush(ctx))
	assert.Equal(t, 1, w.rows(TablePositions))
	assert.Equal(t, 0, s.pending()[TablePositions])
}

func Test_Store_Flush_Overflow(t *testing.T) {
	w := &fakeWriter{fail: map[string]bool{TablePositions: true}}
	m := metrics.NewCollector()
	s := NewStore(w, 2, testclock.NewClock(now), m)
	ctx := context.Background()

	for i := 1; i <= 7; i++ {
		require.NoError(t, s.Save(ctx, repo(i, 0)))
	}
	// the queue reached 7 > 3*2 rows and was cut down to the 2 newest
	pending := s.pending()[TablePositions]
	assert.LessOrEqual(t, pending, 2*OverflowFactor)

	w.fail = nil
	require.NoError(t, s.Flush(ctx))
	var positions []uint32
	for _, wr := range w.writes {
		if wr.table == TablePositions {
			for _, row := range wr.rows {
				positions = append(positions, row[2].(uint32))
			}
		}
	}
	assert.Equal(t, []uint32{6, 7}, positions)
	assert.Equal(t, float64(5), testutil.ToFloat64(m.DroppedRows.WithLabelValues(TablePositions)))
	assert.Equal(t, 7, w.rows(TableRepositories))
}

func Test_Store_Concurrent(t *testing.T) {
	w := &fakeWriter{}
	s := NewStore(w, 7, testclock.NewClock(now), nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Save(ctx, repo(i, 2)))
		}(i)
	}
	wg.Wait()
	require.NoError(t, s.Close(ctx))

	assert.True(t, w.closed)
	assert.Equal(t, 50, w.rows(TableRepositories))
	assert.Equal(t, 50, w.rows(TablePositions))
	assert.Equal(t, 100, w.rows(TableAuthorsCommits))
}

func Test_Store_Close_CountsUnwrittenRows(t *testing.T) {
	w := &fakeWriter{fail: map[string]bool{TableAuthorsCommits: true}}
	m := metrics.NewCollector()
	s := NewStore(w, 100, testclock.NewClock(now), m)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, repo(1, 3)))
	err := s.Close(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read only")
	assert.True(t, w.closed)
	assert.Equal(t, 1, w.rows(TableRepositories))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.DroppedRows.WithLabelValues(TableAuthorsCommits)))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.DroppedRows.WithLabelValues(TableRepositories)))
}

type fakeExecer struct {
	queries []string
	err     error
}

func (e *fakeExecer) Exec(_ context.Context, q string, _ ...interface{}) error {
	e.queries = append(e.queries, q)
	return e.err
}

func Test_EnsureSchema(t *testing.T) {
	e := &fakeExecer{}
	require.NoError(t, EnsureSchema(context.Background(), e))
	require.Len(t, e.queries, len(Tables))
	for i, table := range Tables {
		assert.Contains(t, e.queries[i], "CREATE TABLE IF NOT EXISTS "+table+" (")
	}

	e = &fakeExecer{err: fmt.Errorf("no access")}
	assert.Error(t, EnsureSchema(context.Background(), e))
	assert.Len(t, e.queries, 1)
}

func Test_Options(t *testing.T) {
	s := config.Defaults().ClickHouse
	s.Host = "clickhouse"
	o := Options(s)
	assert.Equal(t, []string{"clickhouse:8123"}, o.Addr)
	assert.Equal(t, ch.HTTP, o.Protocol)
	assert.Equal(t, "test", o.Auth.Database)
	assert.Equal(t, "default", o.Auth.Username)
	assert.Equal(t, 10*time.Second, o.DialTimeout)

	s.Protocol, s.Port = config.ProtocolNative, 9000
	o = Options(s)
	assert.Equal(t, ch.Native, o.Protocol)
	assert.Equal(t, []string{"clickhouse:9000"}, o.Addr)
}
