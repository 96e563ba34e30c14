package clickhouse

import (
	"context"
	stderrors "errors"
	"github.com/beldeveloper/ecomet/internal/app"
	"github.com/beldeveloper/ecomet/internal/app/metrics"
	"github.com/beldeveloper/go-errors-context"
	"github.com/juju/clock"
	"sync"
	"time"
)

// OverflowFactor bounds a queue to this many batches; above it only the newest batch is kept.
const OverflowFactor = 3

// NewStore creates a new instance of the batching repository store.
func NewStore(w Writer, batchSize int, clk clock.Clock, m *metrics.Collector) *Store {
	if batchSize < 1 {
		batchSize = 1
	}
	if clk == nil {
		clk = clock.WallClock
	}
	queues := make(map[string][][]interface{}, len(Tables))
	for _, t := range Tables {
		queues[t] = nil
	}
	return &Store{w: w, batchSize: batchSize, clock: clk, metrics: m, queues: queues}
}

// Store queues the repository rows and writes them in batches.
type Store struct {
	w         Writer
	batchSize int
	clock     clock.Clock
	metrics   *metrics.Collector

	mu     sync.Mutex
	queues map[string][][]interface{}
}

// Save enqueues the rows of the repository and flushes when any queue reaches the batch size.
// Rows of a failed flush stay queued, so Save succeeds once the rows are queued.
func (s *Store) Save(ctx context.Context, r app.Repository) error {
	now := s.clock.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	repo := r.FullName()

	authors := make([][]interface{}, 0, len(r.Authors))
	for _, a := range r.Authors {
		authors = append(authors, []interface{}{today, repo, a.Author, uint32(a.CommitsNum)})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.queues[TableRepositories] = append(s.queues[TableRepositories], []interface{}{
		r.Name, r.Owner, uint32(r.Stars), uint32(r.Watchers), uint32(r.Forks), r.Language, now.Truncate(time.Second),
	})
	s.queues[TablePositions] = append(s.queues[TablePositions], []interface{}{today, repo, uint32(r.Position)})
	s.queues[TableAuthorsCommits] = append(s.queues[TableAuthorsCommits], authors...)

	for _, q := range s.queues {
		if len(q) >= s.batchSize {
			if err := s.flushLocked(ctx); err != nil {
				logger.Warningf("batch flush failed, rows stay queued: %v", err)
			}
			break
		}
	}
	return nil
}

// Flush writes every non-empty queue.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(ctx)
}

// Close flushes the queues and closes the writer.
func (s *Store) Close(ctx context.Context) error {
	flushErr := s.Flush(ctx)
	if flushErr != nil {
		pending := s.pending()
		for _, table := range Tables {
			n := pending[table]
			if n == 0 {
				continue
			}
			logger.Errorf("closing with %d unwritten rows for %s", n, table)
			if s.metrics != nil {
				s.metrics.DroppedRows.WithLabelValues(table).Add(float64(n))
			}
		}
	}
	closeErr := s.w.Close()
	if closeErr == nil {
		logger.Infof("clickhouse connection closed")
	}
	return errors.WrapContext(stderrors.Join(flushErr, closeErr), errors.Context{Path: "clickhouse.Store.Close"})
}

// pending returns the number of queued rows per table.
func (s *Store) pending() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make(map[string]int, len(s.queues))
	for t, q := range s.queues {
		res[t] = len(q)
	}
	return res
}

// flushLocked expects s.mu to be held.
func (s *Store) flushLocked(ctx context.Context) error {
	var errs []error
	for _, table := range Tables {
		batch := s.queues[table]
		if len(batch) == 0 {
			continue
		}
		s.queues[table] = nil
		logger.Debugf("writing batch of %d rows to %s", len(batch), table)
		err := s.w.Write(ctx, table, batch)
		if err == nil {
			logger.Debugf("wrote %d rows to %s", len(batch), table)
			if s.metrics != nil {
				s.metrics.StoredRows.WithLabelValues(table).Add(float64(len(batch)))
			}
			continue
		}
		logger.Errorf("error writing to %s: %v", table, err)
		if s.metrics != nil {
			s.metrics.StoreFailures.WithLabelValues(table).Inc()
		}
		errs = append(errs, errors.WrapContext(err, errors.Context{
			Path:   "clickhouse.Store.flush",
			Params: errors.Params{"table": table, "rows": len(batch)},
		}))
		q := append(batch, s.queues[table]...)
		if len(q) > s.batchSize*OverflowFactor {
			dropped := len(q) - s.batchSize
			q = append([][]interface{}(nil), q[dropped:]...)
			logger.Errorf("queue for %s overflowed, dropped %d rows", table, dropped)
			if s.metrics != nil {
				s.metrics.DroppedRows.WithLabelValues(table).Add(float64(dropped))
			}
		}
		s.queues[table] = q
	}
	return stderrors.Join(errs...)
}

var _ app.RepositorySink = (*Store)(nil)
