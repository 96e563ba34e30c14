package clickhouse

import (
	"context"
	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/beldeveloper/go-errors-context"
)

// Writer inserts rows into a table.
type Writer interface {
	Write(ctx context.Context, table string, rows [][]interface{}) error
	Close() error
}

// NewBatchWriter creates a writer sending every call as a single batch.
func NewBatchWriter(conn ch.Conn) BatchWriter {
	return BatchWriter{conn: conn}
}

// BatchWriter writes through the driver batch API.
type BatchWriter struct {
	conn ch.Conn
}

// Write sends the rows in one INSERT.
func (w BatchWriter) Write(ctx context.Context, table string, rows [][]interface{}) error {
	batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO "+table)
	if err != nil {
		return errors.WrapContext(err, errors.Context{
			Path:   "clickhouse.BatchWriter.Write.PrepareBatch",
			Params: errors.Params{"table": table},
		})
	}
	for _, row := range rows {
		if err = batch.Append(row...); err != nil {
			_ = batch.Abort()
			return errors.WrapContext(err, errors.Context{
				Path:   "clickhouse.BatchWriter.Write.Append",
				Params: errors.Params{"table": table},
			})
		}
	}
	return errors.WrapContext(batch.Send(), errors.Context{
		Path:   "clickhouse.BatchWriter.Write.Send",
		Params: errors.Params{"table": table, "rows": len(rows)},
	})
}

// Close closes the connection.
func (w BatchWriter) Close() error {
	return w.conn.Close()
}
