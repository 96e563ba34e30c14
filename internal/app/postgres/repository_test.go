package postgres

import (
	"context"
	"fmt"
	"github.com/beldeveloper/ecomet/internal/app"
	"github.com/beldeveloper/ecomet/internal/app/errtype"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
	"time"
)

type execCall struct {
	sql  string
	args []interface{}
}

type fakeDB struct {
	execs   []execCall
	execErr error
	rows    [][]interface{}
	row     pgx.Row
}

func (db *fakeDB) Exec(_ context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	db.execs = append(db.execs, execCall{sql: sql, args: args})
	return nil, db.execErr
}

func (db *fakeDB) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	return &fakeRows{rows: db.rows, i: -1}, nil
}

func (db *fakeDB) QueryRow(context.Context, string, ...interface{}) pgx.Row {
	return db.row
}

// fakeRows implements the part of pgx.Rows FindAll uses.
type fakeRows struct {
	pgx.Rows
	rows   [][]interface{}
	i      int
	closed bool
}

func (r *fakeRows) Next() bool {
	r.i++
	return r.i < len(r.rows)
}

func (r *fakeRows) Scan(dest ...interface{}) error {
	return assign(r.rows[r.i], dest)
}

func (r *fakeRows) Err() error {
	return nil
}

func (r *fakeRows) Close() {
	r.closed = true
}

type valuesRow []interface{}

func (r valuesRow) Scan(dest ...interface{}) error {
	return assign(r, dest)
}

type errRow struct {
	err error
}

func (r errRow) Scan(...interface{}) error {
	return r.err
}

func assign(values []interface{}, dest []interface{}) error {
	if len(values) != len(dest) {
		return fmt.Errorf("expected %d destinations, got %d", len(values), len(dest))
	}
	for i, v := range values {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *int:
			*d = v.(int)
		case *[]byte:
			*d = []byte(v.(string))
		default:
			return fmt.Errorf("unexpected destination %T", d)
		}
	}
	return nil
}

func Test_Repository_Save(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	db := &fakeDB{}
	r := &Repository{conn: db, clock: testclock.NewClock(now)}

	err := r.Save(context.Background(), app.Repository{
		Name: "linux", Owner: "torvalds", Position: 1, Stars: 300, Watchers: 300, Forks: 50, Language: "C",
		Authors: []app.AuthorCommits{{Author: "torvalds", CommitsNum: 2}},
	})
	require.NoError(t, err)
	require.NoError(t, r.Save(context.Background(), app.Repository{Name: "empty", Owner: "o"}))

	require.Len(t, db.execs, 2)
	assert.True(t, strings.HasPrefix(db.execs[0].sql, `INSERT INTO "repositories"`))
	assert.Contains(t, db.execs[0].sql, "ON CONFLICT")
	assert.Equal(t, []interface{}{
		"torvalds", "linux", 1, 300, 300, 50, "C", `[{"author":"torvalds","commitsNum":2}]`, now,
	}, db.execs[0].args)
	assert.Equal(t, "[]", db.execs[1].args[7])
}

func Test_Repository_Save_Error(t *testing.T) {
	r := &Repository{conn: &fakeDB{execErr: fmt.Errorf("deadlock")}, clock: testclock.NewClock(time.Now())}
	err := r.Save(context.Background(), app.Repository{Name: "n", Owner: "o"})
	assert.ErrorContains(t, err, "deadlock")
}

func Test_Repository_EnsureSchema(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, (&Repository{conn: db}).EnsureSchema(context.Background()))
	require.Len(t, db.execs, 1)
	assert.Equal(t, Schema, db.execs[0].sql)
}

func Test_Repository_FindAll(t *testing.T) {
	db := &fakeDB{rows: [][]interface{}{
		{"torvalds", "linux", 1, 300, 300, 50, "C", `[{"author":"torvalds","commitsNum":2}]`},
		{"o", "empty", 2, 10, 10, 0, "Unknown", `[]`},
	}}
	res, err := (&Repository{conn: db}).FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, app.Repository{
		Name: "linux", Owner: "torvalds", Position: 1, Stars: 300, Watchers: 300, Forks: 50, Language: "C",
		Authors: []app.AuthorCommits{{Author: "torvalds", CommitsNum: 2}},
	}, res[0])
	assert.Empty(t, res[1].Authors)
}

func Test_Repository_FindByName(t *testing.T) {
	db := &fakeDB{row: valuesRow{"o", "n", 3, 1, 1, 1, "Go", `[]`}}
	repo, err := (&Repository{conn: db}).FindByName(context.Background(), "o", "n")
	require.NoError(t, err)
	assert.Equal(t, 3, repo.Position)

	db.row = errRow{err: pgx.ErrNoRows}
	_, err = (&Repository{conn: db}).FindByName(context.Background(), "o", "missing")
	assert.ErrorIs(t, err, errtype.ErrNotFound)
}
