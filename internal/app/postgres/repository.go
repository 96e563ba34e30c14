package postgres

import (
	"context"
	"github.com/beldeveloper/ecomet/internal/app"
	"github.com/beldeveloper/ecomet/internal/app/errtype"
	"github.com/beldeveloper/go-errors-context"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	jsoniter "github.com/json-iterator/go"
	"github.com/juju/clock"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Schema creates the table of the latest repository snapshots.
const Schema = `CREATE TABLE IF NOT EXISTS "repositories" (
	"owner"      TEXT        NOT NULL,
	"name"       TEXT        NOT NULL,
	"position"   INTEGER     NOT NULL,
	"stars"      INTEGER     NOT NULL,
	"watchers"   INTEGER     NOT NULL,
	"forks"      INTEGER     NOT NULL,
	"language"   TEXT        NOT NULL,
	"authors"    JSONB       NOT NULL DEFAULT '[]',
	"updated_at" TIMESTAMPTZ NOT NULL,
	PRIMARY KEY ("owner", "name")
)`

// DB is the part of the pool used by the repository store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// NewRepository creates a new instance of the repository store.
func NewRepository(conn *pgxpool.Pool, clk clock.Clock) *Repository {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Repository{conn: conn, clock: clk}
}

// Repository keeps the latest snapshot of every scraped (GitHub) repository.
type Repository struct {
	conn  DB
	clock clock.Clock
}

// EnsureSchema creates the table if it's missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.conn.Exec(ctx, Schema)
	return errors.WrapContext(err, errors.Context{Path: "postgres.Repository.EnsureSchema.Exec"})
}

// Save inserts the repository or replaces its previous snapshot.
func (r *Repository) Save(ctx context.Context, repo app.Repository) error {
	authors := repo.Authors
	if authors == nil {
		authors = []app.AuthorCommits{}
	}
	data, err := json.Marshal(authors)
	if err != nil {
		return errors.WrapContext(err, errors.Context{Path: "postgres.Repository.Save.Marshal"})
	}
	q := `INSERT INTO "repositories" ("owner", "name", "position", "stars", "watchers", "forks", "language", "authors", "updated_at")
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT ("owner", "name") DO UPDATE SET
			"position" = EXCLUDED."position", "stars" = EXCLUDED."stars", "watchers" = EXCLUDED."watchers",
			"forks" = EXCLUDED."forks", "language" = EXCLUDED."language", "authors" = EXCLUDED."authors",
			"updated_at" = EXCLUDED."updated_at"`
	_, err = r.conn.Exec(ctx, q, repo.Owner, repo.Name, repo.Position, repo.Stars, repo.Watchers, repo.Forks,
		repo.Language, string(data), r.clock.Now().UTC())
	return errors.WrapContext(err, errors.Context{
		Path:   "postgres.Repository.Save.Exec",
		Params: errors.Params{"repository": repo.FullName()},
	})
}

// Flush does nothing, every Save is written immediately.
func (r *Repository) Flush(context.Context) error {
	return nil
}

// Close does nothing, the pool is owned by the caller.
func (r *Repository) Close(context.Context) error {
	return nil
}

const selectRepositories = `SELECT "owner", "name", "position", "stars", "watchers", "forks", "language", "authors"
	FROM "repositories"`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRepository(row scanner) (app.Repository, error) {
	var repo app.Repository
	var authors []byte
	err := row.Scan(&repo.Owner, &repo.Name, &repo.Position, &repo.Stars, &repo.Watchers, &repo.Forks,
		&repo.Language, &authors)
	if err != nil {
		return repo, err
	}
	err = json.Unmarshal(authors, &repo.Authors)
	return repo, err
}

// FindAll returns the repositories ordered by their position in the top list.
func (r *Repository) FindAll(ctx context.Context) ([]app.Repository, error) {
	rows, err := r.conn.Query(ctx, selectRepositories+` ORDER BY "position", "owner", "name"`)
	if err != nil {
		return nil, errors.WrapContext(err, errors.Context{Path: "postgres.Repository.FindAll.Query"})
	}
	defer rows.Close()
	res := make([]app.Repository, 0, 100)
	for rows.Next() {
		repo, err := scanRepository(rows)
		if err != nil {
			return nil, errors.WrapContext(err, errors.Context{Path: "postgres.Repository.FindAll.Scan"})
		}
		res = append(res, repo)
	}
	return res, errors.WrapContext(rows.Err(), errors.Context{Path: "postgres.Repository.FindAll.Err"})
}

// FindByName returns the repository by its owner and name.
func (r *Repository) FindByName(ctx context.Context, owner, name string) (app.Repository, error) {
	repo, err := scanRepository(r.conn.QueryRow(ctx, selectRepositories+` WHERE "owner" = $1 AND "name" = $2`, owner, name))
	if err == pgx.ErrNoRows {
		err = errtype.ErrNotFound
	}
	return repo, errors.WrapContext(err, errors.Context{
		Path:   "postgres.Repository.FindByName.Scan",
		Params: errors.Params{"owner": owner, "name": name},
	})
}

var (
	_ app.RepositorySink = (*Repository)(nil)
	_ app.RepositoryRepo = (*Repository)(nil)
)
