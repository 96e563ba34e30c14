package app

import (
	"context"
)

// UnknownValue replaces the empty language and the anonymous commit author.
const UnknownValue = "Unknown"

// Repository is a model that represents a GitHub repository from the top list.
type Repository struct {
	Name     string          `json:"name"`
	Owner    string          `json:"owner"`
	Position int             `json:"position"`
	Stars    int             `json:"stars"`
	Watchers int             `json:"watchers"`
	Forks    int             `json:"forks"`
	Language string          `json:"language"`
	Authors  []AuthorCommits `json:"authorsCommitsNum"`
}

// FullName returns "owner/name".
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

// AuthorCommits is the number of commits of a single author in the look-back window.
type AuthorCommits struct {
	Author     string `json:"author"`
	CommitsNum int    `json:"commitsNum"`
}

// GithubSvc describes the source of the top repositories.
type GithubSvc interface {
	Repositories(ctx context.Context) ([]Repository, error)
}

// RepositorySink describes the destination of the scraped repositories.
type RepositorySink interface {
	Save(ctx context.Context, r Repository) error
	Flush(ctx context.Context) error
	Close(ctx context.Context) error
}

// ScrapeSvc describes the scraping run.
type ScrapeSvc interface {
	Run(ctx context.Context) (ScrapeResult, error)
}

// ScrapeResult summarizes the scraping run.
type ScrapeResult struct {
	Fetched int
	Saved   int
}

// RepositoryRepo describes reading the stored repositories.
type RepositoryRepo interface {
	FindAll(ctx context.Context) ([]Repository, error)
	FindByName(ctx context.Context, owner, name string) (Repository, error)
}
