package svc

import (
	"context"
	"github.com/beldeveloper/ecomet/internal/app"
	"github.com/beldeveloper/ecomet/internal/app/logging"
	"github.com/juju/loggo"
	"sort"
	"sync"
)

const (
	// LogSinkRepositories is how many repositories the log sink prints.
	LogSinkRepositories = 5
	// LogSinkAuthors is how many of the most active authors are printed per repository.
	LogSinkAuthors = 3
)

// NewLogSink creates a sink that prints the first repositories instead of storing them.
func NewLogSink() *LogSink {
	return &LogSink{logger: logging.GetLogger("report")}
}

// LogSink prints the summary of the first saved repositories.
type LogSink struct {
	logger loggo.Logger
	mu     sync.Mutex
	seen   int
}

// Save prints the repository while fewer than LogSinkRepositories were printed.
func (s *LogSink) Save(_ context.Context, r app.Repository) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen++
	if s.seen > LogSinkRepositories {
		return nil
	}
	s.logger.Infof("Repository: %s", r.FullName())
	s.logger.Infof("  Position: %d", r.Position)
	s.logger.Infof("  Stars: %d", r.Stars)
	s.logger.Infof("  Language: %s", r.Language)
	s.logger.Infof("  Authors with commits in the period: %d", len(r.Authors))
	for _, a := range TopAuthors(r.Authors, LogSinkAuthors) {
		s.logger.Infof("    %s: %d commits", a.Author, a.CommitsNum)
	}
	return nil
}

// Flush does nothing.
func (s *LogSink) Flush(context.Context) error {
	return nil
}

// Close does nothing.
func (s *LogSink) Close(context.Context) error {
	return nil
}

// TopAuthors returns up to n authors with the most commits.
func TopAuthors(authors []app.AuthorCommits, n int) []app.AuthorCommits {
	res := append([]app.AuthorCommits(nil), authors...)
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CommitsNum > res[j].CommitsNum
	})
	if len(res) > n {
		res = res[:n]
	}
	return res
}

var _ app.RepositorySink = (*LogSink)(nil)
