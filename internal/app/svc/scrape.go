package svc

import (
	"context"
	"github.com/beldeveloper/ecomet/internal/app"
	"github.com/beldeveloper/ecomet/internal/app/logging"
	"github.com/beldeveloper/go-errors-context"
)

// NewScrape creates a new instance of the scraping service.
func NewScrape(source app.GithubSvc, sink app.RepositorySink) app.ScrapeSvc {
	return Scrape{source: source, sink: sink}
}

// Scrape fetches the top repositories and saves them into the sink.
type Scrape struct {
	source app.GithubSvc
	sink   app.RepositorySink
}

var scrapeLogger = logging.GetLogger("scrape")

// Run performs one scraping pass. Failures of single repositories are logged and skipped.
func (s Scrape) Run(ctx context.Context) (app.ScrapeResult, error) {
	var res app.ScrapeResult
	scrapeLogger.Infof("fetching repositories from github")
	repos, err := s.source.Repositories(ctx)
	if err != nil {
		return res, errors.WrapContext(err, errors.Context{Path: "svc.Scrape.Run.Repositories"})
	}
	res.Fetched = len(repos)
	if len(repos) == 0 {
		scrapeLogger.Warningf("failed to fetch repositories")
		return res, nil
	}
	scrapeLogger.Infof("processing and saving %d repositories", len(repos))
	for _, r := range repos {
		if err = ctx.Err(); err != nil {
			return res, errors.WrapContext(err, errors.Context{Path: "svc.Scrape.Run"})
		}
		if err = s.sink.Save(ctx, r); err != nil {
			scrapeLogger.Errorf("error saving repository %s: %v", r.FullName(), err)
			continue
		}
		res.Saved++
		if res.Saved == 1 || res.Saved%10 == 0 {
			scrapeLogger.Infof("saved %d of %d repositories", res.Saved, res.Fetched)
		}
	}
	if err = s.sink.Flush(ctx); err != nil {
		scrapeLogger.Errorf("error flushing repositories: %v", err)
	}
	scrapeLogger.Infof("successfully saved %d of %d repositories", res.Saved, res.Fetched)
	return res, nil
}
