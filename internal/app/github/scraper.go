package github

import (
	"context"
	"fmt"
	"github.com/beldeveloper/ecomet/internal/app"
	"github.com/beldeveloper/ecomet/internal/app/config"
	"github.com/beldeveloper/ecomet/internal/app/errtype"
	"github.com/beldeveloper/ecomet/internal/app/metrics"
	"github.com/beldeveloper/go-errors-context"
	"github.com/juju/clock"
	"golang.org/x/sync/errgroup"
	"sort"
	"time"
)

// MaxPerPage is the largest page the GitHub API returns.
const MaxPerPage = 100

// Getter performs a GitHub API GET request.
type Getter interface {
	Get(ctx context.Context, endpoint string, params interface{}, out interface{}) error
}

type searchParams struct {
	Q       string `url:"q"`
	Sort    string `url:"sort"`
	Order   string `url:"order"`
	PerPage int    `url:"per_page"`
	Page    int    `url:"page,omitempty"`
}

type commitsParams struct {
	Since   string `url:"since"`
	PerPage int    `url:"per_page"`
}

type searchResult struct {
	Items []RepoItem `json:"items"`
}

// RepoItem is a repository in the search answer.
type RepoItem struct {
	Name  string `json:"name"`
	Owner struct {
		Login string `json:"login"`
	} `json:"owner"`
	Stars    int    `json:"stargazers_count"`
	Watchers int    `json:"watchers_count"`
	Forks    int    `json:"forks_count"`
	Language string `json:"language"`
}

// CommitItem is a commit in the commits answer.
type CommitItem struct {
	Author *struct {
		Login string `json:"login"`
	} `json:"author"`
	Commit struct {
		Author *struct {
			Name string `json:"name"`
		} `json:"author"`
	} `json:"commit"`
}

// authorName prefers the GitHub account and falls back to the git author.
func (c CommitItem) authorName() string {
	if c.Author != nil && c.Author.Login != "" {
		return c.Author.Login
	}
	if c.Commit.Author != nil && c.Commit.Author.Name != "" {
		return c.Commit.Author.Name
	}
	return app.UnknownValue
}

// NewScraper creates a new instance of the top repositories scraper.
func NewScraper(client Getter, s config.GithubSettings, clk clock.Clock, m *metrics.Collector) Scraper {
	if clk == nil {
		clk = clock.WallClock
	}
	logger.Infof("initialized scraper: MCR=%d, RPS=%d, limit=%d, days=%d",
		s.MaxConcurrentRequests, s.RequestsPerSecond, s.TopReposLimit, s.CommitsSinceDays)
	return Scraper{client: client, settings: s, clock: clk, metrics: m}
}

// Scraper collects the most starred repositories with their recent commit authors.
type Scraper struct {
	client   Getter
	settings config.GithubSettings
	clock    clock.Clock
	metrics  *metrics.Collector
}

// Repositories fetches the top list and the commit authors of every repository concurrently.
// Repositories that fail are skipped; an empty top list gives an empty result.
func (s Scraper) Repositories(ctx context.Context) ([]app.Repository, error) {
	if s.settings.AccessToken == "" {
		return nil, errors.WrapContext(errtype.ErrMissingToken, errors.Context{Path: "github.Scraper.Repositories"})
	}
	top := s.TopRepositories(ctx, s.settings.TopReposLimit)
	if len(top) == 0 {
		logger.Warningf("no repositories found")
		return nil, ctx.Err()
	}
	logger.Infof("fetched %d top repositories, processing", len(top))

	results := make([]*app.Repository, len(top))
	g := new(errgroup.Group)
	if s.settings.MaxConcurrentRequests > 0 {
		g.SetLimit(s.settings.MaxConcurrentRequests)
	}
	for i := range top {
		i := i
		g.Go(func() error {
			r, err := s.processRepository(ctx, top[i], i+1)
			if err != nil {
				logger.Errorf("error processing repository %d: %v", i+1, err)
				return nil
			}
			results[i] = &r
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapContext(err, errors.Context{Path: "github.Scraper.Repositories"})
	}

	res := make([]app.Repository, 0, len(top))
	for _, r := range results {
		if r != nil {
			res = append(res, *r)
		}
	}
	logger.Infof("successfully processed %d out of %d repositories", len(res), len(top))
	return res, nil
}

// TopRepositories returns up to limit repositories sorted by stars; failures give an empty list.
func (s Scraper) TopRepositories(ctx context.Context, limit int) []RepoItem {
	if limit <= 0 {
		return nil
	}
	perPage := limit
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	var items []RepoItem
	for page := 1; len(items) < limit; page++ {
		p := searchParams{Q: "stars:>1", Sort: "stars", Order: "desc", PerPage: perPage}
		if limit > MaxPerPage {
			p.Page = page
		}
		var res searchResult
		if err := s.client.Get(ctx, "search/repositories", p, &res); err != nil {
			logger.Errorf("failed to get the list of top repositories: %v", err)
			return nil
		}
		items = append(items, res.Items...)
		if len(res.Items) < perPage {
			break
		}
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

// Commits returns the commits of the look-back window; failures give an empty list.
func (s Scraper) Commits(ctx context.Context, owner, repo string) []CommitItem {
	since := s.clock.Now().Add(-time.Duration(s.settings.CommitsSinceDays) * 24 * time.Hour)
	var res []CommitItem
	err := s.client.Get(ctx, fmt.Sprintf("repos/%s/%s/commits", owner, repo), commitsParams{
		Since:   since.UTC().Format(time.RFC3339),
		PerPage: MaxPerPage,
	}, &res)
	if err != nil {
		logger.Warningf("failed to get commits for repository %s/%s: %v", owner, repo, err)
		return nil
	}
	return res
}

func (s Scraper) processRepository(ctx context.Context, item RepoItem, position int) (app.Repository, error) {
	r := app.Repository{
		Name:     item.Name,
		Owner:    item.Owner.Login,
		Position: position,
		Stars:    item.Stars,
		Watchers: item.Watchers,
		Forks:    item.Forks,
		Language: item.Language,
	}
	if r.Language == "" {
		r.Language = app.UnknownValue
	}
	if r.Owner == "" || r.Name == "" {
		return r, errors.NewWithContext("repository without owner or name", errors.Context{
			Path:   "github.Scraper.processRepository",
			Params: errors.Params{"position": position},
		})
	}
	logger.Debugf("processing repository #%d %s", position, r.FullName())
	commits := s.Commits(ctx, r.Owner, r.Name)
	if err := ctx.Err(); err != nil {
		return r, err
	}
	r.Authors = countAuthors(commits)
	logger.Debugf("found %d authors with commits in %s", len(r.Authors), r.FullName())
	if s.metrics != nil {
		s.metrics.ScrapedRepositories.Inc()
	}
	return r, nil
}

// countAuthors groups the commits by author, most active first, ties by name.
func countAuthors(commits []CommitItem) []app.AuthorCommits {
	counts := make(map[string]int)
	for _, c := range commits {
		counts[c.authorName()]++
	}
	res := make([]app.AuthorCommits, 0, len(counts))
	for author, n := range counts {
		res = append(res, app.AuthorCommits{Author: author, CommitsNum: n})
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CommitsNum != res[j].CommitsNum {
			return res[i].CommitsNum > res[j].CommitsNum
		}
		return res[i].Author < res[j].Author
	})
	return res
}

var _ app.GithubSvc = Scraper{}
