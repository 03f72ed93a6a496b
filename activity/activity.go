// Package activity fetches the raw engineering activity behind standup
// reports and caches it per organization and date range.
package activity

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	standup "github.com/chimerakang/standup-go"
	"github.com/chimerakang/standup-go/cache"
	"golang.org/x/sync/errgroup"
)

// Commit is one authored commit.
type Commit struct {
	SHA     string `json:"sha"`
	Author  string `json:"author"`
	Message string `json:"message"`
	Date    string `json:"date"`
}

// Issue is one opened issue.
type Issue struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Author string `json:"author"`
	State  string `json:"state"`
}

// PullRequest is one opened pull request.
type PullRequest struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Author string `json:"author"`
	State  string `json:"state"`
	Merged bool   `json:"merged"`
}

// UserActivity is one contributor's totals over a range.
type UserActivity struct {
	Username     string `json:"username"`
	Commits      int    `json:"commits"`
	Issues       int    `json:"issues"`
	PullRequests int    `json:"pullRequests"`
}

// Range selects an organization and an inclusive date range (YYYY-MM-DD).
type Range struct {
	Org  string
	From string
	To   string
}

// Key is the cache key for r. Organization logins are case-insensitive.
func (r Range) Key() string {
	return strings.ToLower(r.Org) + ":" + r.From + ":" + r.To
}

// Fetcher reads activity collections from the upstream provider.
type Fetcher interface {
	Commits(ctx context.Context, r Range) ([]Commit, error)
	Issues(ctx context.Context, r Range) ([]Issue, error)
	PullRequests(ctx context.Context, r Range) ([]PullRequest, error)
}

// Service is a read-through cache in front of a Fetcher.
type Service struct {
	fetcher Fetcher
	store   *cache.Store
	logger  *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a service. A nil store disables caching.
func New(fetcher Fetcher, store *cache.Store, opts ...Option) *Service {
	s := &Service{fetcher: fetcher, store: store, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Commits returns the commits in r.
func (s *Service) Commits(ctx context.Context, r Range) ([]Commit, error) {
	return cache.GetOrFetch(ctx, s.store, standup.PartitionCommits, r.Key(), func(ctx context.Context) ([]Commit, error) {
		return s.fetcher.Commits(ctx, r)
	})
}

// Issues returns the issues in r.
func (s *Service) Issues(ctx context.Context, r Range) ([]Issue, error) {
	return cache.GetOrFetch(ctx, s.store, standup.PartitionIssues, r.Key(), func(ctx context.Context) ([]Issue, error) {
		return s.fetcher.Issues(ctx, r)
	})
}

// PullRequests returns the pull requests in r.
func (s *Service) PullRequests(ctx context.Context, r Range) ([]PullRequest, error) {
	return cache.GetOrFetch(ctx, s.store, standup.PartitionPulls, r.Key(), func(ctx context.Context) ([]PullRequest, error) {
		return s.fetcher.PullRequests(ctx, r)
	})
}

// Aggregate returns per-user totals for r, sorted by username.
// The three collections are fetched concurrently.
func (s *Service) Aggregate(ctx context.Context, r Range) ([]UserActivity, error) {
	return cache.GetOrFetch(ctx, s.store, standup.PartitionActivity, r.Key(), func(ctx context.Context) ([]UserActivity, error) {
		var (
			commits []Commit
			issues  []Issue
			pulls   []PullRequest
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) { commits, err = s.Commits(gctx, r); return })
		g.Go(func() (err error) { issues, err = s.Issues(gctx, r); return })
		g.Go(func() (err error) { pulls, err = s.PullRequests(gctx, r); return })
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("standup/activity: aggregate %s: %w", r.Key(), err)
		}

		out := Summarize(commits, issues, pulls)
		s.logger.Debug("activity aggregated", "range", r.Key(), "users", len(out))
		return out, nil
	})
}

// Summarize counts each author's contributions.
func Summarize(commits []Commit, issues []Issue, pulls []PullRequest) []UserActivity {
	byUser := make(map[string]*UserActivity)
	get := func(login string) *UserActivity {
		ua, ok := byUser[login]
		if !ok {
			ua = &UserActivity{Username: login}
			byUser[login] = ua
		}
		return ua
	}
	for _, c := range commits {
		get(c.Author).Commits++
	}
	for _, i := range issues {
		get(i.Author).Issues++
	}
	for _, p := range pulls {
		get(p.Author).PullRequests++
	}

	out := make([]UserActivity, 0, len(byUser))
	for _, ua := range byUser {
		out = append(out, *ua)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}
