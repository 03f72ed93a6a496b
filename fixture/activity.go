package fixture

import (
	"context"
	"fmt"

	"github.com/chimerakang/standup-go/activity"
)

// Fetcher implements activity.Fetcher with canned collections.
type Fetcher struct{}

var _ activity.Fetcher = Fetcher{}

var authors = []string{"octocat", "hubot", "monalisa"}

func (Fetcher) Commits(_ context.Context, r activity.Range) ([]activity.Commit, error) {
	out := make([]activity.Commit, 0, 6)
	for i := 0; i < 6; i++ {
		out = append(out, activity.Commit{
			SHA:     fmt.Sprintf("%07x", 0xabc000+i),
			Author:  authors[i%2],
			Message: fmt.Sprintf("%s: change %d", r.Org, i+1),
			Date:    r.To,
		})
	}
	return out, nil
}

func (Fetcher) Issues(_ context.Context, r activity.Range) ([]activity.Issue, error) {
	return []activity.Issue{
		{Number: 101, Title: "Flaky login test", Author: authors[2], State: "open"},
		{Number: 102, Title: "Document " + r.Org + " setup", Author: authors[2], State: "closed"},
	}, nil
}

func (Fetcher) PullRequests(context.Context, activity.Range) ([]activity.PullRequest, error) {
	return []activity.PullRequest{
		{Number: 201, Title: "Add retry to sync", Author: authors[0], State: "closed", Merged: true},
		{Number: 202, Title: "Bump deps", Author: authors[1], State: "open"},
	}, nil
}
