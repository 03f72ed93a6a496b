package activity

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/chimerakang/standup-go/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFetcher struct {
	commits, issues, pulls atomic.Int32
	pullsErr               error
}

func (f *countingFetcher) Commits(context.Context, Range) ([]Commit, error) {
	f.commits.Add(1)
	return []Commit{{SHA: "a", Author: "octocat"}, {SHA: "b", Author: "octocat"}, {SHA: "c", Author: "hubot"}}, nil
}

func (f *countingFetcher) Issues(context.Context, Range) ([]Issue, error) {
	f.issues.Add(1)
	return []Issue{{Number: 1, Author: "monalisa"}}, nil
}

func (f *countingFetcher) PullRequests(context.Context, Range) ([]PullRequest, error) {
	f.pulls.Add(1)
	if f.pullsErr != nil {
		return nil, f.pullsErr
	}
	return []PullRequest{{Number: 2, Author: "hubot", Merged: true}}, nil
}

var r = Range{Org: "Acme", From: "2025-03-01", To: "2025-03-02"}

func TestRangeKey(t *testing.T) {
	assert.Equal(t, "acme:2025-03-01:2025-03-02", r.Key())
}

func TestAggregate(t *testing.T) {
	f := &countingFetcher{}
	s := New(f, cache.New(cache.NewMemoryBackend()))

	got, err := s.Aggregate(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, []UserActivity{
		{Username: "hubot", Commits: 1, PullRequests: 1},
		{Username: "monalisa", Issues: 1},
		{Username: "octocat", Commits: 2},
	}, got)

	_, err = s.Aggregate(context.Background(), r)
	require.NoError(t, err)
	_, err = s.Commits(context.Background(), r)
	require.NoError(t, err)

	assert.EqualValues(t, 1, f.commits.Load())
	assert.EqualValues(t, 1, f.issues.Load())
	assert.EqualValues(t, 1, f.pulls.Load())
}

func TestAggregate_ErrorNotCached(t *testing.T) {
	boom := errors.New("rate limited")
	f := &countingFetcher{pullsErr: boom}
	s := New(f, cache.New(cache.NewMemoryBackend()))

	_, err := s.Aggregate(context.Background(), r)
	require.ErrorIs(t, err, boom)

	f.pullsErr = nil
	got, err := s.Aggregate(context.Background(), r)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.EqualValues(t, 2, f.pulls.Load())
}

func TestService_NoCache(t *testing.T) {
	f := &countingFetcher{}
	s := New(f, nil)

	for i := 0; i < 2; i++ {
		_, err := s.Issues(context.Background(), r)
		require.NoError(t, err)
	}
	assert.EqualValues(t, 2, f.issues.Load())
}

func TestSummarize_Empty(t *testing.T) {
	got := Summarize(nil, nil, nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
