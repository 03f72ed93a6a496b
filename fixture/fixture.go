// Package fixture provides an in-memory standup.ReportSource with canned data.
//
// It backs demos and tests: wire it through report.WithFallback to serve
// reports when no credential is available, or use it directly as a scripted
// backend.
package fixture

import (
	"context"
	"fmt"
	"sync"

	standup "github.com/chimerakang/standup-go"
	"github.com/google/uuid"
)

// Option configures the fixture source.
type Option func(*Source)

// Source implements standup.ReportSource in memory.
type Source struct {
	mu         sync.Mutex
	sequence   []standup.TaskStatus
	entries    []standup.ReportEntry
	failure    string
	noActivity bool
	noResult   bool
	tasks      map[string]*taskState

	generateCalls int
	taskCalls     int
}

type taskState struct {
	req   standup.ReportRequest
	polls int
}

var _ standup.ReportSource = (*Source)(nil)

// WithSequence sets the statuses reported by successive polls of a task.
// The last status repeats once reached. An empty sequence keeps the default:
// pending, processing, completed.
func WithSequence(statuses ...standup.TaskStatus) Option {
	return func(s *Source) {
		if len(statuses) > 0 {
			s.sequence = statuses
		}
	}
}

// WithEntries sets the result of completed tasks. Default: generated sample entries.
func WithEntries(entries ...standup.ReportEntry) Option {
	return func(s *Source) {
		if entries == nil {
			entries = []standup.ReportEntry{}
		}
		s.entries = entries
	}
}

// WithFailure makes tasks end in the failed state with msg.
func WithFailure(msg string) Option {
	return func(s *Source) { s.failure = msg }
}

// WithNoActivity makes Generate report standup.ErrNoActivity.
func WithNoActivity() Option {
	return func(s *Source) { s.noActivity = true }
}

// WithoutResult makes completed tasks omit their result.
func WithoutResult() Option {
	return func(s *Source) { s.noResult = true }
}

// NewSource creates a fixture source.
func NewSource(opts ...Option) *Source {
	s := &Source{
		sequence: []standup.TaskStatus{standup.TaskPending, standup.TaskProcessing, standup.TaskCompleted},
		tasks:    make(map[string]*taskState),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Generate implements standup.ReportSource.
func (s *Source) Generate(_ context.Context, _ string, req standup.ReportRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generateCalls++
	if s.noActivity {
		return "", standup.ErrNoActivity
	}
	id := uuid.NewString()
	s.tasks[id] = &taskState{req: req}
	return id, nil
}

// Task implements standup.ReportSource.
func (s *Source) Task(_ context.Context, _, taskID string) (*standup.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.taskCalls++
	st, ok := s.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("standup/fixture: task %q not found", taskID)
	}

	i := st.polls
	if i >= len(s.sequence) {
		i = len(s.sequence) - 1
	}
	st.polls++

	task := &standup.Task{ID: taskID, Status: s.sequence[i]}
	switch task.Status {
	case standup.TaskCompleted:
		if s.failure != "" {
			task.Status = standup.TaskFailed
			task.ErrorMessage = s.failure
		} else if !s.noResult {
			task.Result = s.result(st.req)
		}
		delete(s.tasks, taskID)
	case standup.TaskFailed:
		task.ErrorMessage = s.failure
		delete(s.tasks, taskID)
	}
	return task, nil
}

func (s *Source) result(req standup.ReportRequest) []standup.ReportEntry {
	if s.entries != nil {
		return append([]standup.ReportEntry{}, s.entries...)
	}
	return SampleEntries(req)
}

// GenerateCalls counts calls to Generate.
func (s *Source) GenerateCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generateCalls
}

// TaskCalls counts calls to Task.
func (s *Source) TaskCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.taskCalls
}

// SampleEntries returns deterministic demo entries for req.
func SampleEntries(req standup.ReportRequest) []standup.ReportEntry {
	people := []struct {
		login, name string
		commits     int
		prs, issues int
	}{
		{"octocat", "Mona Octocat", 7, 2, 1},
		{"hubot", "Hubot", 3, 1, 0},
		{"monalisa", "Mona Lisa", 0, 0, 4},
	}
	out := make([]standup.ReportEntry, 0, len(people))
	for _, p := range people {
		out = append(out, standup.ReportEntry{
			Username:     p.login,
			Name:         p.name,
			AvatarURL:    "https://avatars.example.com/" + p.login,
			Date:         req.DateTo,
			Summary:      fmt.Sprintf("%s worked on %s: %d commits, %d pull requests, %d issues.", p.name, req.OrganizationLogin, p.commits, p.prs, p.issues),
			Commits:      p.commits,
			PullRequests: p.prs,
			Issues:       p.issues,
		})
	}
	return out
}
