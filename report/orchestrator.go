// Package report submits asynchronous report generation jobs and polls them
// to completion.
//
// An Orchestrator runs at most one generate-and-poll cycle at a time; extra
// callers are turned away rather than queued. Polling is paced by a rate
// limiter and stops as soon as the context is cancelled.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	standup "github.com/chimerakang/standup-go"
	"github.com/chimerakang/standup-go/audit"
	"github.com/chimerakang/standup-go/metrics"
	"golang.org/x/time/rate"
)

// DateLayout is the wire format of ReportRequest dates.
const DateLayout = "2006-01-02"

// TaskFailedError carries the server-reported reason for a failed task.
type TaskFailedError struct {
	TaskID  string
	Message string
}

func (e *TaskFailedError) Error() string { return e.Message }

// State is the caller-facing view of the latest cycle.
type State struct {
	StandupData []standup.ReportEntry
	IsLoading   bool
	Error       error
	NoActivity  bool
}

// Orchestrator implements standup.ReportGenerator.
type Orchestrator struct {
	source   standup.ReportSource
	fallback standup.ReportSource
	creds    standup.CredentialSource
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	audit    *audit.Logger

	running atomic.Bool

	mu    sync.Mutex
	state State
}

var _ standup.ReportGenerator = (*Orchestrator)(nil)

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithFallback opts into src when no credential is available.
// Without it, such calls fail with standup.ErrNotAuthenticated.
func WithFallback(src standup.ReportSource) Option {
	return func(o *Orchestrator) { o.fallback = src }
}

// WithPollInterval sets the default delay between status checks.
// Default: standup.DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(o *Orchestrator) { o.interval = d }
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithMetrics records runs and poll ticks.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithAudit emits an audit event per finished run.
func WithAudit(a *audit.Logger) Option {
	return func(o *Orchestrator) { o.audit = a }
}

// New creates an orchestrator calling source with credentials from creds.
func New(source standup.ReportSource, creds standup.CredentialSource, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		source:   source,
		creds:    creds,
		interval: standup.DefaultPollInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ValidateRequest checks the organization and the date range.
func ValidateRequest(req standup.ReportRequest) error {
	if strings.TrimSpace(req.OrganizationLogin) == "" {
		return errors.New("organizationLogin is required")
	}
	from, err := time.Parse(DateLayout, req.DateFrom)
	if err != nil {
		return fmt.Errorf("invalid dateFrom %q: want YYYY-MM-DD", req.DateFrom)
	}
	to, err := time.Parse(DateLayout, req.DateTo)
	if err != nil {
		return fmt.Errorf("invalid dateTo %q: want YYYY-MM-DD", req.DateTo)
	}
	if to.Before(from) {
		return fmt.Errorf("dateTo %s is before dateFrom %s", req.DateTo, req.DateFrom)
	}
	return nil
}

// pick selects the data source at the call boundary.
func (o *Orchestrator) pick(ctx context.Context) (standup.ReportSource, string, error) {
	if o.creds != nil {
		if cred, ok := o.creds.Credential(ctx); ok && cred != "" {
			return o.source, cred, nil
		}
	}
	if o.fallback != nil {
		o.logger.Info("no credential available, using fallback report source")
		return o.fallback, "", nil
	}
	return nil, "", standup.ErrNotAuthenticated
}

// Generate submits a job and returns its task ID.
// It returns standup.ErrNoActivity when there is nothing to report.
func (o *Orchestrator) Generate(ctx context.Context, req standup.ReportRequest) (string, error) {
	src, cred, err := o.pick(ctx)
	if err != nil {
		return "", err
	}
	if err := ValidateRequest(req); err != nil {
		return "", err
	}
	return src.Generate(ctx, cred, req)
}

// Poll checks the task every interval until it completes or fails.
// onProgress, if set, sees every snapshot before it is evaluated.
// A non-positive interval uses the orchestrator default.
func (o *Orchestrator) Poll(ctx context.Context, taskID string, onProgress func(standup.Task), interval time.Duration) ([]standup.ReportEntry, error) {
	src, cred, err := o.pick(ctx)
	if err != nil {
		return nil, err
	}
	return o.poll(ctx, src, cred, taskID, onProgress, interval)
}

func (o *Orchestrator) poll(ctx context.Context, src standup.ReportSource, cred, taskID string, onProgress func(standup.Task), interval time.Duration) ([]standup.ReportEntry, error) {
	if interval <= 0 {
		interval = o.interval
	}
	// First check is immediate, then one per interval.
	lim := rate.NewLimiter(rate.Every(interval), 1)

	for {
		if err := lim.Wait(ctx); err != nil {
			return nil, fmt.Errorf("standup/report: polling %s stopped: %w", taskID, err)
		}

		task, err := src.Task(ctx, cred, taskID)
		if err != nil {
			return nil, err
		}
		o.metrics.RecordPollTick(string(task.Status))
		if onProgress != nil {
			onProgress(*task)
		}

		switch task.Status {
		case standup.TaskCompleted:
			if task.Result == nil {
				return nil, standup.ErrNoResult
			}
			return task.Result, nil
		case standup.TaskFailed:
			msg := task.ErrorMessage
			if msg == "" {
				msg = "report generation failed"
			}
			return nil, &TaskFailedError{TaskID: taskID, Message: msg}
		}
	}
}

// Run submits req and polls it to completion, updating State along the way.
// While a run is in flight, further calls return standup.ErrAlreadyRunning
// without touching the network.
func (o *Orchestrator) Run(ctx context.Context, req standup.ReportRequest, onProgress func(standup.Task)) (*standup.Report, error) {
	if !o.running.CompareAndSwap(false, true) {
		o.logger.Warn("report generation already in progress, request discarded",
			"org", req.OrganizationLogin)
		o.metrics.RecordReportRejected()
		return nil, standup.ErrAlreadyRunning
	}
	defer o.running.Store(false)

	start := time.Now()
	o.setState(State{IsLoading: true})

	rep, err := o.run(ctx, req, onProgress)

	result := "completed"
	switch {
	case err == nil:
		o.setState(State{StandupData: rep.Entries})
	case errors.Is(err, standup.ErrNoActivity):
		rep, err = &standup.Report{Entries: []standup.ReportEntry{}, NoActivity: true}, nil
		result = "no_activity"
		o.setState(State{StandupData: rep.Entries, NoActivity: true})
	default:
		result = "failed"
		o.setState(State{Error: err})
		o.logger.Error("report generation failed", "org", req.OrganizationLogin, "error", err)
	}

	o.metrics.RecordReportRun(result, time.Since(start).Seconds())
	o.auditRun(req, result, err)
	return rep, err
}

func (o *Orchestrator) run(ctx context.Context, req standup.ReportRequest, onProgress func(standup.Task)) (*standup.Report, error) {
	src, cred, err := o.pick(ctx)
	if err != nil {
		return nil, err
	}
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	taskID, err := src.Generate(ctx, cred, req)
	if err != nil {
		return nil, err
	}
	entries, err := o.poll(ctx, src, cred, taskID, onProgress, 0)
	if err != nil {
		return nil, err
	}
	return &standup.Report{TaskID: taskID, Entries: entries}, nil
}

func (o *Orchestrator) auditRun(req standup.ReportRequest, result string, err error) {
	ev := audit.Event{
		Action:  audit.ActionReportRun,
		Org:     req.OrganizationLogin,
		Result:  audit.ResultSuccess,
		Details: req.DateFrom + ".." + req.DateTo,
	}
	switch result {
	case "no_activity":
		ev.Result = audit.ResultEmpty
	case "failed":
		ev.Result = audit.ResultFailure
		ev.Error = err.Error()
	}
	o.audit.Log(ev)
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// State returns the view of the latest run.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Running reports whether a cycle is in flight.
func (o *Orchestrator) Running() bool { return o.running.Load() }
