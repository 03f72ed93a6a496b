// Package audit records credential, session and report outcomes as
// structured events.
package audit

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Actions emitted by the dashboard core.
const (
	ActionAuthResolve     = "auth_resolve"
	ActionSessionValidate = "session_validate"
	ActionSessionSignOut  = "session_sign_out"
	ActionReportRun       = "report_run"
)

// Results attached to events.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultDenied  = "denied"
	ResultEmpty   = "empty"
)

// Event is one audit record.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Result    string    `json:"result"`
	Org       string    `json:"org,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Source    string    `json:"source,omitempty"` // url, storage, session, fixture
	Details   string    `json:"details,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Handler processes audit events. Implementations should not block.
type Handler func(event Event)

// Logger emits audit events to handlers from a background goroutine.
// A nil *Logger discards events.
type Logger struct {
	handlers []Handler
	queue    chan Event
	done     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

// Option configures Logger behavior.
type Option func(*Logger)

// WithWriter adds a handler writing one JSON event per line to w.
func WithWriter(w io.Writer) Option {
	var mu sync.Mutex
	return WithHandler(func(e Event) {
		data, err := json.Marshal(e)
		if err != nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		_, _ = w.Write(append(data, '\n'))
	})
}

// WithSlog adds a handler forwarding events to a structured logger.
func WithSlog(l *slog.Logger) Option {
	return WithHandler(func(e Event) {
		l.LogAttrs(context.Background(), slog.LevelInfo, "audit",
			slog.String("id", e.ID),
			slog.String("action", e.Action),
			slog.String("result", e.Result),
			slog.String("org", e.Org),
			slog.String("source", e.Source),
			slog.String("error", e.Error),
		)
	})
}

// WithHandler adds a custom event handler.
func WithHandler(h Handler) Option {
	return func(l *Logger) { l.handlers = append(l.handlers, h) }
}

// New creates a new audit logger with buffered async emission.
// bufferSize defaults to 1000.
func New(bufferSize int, opts ...Option) *Logger {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	l := &Logger{
		queue: make(chan Event, bufferSize),
		done:  make(chan struct{}),
	}
	for _, o := range opts {
		o(l)
	}

	l.wg.Add(1)
	go l.process()
	return l
}

// Log emits an event asynchronously. ID and Timestamp are filled when empty.
func (l *Logger) Log(event Event) {
	if l == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case <-l.done:
		// shutting down, dropped
	case l.queue <- event:
	}
}

func (l *Logger) process() {
	defer l.wg.Done()
	for {
		select {
		case event := <-l.queue:
			l.dispatch(event)
		case <-l.done:
			for {
				select {
				case event := <-l.queue:
					l.dispatch(event)
				default:
					return
				}
			}
		}
	}
}

func (l *Logger) dispatch(e Event) {
	for _, h := range l.handlers {
		h(e)
	}
}

// Close flushes pending events and stops the logger. It is safe to call twice.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.once.Do(func() { close(l.done) })
	l.wg.Wait()
	return nil
}
