// Package standup provides the client-side data-access core of the standup
// dashboard: credential resolution, session revalidation, asynchronous report
// generation and a local TTL cache for activity collections.
//
// The root package defines shared types and interfaces. Concrete
// implementations live in subpackages and are injected via Option functions:
//
//	client, err := standup.NewClient(
//	    standup.Config{BaseURL: "https://standup.example.com"},
//	    standup.WithAuthenticator(resolver),
//	    standup.WithReportGenerator(orchestrator),
//	)
package standup

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Client is the main entry point for dashboard data access.
type Client struct {
	config     Config
	logger     *slog.Logger
	httpClient *http.Client
	auth       Authenticator
	sessions   SessionGuard
	reports    ReportGenerator
	closers    []io.Closer
}

// Config holds connection and behavior configuration.
type Config struct {
	// BaseURL is the address of the report backend, e.g. "https://standup.example.com".
	BaseURL string

	// WhoAmIPath is the session validation endpoint. Default: "/api/auth/me".
	WhoAmIPath string

	// GeneratePath is the report submission endpoint. Default: "/api/reports/generate".
	GeneratePath string

	// TaskPath is the task status endpoint prefix; the task ID is appended.
	// Default: "/api/reports/tasks/".
	TaskPath string

	// PollInterval is the delay between task status checks. Default: 2 seconds.
	PollInterval time.Duration

	// CacheTTL is the maximum age of a cache entry. Default: 15 minutes.
	CacheTTL time.Duration

	// CachePath is the sqlite file backing the cache. Empty disables persistence.
	CachePath string

	// RequiredOrg restricts org-scoped credentials to one organization login.
	RequiredOrg string

	// RedirectOnFailure sends auth failures to ErrorRoute instead of surfacing inline.
	RedirectOnFailure bool

	// ErrorRoute is where failed resolutions are redirected. Default: "/auth/error".
	ErrorRoute string

	// UseFixtures opts into local fixture data when no credential is available.
	UseFixtures bool
}

// Defaults for Config.
const (
	DefaultWhoAmIPath   = "/api/auth/me"
	DefaultGeneratePath = "/api/reports/generate"
	DefaultTaskPath     = "/api/reports/tasks/"
	DefaultPollInterval = 2 * time.Second
	DefaultCacheTTL     = 15 * time.Minute
	DefaultErrorRoute   = "/auth/error"
)

// WithDefaults returns a copy of cfg with zero fields set to their defaults.
func (cfg Config) WithDefaults() Config {
	if cfg.WhoAmIPath == "" {
		cfg.WhoAmIPath = DefaultWhoAmIPath
	}
	if cfg.GeneratePath == "" {
		cfg.GeneratePath = DefaultGeneratePath
	}
	if cfg.TaskPath == "" {
		cfg.TaskPath = DefaultTaskPath
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.ErrorRoute == "" {
		cfg.ErrorRoute = DefaultErrorRoute
	}
	return cfg
}

// Option configures the Client.
type Option func(*Client)

// WithLogger sets a structured logger for the client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithHTTPClient sets the HTTP client shared by backend implementations.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithAuthenticator sets the credential resolver.
func WithAuthenticator(a Authenticator) Option {
	return func(c *Client) { c.auth = a }
}

// WithSessionGuard sets the session validator.
func WithSessionGuard(g SessionGuard) Option {
	return func(c *Client) { c.sessions = g }
}

// WithReportGenerator sets the report orchestrator.
func WithReportGenerator(r ReportGenerator) Option {
	return func(c *Client) { c.reports = r }
}

// WithCloser registers a resource released by Close, e.g. an opened cache store.
func WithCloser(cl io.Closer) Option {
	return func(c *Client) { c.closers = append(c.closers, cl) }
}

// NewClient creates a new client with the given configuration and options.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" && !cfg.UseFixtures {
		return nil, fmt.Errorf("standup: BaseURL is required unless UseFixtures is set")
	}

	c := &Client{config: cfg.WithDefaults()}
	for _, o := range opts {
		o(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return c, nil
}

// Config returns the client configuration with defaults applied.
func (c *Client) Config() Config { return c.config }

// Logger returns the client logger.
func (c *Client) Logger() *slog.Logger { return c.logger }

// HTTPClient returns the shared HTTP client.
func (c *Client) HTTPClient() *http.Client { return c.httpClient }

// Auth returns the credential resolver, or nil if not configured.
func (c *Client) Auth() Authenticator { return c.auth }

// Sessions returns the session validator, or nil if not configured.
func (c *Client) Sessions() SessionGuard { return c.sessions }

// Reports returns the report orchestrator, or nil if not configured.
func (c *Client) Reports() ReportGenerator { return c.reports }

// Close releases all resources held by the client.
// Injected services that implement io.Closer are closed as well.
func (c *Client) Close() error {
	closers := append([]io.Closer{}, c.closers...)
	for _, svc := range []any{c.auth, c.sessions, c.reports} {
		if cl, ok := svc.(io.Closer); ok && cl != nil {
			closers = append(closers, cl)
		}
	}
	var firstErr error
	for _, cl := range closers {
		if err := cl.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
